package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradingbot/src/model"
	"tradingbot/src/repository"
)

type tradeSearcher interface {
	Search(ctx context.Context, options repository.TradeSearchOptions) ([]model.Trade, error)
}

// SearchTradesHandler lists executed trades with filters (portfolioId,
// botId, symbol, createdFrom, createdTo) and pagination.
func SearchTradesHandler(repo tradeSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolioID, ok := parseUintQuery(r, "portfolioId")
		if !ok {
			http.Error(w, "invalid portfolioId", http.StatusBadRequest)
			return
		}
		botID, ok := parseUintQuery(r, "botId")
		if !ok {
			http.Error(w, "invalid botId", http.StatusBadRequest)
			return
		}

		var symbol *string
		if symbolParam := r.URL.Query().Get("symbol"); symbolParam != "" {
			symbol = &symbolParam
		}

		createdFrom, ok := parseTimeQuery(r, "createdFrom")
		if !ok {
			http.Error(w, "invalid createdFrom", http.StatusBadRequest)
			return
		}
		createdTo, ok := parseTimeQuery(r, "createdTo")
		if !ok {
			http.Error(w, "invalid createdTo", http.StatusBadRequest)
			return
		}

		limit, offset, ok := parsePagination(r)
		if !ok {
			http.Error(w, "invalid pagination", http.StatusBadRequest)
			return
		}

		trades, err := repo.Search(r.Context(), repository.TradeSearchOptions{
			PortfolioID:   portfolioID,
			BotID:         botID,
			Symbol:        symbol,
			CreatedAfter:  createdFrom,
			CreatedBefore: createdTo,
			Limit:         limit,
			Offset:        offset,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trades)
	}
}
