package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingbot/src/model"
	"tradingbot/src/repository"
)

type signalSearcher interface {
	Search(ctx context.Context, options repository.SignalSearchOptions) ([]model.Signal, error)
}

func parseUintQuery(r *http.Request, name string) (*uint, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	id := uint(parsed)
	return &id, true
}

func parseTimeQuery(r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

func parsePagination(r *http.Request) (limit, offset int, ok bool) {
	page := 1
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		parsed, err := strconv.Atoi(pageParam)
		if err != nil || parsed <= 0 {
			return 0, 0, false
		}
		page = parsed
	}

	pageSize := 20
	if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
		parsed, err := strconv.Atoi(sizeParam)
		if err != nil || parsed <= 0 {
			return 0, 0, false
		}
		pageSize = parsed
	}

	return pageSize, (page - 1) * pageSize, true
}

// SearchSignalsHandler lists signals with filters (botId, symbol,
// createdFrom, createdTo) and pagination.
func SearchSignalsHandler(repo signalSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		signals, err := repo.Search(r.Context(), repository.SignalSearchOptions{
			BotID:         botID,
			Symbol:        symbol,
			CreatedAfter:  createdFrom,
			CreatedBefore: createdTo,
			Limit:         limit,
			Offset:        offset,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search signals")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, signals)
	}
}
