package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradingbot/src/model"
	"tradingbot/src/portfolio"
)

type portfolioReader interface {
	Summary(ctx context.Context, portfolioID uint) (*portfolio.Summary, error)
	Snapshots(ctx context.Context, portfolioID uint, limit int) ([]model.PortfolioSnapshot, error)
}

func portfolioIDParam(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "portfolioID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// GetPortfolioHandler returns the portfolio summary with open positions.
func GetPortfolioHandler(reader portfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := portfolioIDParam(r)
		if !ok {
			http.Error(w, "invalid portfolio id", http.StatusBadRequest)
			return
		}

		summary, err := reader.Summary(r.Context(), id)
		if err != nil {
			if errors.Is(err, portfolio.ErrUnknownPortfolio) {
				http.Error(w, "portfolio not found", http.StatusNotFound)
				return
			}
			logger.WithError(err).Error("failed to load portfolio summary")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// ListSnapshotsHandler returns the valuation history, newest first.
// Supports ?limit=N, default 100.
func ListSnapshotsHandler(reader portfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := portfolioIDParam(r)
		if !ok {
			http.Error(w, "invalid portfolio id", http.StatusBadRequest)
			return
		}

		limit := 100
		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		snapshots, err := reader.Snapshots(r.Context(), id, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list snapshots")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, snapshots)
	}
}
