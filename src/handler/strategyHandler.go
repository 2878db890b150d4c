package handler

import (
	"net/http"

	"tradingbot/src/strategy"
)

// ListStrategiesHandler returns the available strategies and their default
// parameters.
func ListStrategiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, strategy.List())
	}
}
