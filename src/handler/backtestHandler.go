package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradingbot/src/backtest"
	"tradingbot/src/marketdata"
	"tradingbot/src/model"
	"tradingbot/src/risk"
	"tradingbot/src/strategy"
)

type backtestPayload struct {
	Symbol     string                 `json:"symbol"`
	Timeframe  string                 `json:"timeframe"`
	Lookback   int                    `json:"lookback"`
	Strategies []model.StrategyConfig `json:"strategies"`
	Config     model.BotConfig        `json:"config"`
}

// RunBacktestHandler fetches historical bars and replays them through the
// requested strategy set. Risk limits come from the submitted bot config,
// falling back to platform defaults.
func RunBacktestHandler(provider marketdata.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload backtestPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid backtest payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.Symbol == "" {
			http.Error(w, "symbol is required", http.StatusBadRequest)
			return
		}
		if payload.Lookback <= 0 {
			payload.Lookback = 500
		}
		if payload.Timeframe == "" {
			payload.Timeframe = "1d"
		}

		capital := payload.Config.InitialCapital
		if capital <= 0 {
			capital = 10000
		}
		limits := risk.DefaultLimits()
		if payload.Config.MaxPositionSize > 0 {
			limits = risk.LimitsFromConfig(payload.Config)
		}

		bars, err := provider.Bars(r.Context(), payload.Symbol, payload.Timeframe, payload.Lookback)
		if err != nil {
			if errors.Is(err, marketdata.ErrDataUnavailable) {
				http.Error(w, "market data unavailable", http.StatusBadGateway)
				return
			}
			logger.WithError(err).Error("failed to fetch bars for backtest")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		result, err := backtest.Run(backtest.Config{
			Symbol:         payload.Symbol,
			Strategies:     payload.Strategies,
			InitialCapital: capital,
			Limits:         limits,
		}, bars)
		if err != nil {
			if errors.Is(err, backtest.ErrNotEnoughBars) || errors.Is(err, strategy.ErrUnknownStrategy) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.WithError(err).Error("backtest failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
