package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradingbot/src/manager"
	"tradingbot/src/model"
)

type botManager interface {
	Create(ctx context.Context, req manager.CreateRequest) (*model.Bot, error)
	Start(ctx context.Context, id uint) error
	Stop(ctx context.Context, id uint) error
	Restart(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	Status(ctx context.Context, id uint) (*manager.BotStatus, error)
	List(ctx context.Context, activeOnly bool) ([]manager.BotStatus, error)
}

func botIDParam(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "botID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// writeManagerError maps manager errors onto HTTP statuses.
func writeManagerError(w http.ResponseWriter, err error) {
	var verr *manager.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, manager.ErrBotNotFound):
		http.Error(w, "bot not found", http.StatusNotFound)
	case errors.Is(err, manager.ErrAlreadyRunning):
		http.Error(w, "bot already running", http.StatusConflict)
	case errors.Is(err, manager.ErrNotRunning):
		http.Error(w, "bot not running", http.StatusConflict)
	case errors.Is(err, manager.ErrBotActive):
		http.Error(w, "bot is running, stop it first", http.StatusConflict)
	default:
		logger.WithError(err).Error("bot operation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

type createBotPayload struct {
	Name          string          `json:"name"`
	PortfolioName string          `json:"portfolio_name"`
	Config        model.BotConfig `json:"config"`
}

// CreateBotHandler registers a new bot in stopped state.
func CreateBotHandler(m botManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createBotPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid create bot payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		bot, err := m.Create(r.Context(), manager.CreateRequest{
			Name:          payload.Name,
			PortfolioName: payload.PortfolioName,
			Config:        payload.Config,
		})
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, bot)
	}
}

// ListBotsHandler lists bots; ?active=true filters to active ones.
func ListBotsHandler(m botManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("active") == "true"
		bots, err := m.List(r.Context(), activeOnly)
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bots)
	}
}

// GetBotStatusHandler returns the bot row, running flag and portfolio view.
func GetBotStatusHandler(m botManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := botIDParam(r)
		if !ok {
			http.Error(w, "invalid bot id", http.StatusBadRequest)
			return
		}
		status, err := m.Status(r.Context(), id)
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func lifecycleHandler(op func(context.Context, uint) error, verb string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := botIDParam(r)
		if !ok {
			http.Error(w, "invalid bot id", http.StatusBadRequest)
			return
		}
		if err := op(r.Context(), id); err != nil {
			writeManagerError(w, err)
			return
		}
		logger.WithFields(logger.Fields{"bot_id": id, "op": verb}).Info("bot lifecycle operation")
		writeJSON(w, http.StatusOK, map[string]any{"bot_id": id, "status": verb})
	}
}

func StartBotHandler(m botManager) http.HandlerFunc   { return lifecycleHandler(m.Start, "started") }
func StopBotHandler(m botManager) http.HandlerFunc    { return lifecycleHandler(m.Stop, "stopped") }
func RestartBotHandler(m botManager) http.HandlerFunc { return lifecycleHandler(m.Restart, "restarted") }
func DeleteBotHandler(m botManager) http.HandlerFunc  { return lifecycleHandler(m.Delete, "deleted") }
