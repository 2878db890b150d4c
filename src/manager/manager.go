// Package manager owns the set of bots: creation, validation, lifecycle
// (start/stop/restart/delete) and status reporting. It is the only code that
// spawns or cancels bot runtimes.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingbot/src/bot"
	"tradingbot/src/marketdata"
	"tradingbot/src/model"
	"tradingbot/src/portfolio"
	"tradingbot/src/repository"
	"tradingbot/src/strategy"
)

var (
	// ErrBotNotFound means no live bot row matches the identifier.
	ErrBotNotFound = errors.New("bot not found")
	// ErrAlreadyRunning rejects a start for a bot that already has a runtime.
	ErrAlreadyRunning = errors.New("bot already running")
	// ErrNotRunning rejects a stop for a bot with no runtime.
	ErrNotRunning = errors.New("bot not running")
	// ErrBotActive rejects deletion of a bot that is still running.
	ErrBotActive = errors.New("bot is running, stop it first")
	// ErrStopTimeout means the runtime did not exit within the join timeout.
	ErrStopTimeout = errors.New("timed out waiting for bot to stop")
)

// ValidationError reports a rejected bot configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// handle tracks one live runtime.
type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager is safe for concurrent use by the API layer.
type Manager struct {
	bots   *repository.BotRepository
	deps   bot.Deps
	ledger *portfolio.Ledger

	joinTimeout time.Duration

	mu      sync.Mutex
	running map[uint]*handle
}

func New(bots *repository.BotRepository, ledger *portfolio.Ledger, deps bot.Deps) *Manager {
	return &Manager{
		bots:        bots,
		deps:        deps,
		ledger:      ledger,
		joinTimeout: 10 * time.Second,
		running:     map[uint]*handle{},
	}
}

// CreateRequest describes a new bot. PortfolioName is optional; it defaults
// to the bot name, and bots naming the same portfolio share it.
type CreateRequest struct {
	Name          string
	PortfolioName string
	Config        model.BotConfig
}

func validate(req *CreateRequest) error {
	if req.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(req.Config.Symbols) == 0 {
		return &ValidationError{Field: "symbols", Reason: "at least one symbol required"}
	}
	if len(req.Config.Strategies) == 0 {
		return &ValidationError{Field: "strategies", Reason: "at least one strategy required"}
	}
	for _, cfg := range req.Config.Strategies {
		if _, err := strategy.New(cfg); err != nil {
			return &ValidationError{Field: "strategies", Reason: err.Error()}
		}
	}
	if req.Config.InitialCapital <= 0 {
		return &ValidationError{Field: "initial_capital", Reason: "must be positive"}
	}
	if req.Config.MaxPositionSize < 0 || req.Config.MaxPositionSize > 1 {
		return &ValidationError{Field: "max_position_size", Reason: "must be between 0 and 1"}
	}
	if req.Config.StopLossPct < 0 || req.Config.StopLossPct > 1 {
		return &ValidationError{Field: "stop_loss_pct", Reason: "must be between 0 and 1"}
	}
	if req.Config.TakeProfitPct < 0 || req.Config.TakeProfitPct > 1 {
		return &ValidationError{Field: "take_profit_pct", Reason: "must be between 0 and 1"}
	}
	if req.Config.MaxPortfolioRisk < 0 || req.Config.MaxPortfolioRisk > 1 {
		return &ValidationError{Field: "max_portfolio_risk", Reason: "must be between 0 and 1"}
	}
	if req.Config.RunIntervalSeconds < 0 {
		return &ValidationError{Field: "run_interval_seconds", Reason: "must not be negative"}
	}
	if !req.Config.PaperTrading && req.Config.DataSource == "sim" {
		return &ValidationError{Field: "data_source", Reason: "live trading cannot use the simulated feed"}
	}
	if req.Config.Timeframe == "" {
		req.Config.Timeframe = "1d"
	} else if !marketdata.ValidTimeframe(req.Config.Timeframe) {
		return &ValidationError{Field: "timeframe", Reason: fmt.Sprintf("unsupported timeframe %q", req.Config.Timeframe)}
	}
	return nil
}

// Create validates the request, provisions (or reuses) the portfolio and
// persists the bot in stopped state.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*model.Bot, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	existing, err := m.bots.FindByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ValidationError{Field: "name", Reason: fmt.Sprintf("%q already exists", req.Name)}
	}

	portfolioName := req.PortfolioName
	if portfolioName == "" {
		portfolioName = req.Name
	}
	pf, err := m.ledger.Ensure(ctx, portfolioName, req.Config.InitialCapital)
	if err != nil {
		return nil, err
	}

	b := &model.Bot{
		Name:        req.Name,
		PortfolioID: pf.ID,
		Config:      req.Config,
		Status:      model.BotStatusStopped,
		IsActive:    true,
	}
	if err := m.bots.Create(ctx, b); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"bot_id":       b.ID,
		"bot_name":     b.Name,
		"portfolio_id": pf.ID,
	}).Info("bot created")
	return b, nil
}

func (m *Manager) find(ctx context.Context, id uint) (*model.Bot, error) {
	b, err := m.bots.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.Status == model.BotStatusDeleted {
		return nil, fmt.Errorf("%w: id %d", ErrBotNotFound, id)
	}
	return b, nil
}

// Start spawns the bot's runtime. A bot has at most one runtime: starting a
// running bot fails with ErrAlreadyRunning, never a second loop.
func (m *Manager) Start(ctx context.Context, id uint) error {
	b, err := m.find(ctx, id)
	if err != nil {
		return err
	}

	deps := m.deps
	// A bot naming its own data source gets a dedicated provider; the rest
	// share the default one.
	if b.Config.DataSource != "" {
		deps.Market = marketdata.New(b.Config.DataSource)
	}

	rt, err := bot.NewRuntime(b, deps)
	if err != nil {
		return &ValidationError{Field: "config", Reason: err.Error()}
	}

	m.mu.Lock()
	if _, ok := m.running[id]; ok {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel, done: make(chan struct{})}
	m.running[id] = h
	m.mu.Unlock()

	if err := m.bots.UpdateStatus(ctx, id, model.BotStatusRunning); err != nil {
		m.mu.Lock()
		delete(m.running, id)
		m.mu.Unlock()
		cancel()
		return err
	}

	go func() {
		defer close(h.done)
		defer cancel()

		// The runtime sets error status itself when it faults; a nil return
		// means a cooperative stop.
		if err := rt.Run(runCtx); err != nil {
			logger.WithError(err).WithField("bot_id", id).Error("bot runtime exited with error")
		}

		m.mu.Lock()
		if m.running[id] == h {
			delete(m.running, id)
		}
		m.mu.Unlock()
	}()

	logger.WithField("bot_id", id).Info("bot started")
	return nil
}

// Stop cancels the bot's runtime and waits for it to exit. The runtime
// finishes its in-flight symbol first, so the join can take up to the
// configured timeout.
func (m *Manager) Stop(ctx context.Context, id uint) error {
	m.mu.Lock()
	h, ok := m.running[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}

	h.cancel()

	select {
	case <-h.done:
	case <-time.After(m.joinTimeout):
		return fmt.Errorf("%w: bot %d", ErrStopTimeout, id)
	case <-ctx.Done():
		return ctx.Err()
	}

	// A faulted runtime already wrote error status; do not overwrite it.
	b, err := m.find(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != model.BotStatusError {
		if err := m.bots.UpdateStatus(ctx, id, model.BotStatusStopped); err != nil {
			return err
		}
	}

	logger.WithField("bot_id", id).Info("bot stopped")
	return nil
}

// Restart stops the bot if it is running, then starts it fresh. Used to pick
// up configuration edits and to recover a faulted bot.
func (m *Manager) Restart(ctx context.Context, id uint) error {
	if err := m.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return m.Start(ctx, id)
}

// Delete soft-deletes a stopped bot. Its portfolio, signals and trades stay.
func (m *Manager) Delete(ctx context.Context, id uint) error {
	if _, err := m.find(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	_, active := m.running[id]
	m.mu.Unlock()
	if active {
		return ErrBotActive
	}

	if err := m.bots.SoftDelete(ctx, id); err != nil {
		return err
	}
	logger.WithField("bot_id", id).Info("bot deleted")
	return nil
}

// StopAll stops every running bot. Called on shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]uint, 0, len(m.running))
	for id := range m.running {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotRunning) {
			logger.WithError(err).WithField("bot_id", id).Error("failed to stop bot on shutdown")
		}
	}
}

// IsRunning reports whether the bot currently has a live runtime.
func (m *Manager) IsRunning(id uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[id]
	return ok
}

// BotStatus is the full status view served by the API.
type BotStatus struct {
	Bot       *model.Bot         `json:"bot"`
	Running   bool               `json:"running"`
	Portfolio *portfolio.Summary `json:"portfolio"`
}

// Status returns the bot row, its live/running flag and its portfolio view.
func (m *Manager) Status(ctx context.Context, id uint) (*BotStatus, error) {
	b, err := m.find(ctx, id)
	if err != nil {
		return nil, err
	}

	summary, err := m.ledger.Summary(ctx, b.PortfolioID)
	if err != nil {
		return nil, err
	}

	return &BotStatus{
		Bot:       b,
		Running:   m.IsRunning(id),
		Portfolio: summary,
	}, nil
}

// List returns all live bots with their running flags.
func (m *Manager) List(ctx context.Context, activeOnly bool) ([]BotStatus, error) {
	bots, err := m.bots.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	out := make([]BotStatus, 0, len(bots))
	for i := range bots {
		if bots[i].Status == model.BotStatusDeleted {
			continue
		}
		out = append(out, BotStatus{
			Bot:     &bots[i],
			Running: m.IsRunning(bots[i].ID),
		})
	}
	return out, nil
}
