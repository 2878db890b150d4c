package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"tradingbot/src/handler"
	"tradingbot/src/manager"
	"tradingbot/src/marketdata"
	"tradingbot/src/portfolio"
	"tradingbot/src/repository"
	"tradingbot/src/security"
)

// Server wires the HTTP API over the manager and the ledger.
type Server struct {
	config   *Config
	manager  *manager.Manager
	ledger   *portfolio.Ledger
	market   marketdata.Provider
	verifier *security.TokenVerifier
}

func New(m *manager.Manager, ledger *portfolio.Ledger, market marketdata.Provider, verifier *security.TokenVerifier) *Server {
	return &Server{
		config:   GetConfig(),
		manager:  m,
		ledger:   ledger,
		market:   market,
		verifier: verifier,
	}
}

// Router builds the route table. Health stays public; everything else goes
// through the token middleware.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(s.verifier.Middleware)

		r.Route("/bots", func(r chi.Router) {
			r.Post("/", handler.CreateBotHandler(s.manager))
			r.Get("/", handler.ListBotsHandler(s.manager))
			r.Get("/{botID}", handler.GetBotStatusHandler(s.manager))
			r.Post("/{botID}/start", handler.StartBotHandler(s.manager))
			r.Post("/{botID}/stop", handler.StopBotHandler(s.manager))
			r.Post("/{botID}/restart", handler.RestartBotHandler(s.manager))
			r.Delete("/{botID}", handler.DeleteBotHandler(s.manager))
		})

		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/{portfolioID}", handler.GetPortfolioHandler(s.ledger))
			r.Get("/{portfolioID}/snapshots", handler.ListSnapshotsHandler(s.ledger))
		})

		r.Get("/signals", handler.SearchSignalsHandler(repository.NewSignalRepository()))
		r.Get("/trades", handler.SearchTradesHandler(repository.NewTradeRepository()))
		r.Get("/strategies", handler.ListStrategiesHandler())
		r.Post("/backtests", handler.RunBacktestHandler(s.market))

		r.Get("/ws/status", s.statusFeed())
	})

	return r
}

// Start runs the server until SIGINT or SIGTERM, then shuts down the
// listener and stops every running bot.
func (s *Server) Start() {
	addr := ":" + s.config.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
	s.manager.StopAll(ctx)
}
