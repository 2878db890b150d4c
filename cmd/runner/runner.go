// Package runner starts bots headless, without the HTTP API. Meant for
// single-purpose deployments where bots are managed through the database.
package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tradingbot/src/manager"
)

type Runner struct {
	Manager *manager.Manager
}

// Start launches the selected bots and blocks until SIGINT or SIGTERM.
func (t *Runner) Start() error {
	config := GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	selected := map[string]bool{}
	for _, name := range config.BotNames {
		selected[name] = true
	}

	bots, err := t.Manager.List(ctx, true)
	if err != nil {
		logrus.WithError(err).Error("Failed to list bots")
		return err
	}

	started := 0
	for _, status := range bots {
		if len(selected) > 0 && !selected[status.Bot.Name] {
			continue
		}
		if err := t.Manager.Start(ctx, status.Bot.ID); err != nil {
			logrus.WithError(err).WithField("bot_name", status.Bot.Name).Error("Failed to start bot")
			continue
		}
		started++
	}

	logrus.WithField("started", started).Info("Runner started")
	if started == 0 {
		logrus.Warn("No bots started, waiting for shutdown signal anyway")
	}

	<-ctx.Done()

	logrus.Info("Shutting down runner...")
	t.Manager.StopAll(context.Background())
	return nil
}
