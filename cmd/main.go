package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradingbot/cmd/runner"
	"tradingbot/src/bot"
	"tradingbot/src/database"
	"tradingbot/src/manager"
	"tradingbot/src/marketdata"
	"tradingbot/src/portfolio"
	"tradingbot/src/repository"
	"tradingbot/src/security"
	"tradingbot/src/server"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "tradingbot"
	app.Usage = "The trading bot platform command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		serverCMD,
		runnerCMD,
		hashTokenCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serverCMD = cli.Command{
		Name:        "server",
		Usage:       "run the API server",
		Action:      serverAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the HTTP API with the bot manager`,
	}
	runnerCMD = cli.Command{
		Name:        "runner",
		Usage:       "run bots headless",
		Action:      runnerAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Start active bots without the HTTP API`,
	}
	hashTokenCMD = cli.Command{
		Name:        "hashtoken",
		Usage:       "hash an API token",
		Action:      hashTokenAction,
		ArgsUsage:   "<token>",
		Flags:       []cli.Flag{},
		Description: `Print the bcrypt hash for API_TOKEN_HASH`,
	}
)

func setupLogging() {
	config := database.GetConfig()

	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if config.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

// buildManager connects the database and wires the shared dependency graph.
func buildManager() (*manager.Manager, *portfolio.Ledger, marketdata.Provider, error) {
	if err := database.Init(); err != nil {
		return nil, nil, nil, err
	}

	ledger := portfolio.NewLedger(
		repository.NewPortfolioRepository(),
		repository.NewPositionRepository(),
		repository.NewTradeRepository(),
	)
	bots := repository.NewBotRepository()
	market := marketdata.FromEnv()

	m := manager.New(bots, ledger, bot.Deps{
		Bots:    bots,
		Signals: repository.NewSignalRepository(),
		Ledger:  ledger,
		Market:  market,
	})
	return m, ledger, market, nil
}

func serverAction(_ *cli.Context) error {
	setupLogging()
	logrus.Info("Starting server CMD")

	m, ledger, market, err := buildManager()
	if err != nil {
		logrus.WithError(err).Error("Failed to build manager")
		return err
	}

	server.New(m, ledger, market, security.NewTokenVerifier()).Start()
	return nil
}

func runnerAction(_ *cli.Context) error {
	setupLogging()
	logrus.Info("Starting runner CMD")

	m, _, _, err := buildManager()
	if err != nil {
		logrus.WithError(err).Error("Failed to build manager")
		return err
	}

	r := &runner.Runner{Manager: m}
	if err := r.Start(); err != nil {
		logrus.WithError(err).Error("Runner failed")
		return err
	}
	return nil
}

func hashTokenAction(c *cli.Context) error {
	token := c.Args().First()
	if token == "" {
		return cli.NewExitError("usage: hashtoken <token>", 1)
	}

	hash, err := security.HashToken(token)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
