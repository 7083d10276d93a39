package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/autoplan/adapter/cli"
	"github.com/felixgeelhaar/autoplan/adapter/cli/schedule"
	"github.com/felixgeelhaar/autoplan/internal/app"
	"github.com/felixgeelhaar/autoplan/pkg/config"
	"github.com/felixgeelhaar/autoplan/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.LoggerFor(cfg.LogLevel, cfg.LogFormat, cfg.AppEnv, cli.Version)
	slog.SetDefault(logger)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}

	cliApp := cli.NewApp(
		container.AutoScheduleHandler,
		container.GetScheduleHandler,
		container.GetLatestRunHandler,
		container.UpcomingOccurrencesHandler,
		container.MissedReportHandler,
	)
	cliApp.SetPlanSource(container.PlanLoader, cfg.PlanPath, cfg.HorizonDays, cfg.Location())
	cliApp.SetLocalBus(container.LocalBus)
	cliApp.SetMetrics(container.Metrics)
	cli.SetApp(cliApp)

	// Register commands
	cli.AddCommand(schedule.Cmd)

	code := 0
	if err := cli.Run(ctx); err != nil {
		code = 1
	}
	container.Close()
	os.Exit(code)
}
