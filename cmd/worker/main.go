// Command worker runs a single scheduler pass and exits. It is meant for cron
// style deployments where the API runs with SCHEDULER_ENABLED=false.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pennywise/internal/config"
	"pennywise/internal/logger"
	"pennywise/internal/scheduler"
	"pennywise/internal/server"
)

func main() {
	logger.Init(os.Getenv("ENV"))

	code, err := run()
	if err != nil {
		logger.Get().Errorw("worker run failed", "error", err)
		code = 1
	}
	logger.Sync()
	os.Exit(code)
}

func run() (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 1, fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := server.OpenStores(ctx, cfg)
	if err != nil {
		return 1, err
	}
	defer closeStores()

	messaging, err := server.ConnectMessaging(cfg)
	if err != nil {
		return 1, err
	}
	defer messaging.Close()

	svc := server.NewServices(stores, messaging.Notifier, cfg.DefaultAlertThreshold, messaging.Handlers...)
	result := scheduler.New(svc.Recurring, svc.Budgets, svc.Goals, cfg.SchedulerInterval).RunOnce(ctx)

	if len(result.Errors) > 0 {
		return 2, nil
	}
	return 0, nil
}
