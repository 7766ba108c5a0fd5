package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/movie-rental/internal/app"
	"github.com/segyhp/movie-rental/internal/config"
	"github.com/segyhp/movie-rental/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger(os.Stdout).With("component", "scheduler")
	log.Info("starting rental scheduler")

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to initialize store", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	s, err := scheduler.New(a.Ledger, a.Policies, scheduler.Config{
		OverdueSpec:    cfg.Scheduler.OverdueSpec,
		ReminderSpec:   cfg.Scheduler.ReminderSpec,
		ReminderWindow: cfg.GetReminderWindow(),
	}, log)
	if err != nil {
		log.Error("failed to schedule jobs", "err", err)
		os.Exit(1)
	}

	// Start the scheduler
	s.Start()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down scheduler")
	s.Stop()
}
