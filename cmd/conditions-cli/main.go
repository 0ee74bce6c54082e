package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/condition-suggestion-engine/internal/cli"
	"github.com/condition-suggestion-engine/internal/config"
	"github.com/condition-suggestion-engine/internal/feedback"
	"github.com/condition-suggestion-engine/internal/logging"
	"github.com/condition-suggestion-engine/internal/service"
	"github.com/condition-suggestion-engine/pkg/oracle"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (default: search ./config.yaml)")
	flag.Parse()

	if err := run(*configFile, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, args []string) error {
	configManager, err := config.NewManagerFromFile(configFile)
	if err != nil {
		return err
	}
	if err := configManager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := configManager.GetConfig()

	// Results go to stdout, so logs go to stderr.
	cfg.Logging.Output = "stderr"
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []service.Option{service.WithAutoAddThreshold(cfg.Engine.AutoAddThreshold)}

	adapter, closeOracle := oracle.NewFromConfig(cfg, logger)
	defer closeOracle()
	if adapter != nil {
		opts = append(opts, service.WithOracle(adapter))
	}

	store, err := feedback.NewStore(cfg.Feedback)
	if err != nil {
		return fmt.Errorf("opening feedback store: %w", err)
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, service.WithFeedbackStore(store))
	}

	svc := service.NewSuggestionService(logger, opts...)
	return cli.New(svc, store, os.Stdin, os.Stdout).Run(ctx, args)
}
