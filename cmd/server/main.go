package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/condition-suggestion-engine/internal/api"
	"github.com/condition-suggestion-engine/internal/config"
	"github.com/condition-suggestion-engine/internal/database"
	"github.com/condition-suggestion-engine/internal/domain"
	"github.com/condition-suggestion-engine/internal/feedback"
	"github.com/condition-suggestion-engine/internal/health"
	"github.com/condition-suggestion-engine/internal/logging"
	"github.com/condition-suggestion-engine/internal/repository"
	"github.com/condition-suggestion-engine/internal/service"
	"github.com/condition-suggestion-engine/pkg/oracle"
)

func main() {
	configManager, err := config.NewManagerFromFile(os.Getenv("CONDITION_ENGINE_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker(api.Version, 0)
	opts := []service.Option{service.WithAutoAddThreshold(cfg.Engine.AutoAddThreshold)}

	adapter, closeOracle := oracle.NewFromConfig(cfg, logger)
	defer closeOracle()
	if adapter != nil {
		opts = append(opts, service.WithOracle(adapter))
		checker.RegisterWithDetails("oracle", false, adapter.Check, adapter.Details)
	}

	store, err := feedback.NewStore(cfg.Feedback)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, service.WithFeedbackStore(store))
		checker.Register("feedback_store", true, func(ctx context.Context) error {
			_, err := store.Count(ctx)
			return err
		})
	}

	if cfg.Database.Enabled {
		db, err := openAuditLog(ctx, configManager, logger)
		if err != nil {
			logger.WithError(err).Warn("Analysis audit log unavailable, continuing without it")
		} else {
			defer db.Close()
			opts = append(opts, service.WithRecorder(repository.NewAnalysisRepository(db.Pool, logger)))
			checker.Register("audit_database", false, db.Health)
		}
	}

	svc := service.NewSuggestionService(logger, opts...)
	server := api.NewServer(configManager, svc, checker, logger)

	logger.WithFields(logrus.Fields{
		"host":               cfg.Server.Host,
		"port":               cfg.Server.Port,
		"oracle":             adapter != nil,
		"feedback_driver":    cfg.Feedback.Driver,
		"auto_add_threshold": cfg.Engine.AutoAddThreshold,
	}).Info("Starting condition suggestion engine")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func openAuditLog(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger) (*database.DB, error) {
	cfg := configManager.GetConfig().Database

	runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.MigrationsPath, logger)
	if err != nil {
		return nil, err
	}
	defer runner.Close()
	if err := runner.Up(); err != nil {
		return nil, err
	}

	return database.NewConnection(ctx, database.ConfigFromDomain(cfg), logger)
}
