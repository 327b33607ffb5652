package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/audit"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/domain"
	"marketplace/internal/logger"
	"marketplace/internal/metrics"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/validation"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// main is the composition root: it selects a storage backend, wires the
// audit trail, metrics collector, validators, and services, and seeds the
// bootstrap administrator. The interactive session loop is an external
// collaborator that embeds these services.
func main() {
	// Best effort; viper falls back to process env and defaults.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting marketplace catalog core",
		zap.String("env", cfg.App.Env),
		zap.String("backend", cfg.Storage.Backend),
	)

	collector := metrics.NewCollector()
	trail := audit.New(log)

	products, users, db, err := openStores(cfg, trail, log)
	if err != nil {
		log.Fatal("Failed to open storage backend", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	productValidator := validation.NewProductValidator(trail)
	userValidator := validation.NewUserValidator(trail)

	catalog := service.NewCatalogService(products, trail, collector, productValidator, log)
	auth := service.NewAuthService(users, trail, collector, userValidator, log)

	ctx := context.Background()
	if err := seedAdmin(ctx, auth, users, cfg.Admin, log); err != nil {
		log.Fatal("Failed to seed administrator", zap.Error(err))
	}

	count, err := catalog.Count(ctx)
	if err != nil {
		log.Fatal("Failed to count products", zap.Error(err))
	}

	log.Info("Catalog core ready",
		zap.Int64("products", count),
		zap.Int("audit_events", trail.Len()),
	)
}

// openStores constructs the repository pair for the configured backend. The
// returned *sql.DB is non-nil only for postgres.
func openStores(cfg *config.Config, trail *audit.Trail, log *zap.Logger) (repository.ProductRepository, repository.UserRepository, *sql.DB, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return repository.NewMemoryProductRepository(), repository.NewMemoryUserRepository(), nil, nil

	case "file":
		products, err := repository.NewFileProductRepository(cfg.Storage.ProductFile)
		if err != nil {
			return nil, nil, nil, err
		}
		users, err := repository.NewFileUserRepository(cfg.Storage.UserFile)
		if err != nil {
			return nil, nil, nil, err
		}
		return products, users, nil, nil

	case "postgres":
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.RunMigrations(db, "migrations", log); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		trail.WithSink(repository.NewPostgresAuditRepository(db))
		return repository.NewPostgresProductRepository(db), repository.NewPostgresUserRepository(db), db, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// seedAdmin registers the bootstrap ADMIN account unless it already exists
// or no admin password is configured.
func seedAdmin(ctx context.Context, auth *service.AuthService, users repository.UserRepository, cfg config.AdminConfig, log *zap.Logger) error {
	if cfg.Password == "" {
		log.Warn("No admin password configured, skipping administrator seed")
		return nil
	}

	if _, err := users.FindByUsername(ctx, cfg.Username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	admin, err := auth.Register(ctx, &domain.User{
		Username: cfg.Username,
		Password: cfg.Password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return err
	}

	log.Info("Seeded administrator", zap.Int64("user_id", admin.ID), zap.String("username", admin.Username))
	return nil
}
