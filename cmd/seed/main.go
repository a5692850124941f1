// Command seed loads the bundled catalog into an empty catalog database.
//
// Run: go run ./cmd/seed
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DylanCerv/sublimacion/internal/config"
	"github.com/DylanCerv/sublimacion/internal/repository/postgres"
	"github.com/DylanCerv/sublimacion/internal/seed"
	"github.com/DylanCerv/sublimacion/internal/source/bundled"
	"github.com/DylanCerv/sublimacion/pkg/database"
	"github.com/DylanCerv/sublimacion/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("catalog-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), log); err != nil {
		return err
	}

	cat, err := bundled.New().LoadCatalog(ctx)
	if err != nil {
		return err
	}
	_, err = seed.Run(ctx, postgres.NewProductRepository(pool), postgres.NewCollectionRepository(pool), cat, log)
	return err
}
