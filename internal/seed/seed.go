// Package seed loads a catalog into empty repositories.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/repository"
)

// namespace scopes the deterministic record IDs so re-seeding a fresh
// database always yields the same UUIDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sublimacion/catalog"))

// Result counts the records a Run inserted.
type Result struct {
	Products    int
	Collections int
	Skipped     bool
}

// ID maps a dataset ID onto the stable UUID the record is stored under.
func ID(kind, id string) string {
	return uuid.NewSHA1(namespace, []byte(kind+":"+id)).String()
}

// Run inserts cat into the repositories unless products already exist.
// Collections go first so every seeded product resolves. Catalog order is
// preserved because the store assigns positions in insertion order.
func Run(ctx context.Context, products repository.ProductRepository, collections repository.CollectionRepository, cat *domain.Catalog, logger *slog.Logger) (Result, error) {
	existing, err := products.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "catalog already seeded", slog.Int("products", len(existing)))
		return Result{Skipped: true}, nil
	}

	var res Result
	now := time.Now().UTC()

	for _, c := range cat.Collections {
		c.ID = ID("collection", c.ID)
		c.CreatedAt, c.UpdatedAt = now, now
		if err := collections.Create(ctx, &c); err != nil {
			return res, fmt.Errorf("seed collection %q: %w", c.Name, err)
		}
		res.Collections++
	}

	for _, p := range cat.Products {
		p = p.Clone()
		p.ID = ID("product", p.ID)
		p.CreatedAt, p.UpdatedAt = now, now
		if err := products.Create(ctx, &p); err != nil {
			return res, fmt.Errorf("seed product %q: %w", p.Name, err)
		}
		res.Products++
	}

	logger.InfoContext(ctx, "catalog seeded",
		slog.Int("collections", res.Collections),
		slog.Int("products", res.Products),
	)
	return res, nil
}
