package catalog

import (
	"context"
	"errors"

	"github.com/DylanCerv/sublimacion/internal/domain"
)

// Source loads the full catalog. Implementations wrap
// apperrors.ErrSourceUnavailable when the backing store cannot be reached or
// returns malformed data.
type Source interface {
	LoadCatalog(ctx context.Context) (*domain.Catalog, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*domain.Catalog, error)

func (f SourceFunc) LoadCatalog(ctx context.Context) (*domain.Catalog, error) { return f(ctx) }

// ErrSuperseded is returned for a load whose result was discarded because a
// newer load was issued before it finished.
var ErrSuperseded = errors.New("catalog load superseded by a newer load")
