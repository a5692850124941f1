// Package controller owns the catalog lifecycle and the per-session query
// views evaluated against it.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DylanCerv/sublimacion/internal/catalog"
	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/engine"
	"github.com/DylanCerv/sublimacion/internal/facet"
	"github.com/DylanCerv/sublimacion/internal/query"
)

// State is the lifecycle state of the catalog.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateRefreshing State = "refreshing"
	StateError      State = "error"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("controller already started")

// SnapshotSaver keeps the last catalog loaded from the primary source.
type SnapshotSaver interface {
	Save(ctx context.Context, cat *domain.Catalog) error
}

// Config tunes the controller.
type Config struct {
	// DegradeGracefully publishes the first available Fallbacks entry when
	// the primary source fails, instead of leaving the catalog empty or stale.
	DegradeGracefully bool
	Fallbacks         []catalog.Fallback

	// Cache, when set, receives every catalog loaded from the primary source.
	Cache SnapshotSaver

	// RefreshInterval reloads the catalog periodically; 0 disables it.
	RefreshInterval time.Duration
}

// Controller drives catalog loads and hands out query views.
//
// Its State is derived from the loader on every call: no load issued is
// Idle, a load in flight is Loading (nothing completed yet) or Refreshing,
// and otherwise the outcome of the latest load decides between Ready and
// Error. Superseded loads therefore never show up in the state.
type Controller struct {
	loader *catalog.Loader
	store  *catalog.Store
	search engine.SearchEngine
	cfg    Config
	logger *slog.Logger

	started atomic.Bool
	wg      sync.WaitGroup
}

// New creates a controller. search evaluates view queries; it is expected
// to read from store.
func New(loader *catalog.Loader, store *catalog.Store, search engine.SearchEngine, cfg Config, logger *slog.Logger) *Controller {
	return &Controller{
		loader: loader,
		store:  store,
		search: search,
		cfg:    cfg,
		logger: logger,
	}
}

// Start performs the first load and, when configured, starts the periodic
// refresh, which runs until ctx is done. A load error is returned but the
// controller stays usable: a later Refresh may still succeed.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	err := c.refresh(ctx, "start")

	if c.cfg.RefreshInterval > 0 {
		c.wg.Add(1)
		go c.refreshLoop(ctx)
	}
	return err
}

// Wait blocks until the periodic refresh has stopped.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Refresh reloads the catalog and returns once the latest issued load has
// completed, so a caller that just wrote to the source observes its write.
// The error is the source error of that load, even when a fallback snapshot
// was published.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refresh(ctx, "manual")
}

func (c *Controller) refresh(ctx context.Context, trigger string) error {
	var fallbacks []catalog.Fallback
	if c.cfg.DegradeGracefully {
		fallbacks = c.cfg.Fallbacks
	}

	snap, err := c.loader.Load(ctx, fallbacks...)
	if catalog.IsSuperseded(err) {
		// A newer load owns the outcome; wait for it.
		snap, err = c.loader.Settle(ctx)
	}

	if err != nil {
		refreshesTotal.WithLabelValues(trigger, "failed").Inc()
		return err
	}
	refreshesTotal.WithLabelValues(trigger, "ok").Inc()

	if c.cfg.Cache != nil && snap != nil && snap.Origin() == catalog.OriginRemote {
		if cerr := c.cfg.Cache.Save(ctx, snap.Catalog()); cerr != nil {
			c.logger.WarnContext(ctx, "failed to cache catalog snapshot", slog.String("error", cerr.Error()))
		}
	}
	return nil
}

func (c *Controller) refreshLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.refresh(ctx, "periodic"); err != nil && ctx.Err() == nil {
				c.logger.WarnContext(ctx, "periodic catalog refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return stateOf(c.loader.Progress())
}

func stateOf(p catalog.Progress) State {
	switch {
	case p.Issued == 0:
		return StateIdle
	case p.InFlight() && p.Completed == 0:
		return StateLoading
	case p.InFlight():
		return StateRefreshing
	case p.Err != nil:
		return StateError
	default:
		return StateReady
	}
}

// Snapshot returns the current catalog snapshot, or nil before the first
// successful publish.
func (c *Controller) Snapshot() *catalog.Snapshot {
	return c.store.Current()
}

// Facets returns the facets of the current snapshot.
func (c *Controller) Facets() facet.Facets {
	if snap := c.store.Current(); snap != nil {
		return snap.Facets()
	}
	return facet.Derive(nil)
}

// AvailableSizes returns the sorted unique sizes of the current catalog.
func (c *Controller) AvailableSizes() []string {
	return c.Facets().Sizes
}

// AvailableColors returns the sorted unique colors of the current catalog.
func (c *Controller) AvailableColors() []string {
	return c.Facets().Colors
}

// Status is a point-in-time summary of the catalog lifecycle.
type Status struct {
	State       State          `json:"state"`
	Origin      catalog.Origin `json:"origin,omitempty"`
	Version     uint64         `json:"version"`
	LoadedAt    *time.Time     `json:"loaded_at,omitempty"`
	Products    int            `json:"products"`
	Collections int            `json:"collections"`
	LastError   string         `json:"last_error,omitempty"`
	Engine      string         `json:"engine"`
}

// Status reports the lifecycle state and the snapshot being served.
func (c *Controller) Status() Status {
	p := c.loader.Progress()
	st := Status{State: stateOf(p), Engine: c.search.Name()}
	if p.Err != nil {
		st.LastError = p.Err.Error()
	}
	if snap := c.store.Current(); snap != nil {
		loadedAt := snap.LoadedAt()
		st.Origin = snap.Origin()
		st.Version = snap.Version()
		st.LoadedAt = &loadedAt
		st.Products = snap.Len()
		st.Collections = len(snap.Collections())
	}
	return st
}

// NewView creates a query view evaluated with the controller's engine. The
// caller must Close it.
func (c *Controller) NewView() *View {
	return newView(c.search, c.store, c.logger)
}

// Search evaluates q once against the current snapshot. The result is never
// nil.
func (c *Controller) Search(ctx context.Context, q query.Query) ([]domain.Product, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	products, err := c.search.Search(ctx, q.Normalize())
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}
