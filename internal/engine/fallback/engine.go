// Package fallback chooses between the remote search engine and the local
// evaluator. Remote failures of any kind are absorbed: the caller always gets
// a local result instead of an error.
package fallback

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"github.com/DylanCerv/sublimacion/internal/catalog"
	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/engine"
	"github.com/DylanCerv/sublimacion/internal/engine/memory"
	"github.com/DylanCerv/sublimacion/internal/query"
)

// Fallback reasons reported in metrics and logs.
const (
	ReasonCircuitOpen = "circuit_open"
	ReasonTimeout     = "timeout"
	ReasonRemoteError = "remote_error"
	ReasonIndexBehind = "index_behind"
	ReasonTruncated   = "truncated"
)

var (
	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_searches_total",
			Help: "Total number of searches by the engine that produced the result",
		},
		[]string{"engine"},
	)
	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_search_duration_seconds",
			Help:    "Search latency by engine",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)
	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_search_fallbacks_total",
			Help: "Total number of remote searches answered locally instead",
		},
		[]string{"reason"},
	)
)

// SnapshotSource provides the snapshot remote results are aligned with.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

// IndexState reports the newest snapshot version the remote index reflects.
type IndexState interface {
	IndexedVersion() uint64
}

// Engine is an engine.SearchEngine that prefers the remote engine for
// non-trivial queries and falls back to the local one.
type Engine struct {
	remote    engine.SearchEngine
	local     engine.SearchEngine
	snapshots SnapshotSource
	index     IndexState
	breaker   *gobreaker.CircuitBreaker[[]domain.Product]
	logger    *slog.Logger
}

// New creates the selector. remote may be nil, in which case every query is
// evaluated locally. The remote engine is only asked while index reports the
// current snapshot version; a nil index skips that check.
func New(remote, local engine.SearchEngine, snapshots SnapshotSource, index IndexState, cfg BreakerConfig, logger *slog.Logger) *Engine {
	e := &Engine{
		remote:    remote,
		local:     local,
		snapshots: snapshots,
		index:     index,
		logger:    logger,
	}
	if remote != nil {
		e.breaker = newBreaker(cfg, logger)
	}
	return e
}

// Name implements engine.SearchEngine.
func (e *Engine) Name() string { return "fallback" }

// Search never returns a remote error. The all-default query skips the
// remote engine because it is answered by the snapshot itself, and so does
// any query made while the index lags behind the current snapshot. Remote
// hits are re-checked against q using the snapshot's product data.
func (e *Engine) Search(ctx context.Context, q query.Query) ([]domain.Product, error) {
	if e.remote == nil || q.IsDefault() {
		return e.searchLocal(ctx, q)
	}

	snap := e.snapshots.Current()
	if e.indexBehind(snap) {
		fallbacksTotal.WithLabelValues(ReasonIndexBehind).Inc()
		return e.searchLocal(ctx, q)
	}

	start := time.Now()
	products, err := e.breaker.Execute(func() ([]domain.Product, error) {
		return e.remote.Search(ctx, q)
	})
	if err != nil {
		reason := classify(ctx, err)
		fallbacksTotal.WithLabelValues(reason).Inc()
		e.logger.WarnContext(ctx, "remote search failed, evaluating locally",
			slog.String("engine", e.remote.Name()),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return e.searchLocal(ctx, q)
	}

	searchesTotal.WithLabelValues(e.remote.Name()).Inc()
	searchDuration.WithLabelValues(e.remote.Name()).Observe(time.Since(start).Seconds())
	return align(products, snap, q), nil
}

func (e *Engine) indexBehind(snap *catalog.Snapshot) bool {
	if e.index == nil || snap == nil {
		return false
	}
	return e.index.IndexedVersion() < snap.Version()
}

// State reports the circuit breaker state, or closed when there is no remote.
func (e *Engine) State() gobreaker.State {
	if e.breaker == nil {
		return gobreaker.StateClosed
	}
	return e.breaker.State()
}

func (e *Engine) searchLocal(ctx context.Context, q query.Query) ([]domain.Product, error) {
	start := time.Now()
	products, err := e.local.Search(ctx, q)
	searchesTotal.WithLabelValues(e.local.Name()).Inc()
	searchDuration.WithLabelValues(e.local.Name()).Observe(time.Since(start).Seconds())
	return products, err
}

func classify(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ReasonCircuitOpen
	case errors.Is(err, engine.ErrResultsTruncated):
		return ReasonTruncated
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return ReasonTimeout
	default:
		return ReasonRemoteError
	}
}

// align maps remote hits onto the snapshot: hits unknown to the snapshot
// are dropped, product data comes from the snapshot and must still match q,
// and the order is the snapshot order with featured products first. Without
// a snapshot the hits are only filtered and partitioned.
func align(hits []domain.Product, snap *catalog.Snapshot, q query.Query) []domain.Product {
	m := memory.NewMatcher(q)
	out := make([]domain.Product, 0, len(hits))
	if snap == nil {
		for i := range hits {
			if m.Match(&hits[i]) {
				out = append(out, hits[i])
			}
		}
		slices.SortStableFunc(out, byFeatured)
		return out
	}

	order := snap.OrderIndex()
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		p, ok := snap.Product(h.ID)
		if !ok {
			continue
		}
		seen[h.ID] = struct{}{}
		if !m.Match(&p) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return cmp.Compare(order[a.ID], order[b.ID])
	})
	slices.SortStableFunc(out, byFeatured)
	return out
}

func byFeatured(a, b domain.Product) int {
	switch {
	case a.Featured == b.Featured:
		return 0
	case a.Featured:
		return -1
	default:
		return 1
	}
}
