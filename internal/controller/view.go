package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DylanCerv/sublimacion/internal/catalog"
	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/engine"
	"github.com/DylanCerv/sublimacion/internal/query"
)

// Result is one published evaluation of a view's query.
type Result struct {
	Token           uint64           `json:"token"`
	Query           query.Query      `json:"query"`
	Products        []domain.Product `json:"products"`
	SnapshotVersion uint64           `json:"snapshot_version"`
	EvaluatedAt     time.Time        `json:"evaluated_at"`
}

// View holds one client's query and the latest result for it.
//
// Every change to the query, and every newly published snapshot, issues a
// new token and starts an evaluation in the background. Only the evaluation
// holding the latest token may publish; older ones are canceled and their
// results dropped, so Result never goes back to an intermediate query.
type View struct {
	search engine.SearchEngine
	store  *catalog.Store
	logger *slog.Logger

	base        context.Context
	stop        context.CancelFunc
	unsubscribe func()
	done        chan struct{}

	mu       sync.Mutex
	query    query.Query
	issued   uint64
	result   Result
	cancel   context.CancelFunc
	changed  chan struct{}
	lastUsed time.Time
}

func newView(search engine.SearchEngine, store *catalog.Store, logger *slog.Logger) *View {
	base, stop := context.WithCancel(context.Background())
	updates, unsubscribe := store.Subscribe()

	v := &View{
		search:      search,
		store:       store,
		logger:      logger,
		base:        base,
		stop:        stop,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
		query:       query.New(),
		changed:     make(chan struct{}),
		lastUsed:    time.Now(),
	}

	v.mu.Lock()
	v.issueLocked()
	v.mu.Unlock()

	go v.watch(updates)
	return v
}

// watch re-evaluates the current query whenever a snapshot is published.
func (v *View) watch(updates <-chan *catalog.Snapshot) {
	defer close(v.done)
	for {
		select {
		case <-v.base.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			v.mu.Lock()
			v.issueLocked()
			v.mu.Unlock()
		}
	}
}

// Close stops the view. Pending evaluations are canceled and never publish.
func (v *View) Close() {
	v.unsubscribe()
	v.stop()
	<-v.done
}

// Query returns the current query.
func (v *View) Query() query.Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// SetTerm replaces the search term.
func (v *View) SetTerm(term string) query.Query {
	return v.update(func(q query.Query) query.Query { return q.WithTerm(term) })
}

// ToggleCollection adds or removes a collection filter.
func (v *View) ToggleCollection(name string) query.Query {
	return v.update(func(q query.Query) query.Query { return q.ToggleCollection(name) })
}

// ToggleSize adds or removes a size filter.
func (v *View) ToggleSize(size string) query.Query {
	return v.update(func(q query.Query) query.Query { return q.ToggleSize(size) })
}

// ToggleColor adds or removes a color filter.
func (v *View) ToggleColor(color string) query.Query {
	return v.update(func(q query.Query) query.Query { return q.ToggleColor(color) })
}

// SetPriceRange replaces the price range. An invalid range leaves the
// query unchanged.
func (v *View) SetPriceRange(lo, hi int64) (query.Query, error) {
	r := query.PriceRange{Min: lo, Max: hi}
	if err := query.New().WithPriceRange(r).Validate(); err != nil {
		return v.Query(), err
	}
	return v.update(func(q query.Query) query.Query { return q.WithPriceRange(r) }), nil
}

// ClearAll drops every facet selection and resets the price range. The
// term is kept.
func (v *View) ClearAll() query.Query {
	return v.update(func(q query.Query) query.Query { return q.Cleared() })
}

func (v *View) update(fn func(query.Query) query.Query) query.Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = fn(v.query)
	v.lastUsed = time.Now()
	v.issueLocked()
	return v.query
}

// issueLocked starts an evaluation of the current query under a new token
// and cancels the previous one. Callers hold v.mu.
func (v *View) issueLocked() {
	if v.base.Err() != nil {
		return
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.issued++
	token, q := v.issued, v.query

	ctx, cancel := context.WithCancel(v.base)
	v.cancel = cancel
	go v.evaluate(ctx, token, q)
}

func (v *View) evaluate(ctx context.Context, token uint64, q query.Query) {
	var version uint64
	if snap := v.store.Current(); snap != nil {
		version = snap.Version()
	}

	products, err := v.search.Search(ctx, q)

	v.mu.Lock()
	defer v.mu.Unlock()

	if token != v.issued || v.base.Err() != nil {
		viewEvaluationsTotal.WithLabelValues("superseded").Inc()
		return
	}
	if err != nil {
		viewEvaluationsTotal.WithLabelValues("failed").Inc()
		v.logger.Warn("view evaluation failed",
			slog.Uint64("token", token),
			slog.String("error", err.Error()),
		)
		products = []domain.Product{}
	} else {
		viewEvaluationsTotal.WithLabelValues("published").Inc()
	}
	if products == nil {
		products = []domain.Product{}
	}

	v.result = Result{
		Token:           token,
		Query:           q,
		Products:        products,
		SnapshotVersion: version,
		EvaluatedAt:     time.Now().UTC(),
	}
	close(v.changed)
	v.changed = make(chan struct{})
}

// Result returns the latest published result. It may lag behind Query
// while an evaluation is running; use Settle to wait for it.
func (v *View) Result() Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

// Settle waits until the evaluation of the latest issued token has been
// published and returns its result.
func (v *View) Settle(ctx context.Context) (Result, error) {
	for {
		v.mu.Lock()
		if v.result.Token == v.issued {
			res := v.result
			v.lastUsed = time.Now()
			v.mu.Unlock()
			return res, nil
		}
		changed := v.changed
		v.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

func (v *View) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastUsed
}
