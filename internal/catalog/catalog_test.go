package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/internal/engine/memory"
	"github.com/DylanCerv/sublimacion/internal/query"
	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleCatalog(names ...string) *domain.Catalog {
	c := &domain.Catalog{
		Collections: []domain.Collection{
			{ID: "c1", Name: "BMW", Slug: "bmw"},
			{ID: "c2", Name: "FORMULA UNO", Slug: "formula-uno"},
		},
	}
	for i, n := range names {
		c.Products = append(c.Products, domain.Product{
			ID:         n,
			Name:       n,
			Collection: []string{"BMW", "FORMULA UNO"}[i%2],
			BasePrice:  int64(10000 * (i + 1)),
			Sizes:      []string{"M"},
		})
	}
	return c
}

// --- Snapshot ---

func TestSnapshot_AccessorsCopy(t *testing.T) {
	snap := NewSnapshot(sampleCatalog("a", "b"), OriginRemote, time.Now())

	products := snap.Products()
	products[0].Sizes[0] = "XXL"
	products[0].Name = "changed"

	again := snap.Products()
	assert.Equal(t, "a", again[0].Name)
	assert.Equal(t, "M", again[0].Sizes[0])

	f := snap.Facets()
	f.Sizes[0] = "changed"
	assert.Equal(t, []string{"M"}, snap.Facets().Sizes)
}

func TestSnapshot_DoesNotAliasSourceCatalog(t *testing.T) {
	c := sampleCatalog("a")
	snap := NewSnapshot(c, OriginRemote, time.Now())
	c.Products[0].Name = "mutated"
	assert.Equal(t, "a", snap.Products()[0].Name)
}

func TestSnapshot_FacetsMatchProducts(t *testing.T) {
	c := sampleCatalog("a", "b")
	c.Products[1].Colors = []string{"Negro"}
	snap := NewSnapshot(c, OriginRemote, time.Now())

	assert.Equal(t, []string{"Negro"}, snap.Facets().Colors)
	assert.Equal(t, []string{"BMW", "FORMULA UNO"}, snap.Facets().Collections)
}

func TestSnapshot_FacetValuesSelectTheirProducts(t *testing.T) {
	c := sampleCatalog("a", "b")
	c.Products[0].Sizes = []string{" M", ""}
	c.Products[0].Colors = []string{"Negro "}
	c.Products[1].Sizes = []string{"M", "XL"}
	c.Products[1].Collection = " BMW"
	snap := NewSnapshot(c, OriginRemote, time.Now())

	f := snap.Facets()
	assert.Equal(t, []string{"M", "XL"}, f.Sizes)
	assert.Equal(t, []string{"Negro"}, f.Colors)
	assert.Equal(t, []string{"BMW"}, f.Collections)

	bySize := memory.Evaluate(snap.Products(), query.New().ToggleSize("M"))
	assert.Len(t, bySize, 2)
	byColor := memory.Evaluate(snap.Products(), query.New().ToggleColor("Negro"))
	require.Len(t, byColor, 1)
	assert.Equal(t, "a", byColor[0].ID)
	byCollection := memory.Evaluate(snap.Products(), query.New().ToggleCollection("BMW"))
	assert.Len(t, byCollection, 2)

	// The source catalog is left as it was.
	assert.Equal(t, []string{" M", ""}, c.Products[0].Sizes)
}

func TestSnapshot_Lookups(t *testing.T) {
	snap := NewSnapshot(sampleCatalog("a", "b", "c"), OriginRemote, time.Now())

	p, ok := snap.Product("b")
	require.True(t, ok)
	assert.Equal(t, "FORMULA UNO", p.Collection)

	_, ok = snap.Product("missing")
	assert.False(t, ok)

	col, ok := snap.CollectionBySlug("formula-uno")
	require.True(t, ok)
	assert.Equal(t, "c2", col.ID)

	_, ok = snap.Collection("nope")
	assert.False(t, ok)

	assert.Len(t, snap.ProductsInCollection("BMW"), 2)
	assert.Empty(t, snap.ProductsInCollection("UNKNOWN"))
	assert.NotNil(t, snap.ProductsInCollection("UNKNOWN"))
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, snap.OrderIndex())
}

func TestSnapshot_OrphanedProducts(t *testing.T) {
	c := sampleCatalog("a", "b")
	c.Products = append(c.Products, domain.Product{ID: "orphan", Collection: "DELETED"})
	snap := NewSnapshot(c, OriginRemote, time.Now())

	orphans := snap.OrphanedProducts()
	require.Len(t, orphans, 1)
	assert.Equal(t, "orphan", orphans[0].ID)
	assert.Equal(t, 3, snap.Len(), "orphans stay in the catalog")
}

// --- Store ---

func TestStore_PublishAssignsVersions(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Current())
	assert.Nil(t, s.Products())

	v1 := s.Publish(NewSnapshot(sampleCatalog("a"), OriginRemote, time.Now()))
	v2 := s.Publish(NewSnapshot(sampleCatalog("a", "b"), OriginRemote, time.Now()))

	assert.Equal(t, uint64(1), v1)
	assert.Equal(t, uint64(2), v2)
	assert.Equal(t, uint64(2), s.Current().Version())
	assert.Len(t, s.Products(), 2)
}

func TestStore_SubscribeReceivesLatest(t *testing.T) {
	s := NewStore()
	updates, cancel := s.Subscribe()
	defer cancel()

	s.Publish(NewSnapshot(sampleCatalog("a"), OriginRemote, time.Now()))
	s.Publish(NewSnapshot(sampleCatalog("a", "b"), OriginRemote, time.Now()))

	select {
	case snap := <-updates:
		assert.Equal(t, uint64(2), snap.Version(), "slow subscriber sees only the latest")
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore()
	updates, cancel := s.Subscribe()
	cancel()
	cancel()

	s.Publish(NewSnapshot(sampleCatalog("a"), OriginRemote, time.Now()))
	select {
	case <-updates:
		t.Fatal("unsubscribed channel received a snapshot")
	default:
	}
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := NewStore()
	s.Publish(NewSnapshot(sampleCatalog("a"), OriginRemote, time.Now()))

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 100 {
				snap := s.Current()
				assert.Equal(t, snap.Len(), len(snap.Products()))
				assert.Equal(t, snap.Len() > 1, len(snap.ProductsInCollection("FORMULA UNO")) > 0)
			}
		}(i)
	}
	for range 50 {
		s.Publish(NewSnapshot(sampleCatalog("a", "b", "c"), OriginRemote, time.Now()))
		s.Publish(NewSnapshot(sampleCatalog("a"), OriginRemote, time.Now()))
	}
	wg.Wait()
}

// --- Loader ---

// gatedSource answers each call only when the test releases it.
type gatedSource struct {
	mu    sync.Mutex
	calls []chan result
}

type result struct {
	cat *domain.Catalog
	err error
}

func (g *gatedSource) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	ch := make(chan result, 1)
	g.mu.Lock()
	g.calls = append(g.calls, ch)
	g.mu.Unlock()
	r := <-ch
	return r.cat, r.err
}

func (g *gatedSource) waitCalls(t *testing.T, n int) []chan result {
	t.Helper()
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.calls) >= n
	}, time.Second, time.Millisecond)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestLoader_Load(t *testing.T) {
	store := NewStore()
	l := NewLoader(SourceFunc(func(ctx context.Context) (*domain.Catalog, error) {
		return sampleCatalog("a", "b"), nil
	}), store, testLogger())

	snap, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OriginRemote, snap.Origin())
	assert.Same(t, snap, store.Current())
	assert.Equal(t, uint64(1), snap.Version())
}

func TestLoader_LastIssuedWins(t *testing.T) {
	store := NewStore()
	src := &gatedSource{}
	l := NewLoader(src, store, testLogger())

	type outcome struct {
		snap *Snapshot
		err  error
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	go func() { s, err := l.Load(context.Background()); first <- outcome{s, err} }()
	calls := src.waitCalls(t, 1)
	go func() { s, err := l.Load(context.Background()); second <- outcome{s, err} }()
	calls = src.waitCalls(t, 2)

	// The newer load finishes first, then the older one arrives late.
	calls[1] <- result{cat: sampleCatalog("new")}
	got := <-second
	require.NoError(t, got.err)

	calls[0] <- result{cat: sampleCatalog("old", "stale")}
	late := <-first
	assert.ErrorIs(t, late.err, ErrSuperseded)
	assert.True(t, IsSuperseded(late.err))
	assert.Nil(t, late.snap)

	assert.Equal(t, "new", store.Current().Products()[0].ID)
	assert.Equal(t, uint64(1), store.Current().Version())
}

func TestLoader_OlderArrivingFirstIsDropped(t *testing.T) {
	store := NewStore()
	src := &gatedSource{}
	l := NewLoader(src, store, testLogger())

	errs := make(chan error, 2)
	go func() { _, err := l.Load(context.Background()); errs <- err }()
	src.waitCalls(t, 1)
	go func() { _, err := l.Load(context.Background()); errs <- err }()
	calls := src.waitCalls(t, 2)

	calls[0] <- result{cat: sampleCatalog("old")}
	assert.ErrorIs(t, <-errs, ErrSuperseded)
	assert.Nil(t, store.Current(), "superseded result must not be published")

	calls[1] <- result{cat: sampleCatalog("new")}
	assert.NoError(t, <-errs)
	assert.Equal(t, "new", store.Current().Products()[0].ID)
}

func TestLoader_FailureKeepsLastGoodSnapshot(t *testing.T) {
	store := NewStore()
	fail := false
	l := NewLoader(SourceFunc(func(ctx context.Context) (*domain.Catalog, error) {
		if fail {
			return nil, apperrors.SourceUnavailable(errors.New("connection refused"))
		}
		return sampleCatalog("a"), nil
	}), store, testLogger())

	_, err := l.Load(context.Background())
	require.NoError(t, err)

	fail = true
	snap, err := l.Load(context.Background())
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Equal(t, uint64(1), store.Current().Version())
}

func TestLoader_NilCatalogIsUnavailable(t *testing.T) {
	l := NewLoader(SourceFunc(func(ctx context.Context) (*domain.Catalog, error) {
		return nil, nil
	}), NewStore(), testLogger())

	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestLoader_Fallbacks(t *testing.T) {
	down := SourceFunc(func(ctx context.Context) (*domain.Catalog, error) {
		return nil, apperrors.SourceUnavailable(errors.New("timeout"))
	})
	cacheMiss := Fallback{Origin: OriginCache, Source: SourceFunc(func(ctx context.Context) (*domain.Catalog, error) {
		return nil, errors.New("cache miss")
	})}
	bundled := Fallback{Origin: OriginFallback, Source: SourceFunc(func(ctx context.Context) (*domain.Catalog, error) {
		return sampleCatalog("bundled"), nil
	})}

	store := NewStore()
	l := NewLoader(down, store, testLogger())

	snap, err := l.Load(context.Background(), cacheMiss, bundled)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable, "source error is still reported")
	require.NotNil(t, snap)
	assert.Equal(t, OriginFallback, snap.Origin())
	assert.Same(t, snap, store.Current())
}

func TestLoader_NoFallbackLeavesStoreEmpty(t *testing.T) {
	store := NewStore()
	l := NewLoader(SourceFunc(func(ctx context.Context) (*domain.Catalog, error) {
		return nil, apperrors.SourceUnavailable(errors.New("down"))
	}), store, testLogger())

	_, err := l.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, store.Current())
}

func TestLoader_SettleWaitsForLatest(t *testing.T) {
	store := NewStore()
	src := &gatedSource{}
	l := NewLoader(src, store, testLogger())

	go func() { _, _ = l.Load(context.Background()) }()
	src.waitCalls(t, 1)
	go func() { _, _ = l.Load(context.Background()) }()
	calls := src.waitCalls(t, 2)

	settled := make(chan *Snapshot, 1)
	go func() {
		snap, err := l.Settle(context.Background())
		assert.NoError(t, err)
		settled <- snap
	}()

	calls[0] <- result{cat: sampleCatalog("old")}
	select {
	case <-settled:
		t.Fatal("settled before the latest load finished")
	case <-time.After(20 * time.Millisecond):
	}

	calls[1] <- result{cat: sampleCatalog("new")}
	select {
	case snap := <-settled:
		assert.Equal(t, "new", snap.Products()[0].ID)
	case <-time.After(time.Second):
		t.Fatal("settle did not return")
	}
}

func TestLoader_SettleHonorsContext(t *testing.T) {
	src := &gatedSource{}
	l := NewLoader(src, NewStore(), testLogger())
	go func() { _, _ = l.Load(context.Background()) }()
	calls := src.waitCalls(t, 1)
	defer func() { calls[0] <- result{cat: sampleCatalog("a")} }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.Settle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoader_SettleIdle(t *testing.T) {
	l := NewLoader(SourceFunc(func(ctx context.Context) (*domain.Catalog, error) {
		return sampleCatalog("a"), nil
	}), NewStore(), testLogger())

	snap, err := l.Settle(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, snap)

	_, _ = l.Load(context.Background())
	snap, err = l.Settle(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version())
	assert.Equal(t, uint64(1), l.Issued())
}

func TestLoader_Progress(t *testing.T) {
	src := &gatedSource{}
	l := NewLoader(src, NewStore(), testLogger())

	p := l.Progress()
	assert.False(t, p.InFlight())
	assert.Zero(t, p.Issued)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = l.Load(context.Background())
	}()
	calls := src.waitCalls(t, 1)

	p = l.Progress()
	assert.True(t, p.InFlight())
	assert.Nil(t, p.Snapshot)

	calls[0] <- result{err: errors.New("down")}
	<-done

	p = l.Progress()
	assert.False(t, p.InFlight())
	assert.Equal(t, uint64(1), p.Completed)
	assert.Error(t, p.Err)
}
