package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/DylanCerv/sublimacion/internal/domain"
	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
)

const tracerName = "github.com/DylanCerv/sublimacion/internal/catalog"

// Fallback is an alternative source tried when the primary source fails.
type Fallback struct {
	Source Source
	Origin Origin
}

// Loader loads the catalog from its source and publishes it to a Store.
//
// Every call to Load takes a new token before contacting the source. A
// result is published only if its token is still the latest issued when it
// arrives; otherwise it is dropped and Load returns ErrSuperseded. A slow
// load can therefore never replace the result of a load issued after it.
type Loader struct {
	source Source
	store  *Store
	logger *slog.Logger
	now    func() time.Time

	issued atomic.Uint64

	mu        sync.Mutex // guards the fields below and the publish step
	completed uint64
	lastSnap  *Snapshot
	lastErr   error
	changed   chan struct{}
}

// NewLoader creates a loader publishing source's catalog to store.
func NewLoader(source Source, store *Store, logger *slog.Logger) *Loader {
	return &Loader{
		source:  source,
		store:   store,
		logger:  logger,
		now:     time.Now,
		changed: make(chan struct{}),
	}
}

// Load fetches the catalog and publishes it.
//
// If the source fails and fallbacks are given, they are tried in order under
// the same token and the first success is published. In that case both the
// fallback snapshot and the source error are returned, so the caller can
// serve data while still reporting the failure.
func (l *Loader) Load(ctx context.Context, fallbacks ...Fallback) (*Snapshot, error) {
	token := l.issued.Add(1)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "catalog.load")
	span.SetAttributes(attribute.Int64("catalog.load_token", int64(token)))
	defer span.End()

	start := time.Now()
	cat, err := l.source.LoadCatalog(ctx)
	loadDuration.Observe(time.Since(start).Seconds())
	if err == nil && cat == nil {
		err = apperrors.SourceUnavailable(errors.New("source returned no catalog"))
	}

	if err == nil {
		snap, pubErr := l.publish(token, cat, OriginRemote)
		if pubErr == nil {
			loadsTotal.WithLabelValues("published").Inc()
			span.SetAttributes(attribute.Int("catalog.products", snap.Len()))
			l.logOrphans(ctx, snap)
		}
		return snap, pubErr
	}

	if l.superseded(token) {
		loadsTotal.WithLabelValues("superseded").Inc()
		return nil, ErrSuperseded
	}

	loadsTotal.WithLabelValues("failed").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	l.logger.ErrorContext(ctx, "catalog load failed",
		slog.Uint64("token", token),
		slog.String("error", err.Error()),
	)

	for _, fb := range fallbacks {
		fbCat, fbErr := fb.Source.LoadCatalog(ctx)
		if fbErr == nil && fbCat == nil {
			fbErr = errors.New("fallback returned no catalog")
		}
		if fbErr != nil {
			l.logger.WarnContext(ctx, "catalog fallback unavailable",
				slog.String("origin", string(fb.Origin)),
				slog.String("error", fbErr.Error()),
			)
			continue
		}
		snap, pubErr := l.publish(token, fbCat, fb.Origin)
		if pubErr != nil {
			return nil, pubErr
		}
		loadsTotal.WithLabelValues("fallback").Inc()
		l.logger.WarnContext(ctx, "serving catalog from fallback",
			slog.String("origin", string(fb.Origin)),
			slog.Int("products", snap.Len()),
		)
		l.complete(token, snap, err)
		return snap, err
	}

	l.complete(token, nil, err)
	return nil, err
}

// Settle waits until no load is in flight and returns the outcome of the
// last one: the snapshot it published and the source error, if any.
func (l *Loader) Settle(ctx context.Context) (*Snapshot, error) {
	for {
		l.mu.Lock()
		target := l.issued.Load()
		if l.completed >= target {
			snap, err := l.lastSnap, l.lastErr
			l.mu.Unlock()
			return snap, err
		}
		changed := l.changed
		l.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Progress describes the loader at one instant.
type Progress struct {
	Issued    uint64
	Completed uint64
	// Snapshot is the last snapshot published by a completed load.
	Snapshot *Snapshot
	// Err is the source error of the last completed load.
	Err error
}

// InFlight reports whether a load issued after the last completed one is
// still running.
func (p Progress) InFlight() bool { return p.Completed < p.Issued }

// Progress returns a consistent view of the loader's counters and the
// outcome of the last completed load.
func (l *Loader) Progress() Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Progress{
		Issued:    l.issued.Load(),
		Completed: l.completed,
		Snapshot:  l.lastSnap,
		Err:       l.lastErr,
	}
}

// Issued returns the latest token handed out.
func (l *Loader) Issued() uint64 {
	return l.issued.Load()
}

func (l *Loader) superseded(token uint64) bool {
	return token != l.issued.Load()
}

// publish builds the snapshot and swaps it in unless token is stale. The
// check and the swap happen under one lock so a newer token cannot slip in
// between them.
func (l *Loader) publish(token uint64, cat *domain.Catalog, origin Origin) (*Snapshot, error) {
	snap := NewSnapshot(cat, origin, l.now().UTC())

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.superseded(token) {
		loadsTotal.WithLabelValues("superseded").Inc()
		l.logger.Debug("dropping superseded catalog load",
			slog.Uint64("token", token),
			slog.Uint64("latest", l.issued.Load()),
		)
		return nil, ErrSuperseded
	}

	version := l.store.Publish(snap)
	l.completeLocked(token, snap, nil)

	l.logger.Info("catalog snapshot published",
		slog.Uint64("version", version),
		slog.String("origin", string(origin)),
		slog.Int("products", snap.Len()),
		slog.Int("collections", len(snap.collections)),
	)
	return snap, nil
}

func (l *Loader) complete(token uint64, snap *Snapshot, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.superseded(token) {
		return
	}
	l.completeLocked(token, snap, err)
}

func (l *Loader) completeLocked(token uint64, snap *Snapshot, err error) {
	if token < l.completed {
		return
	}
	l.completed = token
	if snap != nil {
		l.lastSnap = snap
	}
	l.lastErr = err
	close(l.changed)
	l.changed = make(chan struct{})
}

func (l *Loader) logOrphans(ctx context.Context, snap *Snapshot) {
	orphans := snap.OrphanedProducts()
	if len(orphans) == 0 {
		return
	}
	ids := make([]string, len(orphans))
	for i, p := range orphans {
		ids[i] = p.ID
	}
	l.logger.WarnContext(ctx, "products reference unknown collections",
		slog.Int("count", len(orphans)),
		slog.Any("product_ids", ids),
	)
}

// IsSuperseded reports whether err means a load result was discarded.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
