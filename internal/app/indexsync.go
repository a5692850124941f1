package app

import (
	"context"
	"log/slog"

	"github.com/DylanCerv/sublimacion/internal/catalog"
	"github.com/DylanCerv/sublimacion/internal/engine"
)

// syncIndex bulk-indexes every snapshot loaded from the primary source until
// ctx is done, recording each indexed version in tracker. Cached and bundled
// snapshots are skipped so the index only ever holds real catalog data, and
// the tracker stays behind while they are current. Documents of deleted
// products may linger; remote results are aligned with the snapshot, which
// drops them.
func syncIndex(ctx context.Context, updates <-chan *catalog.Snapshot, indexer engine.Indexer, tracker *engine.IndexTracker, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.Origin() != catalog.OriginRemote {
				continue
			}
			if err := indexer.BulkIndex(ctx, snap.Products()); err != nil {
				logger.WarnContext(ctx, "search index sync failed",
					slog.Uint64("version", snap.Version()),
					slog.String("error", err.Error()),
				)
				continue
			}
			tracker.MarkIndexed(snap.Version())
			logger.DebugContext(ctx, "search index synced",
				slog.Uint64("version", snap.Version()),
				slog.Int("products", snap.Len()),
			)
		}
	}
}
