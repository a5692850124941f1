package engine

import "sync/atomic"

// IndexTracker records the newest catalog snapshot version the remote index
// fully reflects. The zero value reports nothing indexed.
type IndexTracker struct {
	version atomic.Uint64
}

// MarkIndexed records version as indexed. Older versions never move the
// tracker backwards.
func (t *IndexTracker) MarkIndexed(version uint64) {
	for {
		cur := t.version.Load()
		if version <= cur || t.version.CompareAndSwap(cur, version) {
			return
		}
	}
}

// IndexedVersion returns the newest indexed snapshot version.
func (t *IndexTracker) IndexedVersion() uint64 {
	return t.version.Load()
}
