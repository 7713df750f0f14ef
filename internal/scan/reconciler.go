package scan

import "sync"

// Class is the disposition the reconciler assigns to a scanned digest.
type Class int

const (
	// ClassNew marks content not yet in the store: import it.
	ClassNew Class = iota

	// ClassUnchanged marks content already in the store, or a second
	// copy of content seen earlier in the same walk: skip it, no write.
	ClassUnchanged
)

// Reconciler classifies scanned content digests against a snapshot of
// the digests already stored. The snapshot is read once, before any
// per-file work is dispatched, so every classification in a scan
// observes the same library state. Safe for concurrent use.
type Reconciler struct {
	mu     sync.Mutex
	stored map[string]bool // digest -> seen during this walk
	fresh  map[string]bool // digests first encountered this walk
}

// NewReconciler builds a reconciler over the stored digest set.
func NewReconciler(stored []string) *Reconciler {
	m := make(map[string]bool, len(stored))
	for _, h := range stored {
		m[h] = false
	}
	return &Reconciler{stored: m, fresh: make(map[string]bool)}
}

// Classify assigns a disposition to one scanned digest. The first
// sighting of unknown content is New; everything else is Unchanged.
func (r *Reconciler) Classify(digest string) Class {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stored[digest]; ok {
		r.stored[digest] = true
		return ClassUnchanged
	}
	if r.fresh[digest] {
		return ClassUnchanged
	}
	r.fresh[digest] = true
	return ClassNew
}

// Orphaned returns the stored digests that no scanned file produced.
// They are reported, never deleted: a missing file may simply be on an
// unmounted drive.
func (r *Reconciler) Orphaned() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var orphans []string
	for digest, seen := range r.stored {
		if !seen {
			orphans = append(orphans, digest)
		}
	}
	return orphans
}
