package txcache

import "github.com/google/uuid"

/*
CommittingTransaction is the staging area described in spec §4.5: a
write-only channel threaded through the configured RevisionMergeStrategy and
CommitHook during LiveTransaction.Commit. It accumulates the revision set
that will be installed into the primary revision log once the commit
finishes; it is never handed to a reader and has no Get/Set of its own.
*/
type CommittingTransaction[K comparable, V any] struct {
	id     uuid.UUID
	merged map[K][]EntityRevision[V]
}

func newCommittingTransaction[K comparable, V any]() *CommittingTransaction[K, V] {
	return &CommittingTransaction[K, V]{
		id:     uuid.New(),
		merged: make(map[K][]EntityRevision[V]),
	}
}

// MergedRevisions returns the current set of revisions staged for
// installation, keyed by the key they belong to.
func (c *CommittingTransaction[K, V]) MergedRevisions() map[K][]EntityRevision[V] {
	out := make(map[K][]EntityRevision[V], len(c.merged))
	for k, revs := range c.merged {
		cp := make([]EntityRevision[V], len(revs))
		copy(cp, revs)
		out[k] = cp
	}
	return out
}

// ClearRevisions drops all staged revisions for key.
func (c *CommittingTransaction[K, V]) ClearRevisions(key K) {
	delete(c.merged, key)
}

// AppendRevisions appends to the staged revisions for key, creating the
// entry if absent.
func (c *CommittingTransaction[K, V]) AppendRevisions(key K, revisions ...EntityRevision[V]) {
	if len(revisions) == 0 {
		return
	}
	c.merged[key] = append(c.merged[key], revisions...)
}
