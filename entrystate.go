package txcache

import "time"

/*
EntryState is the per-key metadata the cache keeps alongside an entity.

RetainedLRU reports whether the key currently occupies a slot in the LRU
tier (a strong reference protecting the entity from weak-reference
reclamation). RetainedTTL is an advisory freshness budget: the core never
enforces it, it is only ever recorded so a configured CommitHook can
implement its own retention policy against it (spec §9 Open Questions).
LastAccessed is updated by any Get/Set/Merge that touches the key inside a
live transaction, and drives the commit loop's iteration order.
*/
type EntryState struct {
	RetainedLRU  bool
	RetainedTTL  time.Duration
	LastAccessed time.Time
}

// touched returns a copy of the state stamped with now and LRU retention on,
// the update every successful transactional touch performs.
func (s EntryState) touched(now time.Time, ttl time.Duration) EntryState {
	s.RetainedLRU = true
	s.RetainedTTL = ttl
	s.LastAccessed = now
	return s
}
