package txcache

/*
installToLRU pushes key/value into the LRU tier and folds any resulting
eviction into Stats. It is the façade-level bridge between the LRU tier
(lru.go, capacity-ordered retention) and the primary store (store.go,
weak-reference source of truth): eviction from the LRU tier never deletes
from the primary store directly, it only drops the strong reference the
tier held, per the PrimaryStore invariant in spec §3 that a key survives as
long as either the LRU tier or an external holder keeps it reachable.

Grounded on the teacher's evictOldest/removeElement pairing (tempuscache,
eviction.go): there, eviction deleted straight from the backing map because
tempuscache's map held the only reference there was. Here the LRU tier is a
retention hint layered on top of a store that may still resolve the key via
some other strong reference, so eviction only retires the tier's own
bookkeeping, a stat counter, and the evicted key's EntryState.RetainedLRU
flag, never the store entry itself.
*/
func (c *Cache[K, V]) installToLRU(key K, strong *V) {
	if evictedKey, evicted := c.lru.set(key, strong); evicted {
		if entry, ok := c.store.entries[evictedKey]; ok {
			entry.state.RetainedLRU = false
		}
		c.stats.Evictions++
		c.logger.WithField("key", evictedKey).Debug("txcache: lru eviction")
	}
}
