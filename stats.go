package txcache

/*
Stats tracks runtime performance counters for a Cache. This is not named by
the specification, but it is not excluded by any Non-goal either, and the
teacher (tempuscache, stats.go) tracked exactly this for its non-transactional
Get/Set/evict path, extended here with commit-facing counters since this
cache's write path now goes through transactions instead of a bare Set.

hit_ratio = Hits / (Hits + Misses)

Stats fields are only ever mutated under the Cache's own mutex (see
cache.go); Cache.Stats returns a value-copy snapshot, so callers never race
against the cache's own bookkeeping.
*/
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Commits   uint64
	Merges    uint64
	Timeouts  uint64
}
