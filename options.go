package txcache

import (
	"time"

	"github.com/sirupsen/logrus"
)

/*
Option configures a Cache at construction time. This is the teacher's
functional-options pattern (tempuscache's Option func(*Cache), options.go),
generalized to one option per CacheOptions field named in spec §6:
LRU capacity, default TTL, the three pluggable hooks, and the logger.

    cache := New[string, User](
        WithLRUCapacity[string, User](5000),
        WithTTL[string, User](30*time.Second),
        WithCommitHook[string, User](auditCommits),
    )

Adding a new option never changes New's signature, and options compose in
any order since each only ever touches the field(s) it owns.
*/
type Option[K comparable, V any] func(*options[K, V])

type options[K comparable, V any] struct {
	lruCapacity           int
	ttl                   time.Duration
	entityMergeStrategy   EntityMergeStrategy[K, V]
	revisionMergeStrategy RevisionMergeStrategy[K, V]
	commitHook            CommitHook[K, V]
	logger                *logrus.Logger
}

const (
	defaultLRUCapacity = 10000
	defaultTTL         = 60 * time.Second
)

func defaultOptions[K comparable, V any]() options[K, V] {
	return options[K, V]{
		lruCapacity:           defaultLRUCapacity,
		ttl:                   defaultTTL,
		entityMergeStrategy:   defaultEntityMergeStrategy[K, V],
		revisionMergeStrategy: defaultRevisionMergeStrategy[K, V],
		logger:                logrus.StandardLogger(),
	}
}

// WithLRUCapacity sets expiration.lru, the LRU tier's capacity (default
// 10000). A negative value is clamped to 0.
func WithLRUCapacity[K comparable, V any](capacity int) Option[K, V] {
	return func(o *options[K, V]) {
		if capacity < 0 {
			capacity = 0
		}
		o.lruCapacity = capacity
	}
}

// WithTTL sets expiration.ttl, the advisory freshness budget stamped into
// new EntryStates (default 60s). The core never enforces it; see
// CommitHook.
func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(o *options[K, V]) {
		o.ttl = ttl
	}
}

// WithEntityMergeStrategy overrides the default deep-merge strategy.
func WithEntityMergeStrategy[K comparable, V any](strategy EntityMergeStrategy[K, V]) Option[K, V] {
	return func(o *options[K, V]) {
		o.entityMergeStrategy = strategy
	}
}

// WithRevisionMergeStrategy overrides the default retain-all strategy.
func WithRevisionMergeStrategy[K comparable, V any](strategy RevisionMergeStrategy[K, V]) Option[K, V] {
	return func(o *options[K, V]) {
		o.revisionMergeStrategy = strategy
	}
}

// WithCommitHook registers the hook invoked with the live transaction at the
// end of every commit, before install, so the application can adjust
// retention (e.g. clear/append revisions via the committing transaction).
func WithCommitHook[K comparable, V any](hook CommitHook[K, V]) Option[K, V] {
	return func(o *options[K, V]) {
		o.commitHook = hook
	}
}

// WithLogger overrides the logger used for lifecycle events. The zero value
// disables logging.
func WithLogger[K comparable, V any](logger *logrus.Logger) Option[K, V] {
	return func(o *options[K, V]) {
		o.logger = logger
	}
}
