package txcache

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// boolFlag is a tiny atomic latch used to tell a still-running commit
// goroutine that its caller has already moved on because the timeout won
// the race. See LiveTransaction.Commit.
type boolFlag struct {
	v atomic.Bool
}

func (f *boolFlag) set()      { f.v.Store(true) }
func (f *boolFlag) get() bool { return f.v.Load() }

// CommitHook is invoked with the live transaction at the end of every
// commit, before install, so the application can adjust retention, e.g.
// call the committing transaction's ClearRevisions/AppendRevisions via
// txn.Committing() to implement custom retention (spec §4.4, §6).
type CommitHook[K comparable, V any] func(txn *LiveTransaction[K, V]) error

/*
LiveTransaction is the reader+writer of spec §4.4: a private snapshot of the
primary store taken at Begin, a local overlay of writes, and per-key
revision bookkeeping, all mediated through Get/Set/Delete/Merge until
Commit folds the local overlay back into the cache.

Snapshotting is shallow (spec §9 "Snapshot cost"): Begin copies the entity
values visible at that instant into snapshot, but does not deep-clone them;
deep-cloning only happens at the save/load/commit boundary (clone.go). An
application that needs value-level isolation inside a transaction must copy
on write itself.
*/
type LiveTransaction[K comparable, V any] struct {
	id    uuid.UUID
	cache *Cache[K, V]

	mu sync.Mutex

	snapshot map[K]V
	local    map[K]V

	entryState     map[K]EntryState
	entryRevisions map[K][]EntityRevision[V]
	localRevisions map[K][]EntityRevision[V]

	committing *CommittingTransaction[K, V]
}

func (c *Cache[K, V]) newLiveTransaction() *LiveTransaction[K, V] {
	txn := &LiveTransaction[K, V]{
		id:             uuid.New(),
		cache:          c,
		snapshot:       make(map[K]V),
		local:          make(map[K]V),
		entryState:     make(map[K]EntryState),
		entryRevisions: make(map[K][]EntityRevision[V]),
		localRevisions: make(map[K][]EntityRevision[V]),
	}

	_ = c.store.iterate(func(key K, value V, state EntryState) bool {
		txn.snapshot[key] = value
		txn.entryState[key] = state
		txn.entryRevisions[key] = c.revisions.iter(key)
		return true
	})

	return txn
}

// ID returns the transaction's identity, used in log fields and available
// to custom hooks that want to correlate commit activity.
func (t *LiveTransaction[K, V]) ID() uuid.UUID {
	return t.id
}

// Committing returns the staging transaction threaded through hooks during
// Commit. Outside of a commit in progress it returns nil.
func (t *LiveTransaction[K, V]) Committing() *CommittingTransaction[K, V] {
	return t.committing
}

func (t *LiveTransaction[K, V]) touch(key K) {
	now := time.Now()
	state := t.entryState[key]
	t.entryState[key] = state.touched(now, t.cache.opts.ttl)
}

// Get returns the entity visible to the transaction: the local overlay if
// the key has been written this transaction, else the value observed in the
// snapshot taken at Begin, else ok=false.
func (t *LiveTransaction[K, V]) Get(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if value, ok := t.local[key]; ok {
		t.touch(key)
		return value, true
	}
	if value, ok := t.snapshot[key]; ok {
		t.touch(key)
		return value, true
	}
	var zero V
	return zero, false
}

// Set writes value to both the local overlay and the snapshot view, so a
// subsequent Get in the same transaction observes it (spec §8 property 2).
// Set does not append a revision by itself; commit assigns revisions.
func (t *LiveTransaction[K, V]) Set(key K, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.local[key] = value
	t.snapshot[key] = value
	t.touch(key)
}

// Delete removes key from both the snapshot view and the local overlay. It
// is scoped to the transaction only: it does not remove the key from the
// primary store at commit time (spec §9 Open Questions).
func (t *LiveTransaction[K, V]) Delete(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.snapshot, key)
	delete(t.local, key)
	_, inSnapshot := t.snapshot[key]
	_, inLocal := t.local[key]
	return !inSnapshot && !inLocal
}

// Merge resolves incoming against the transaction's current value for key
// using the cache's configured EntityMergeStrategy, writes the merged
// result, and appends it (with incoming.Revision) to the key's local
// revisions.
func (t *LiveTransaction[K, V]) Merge(key K, incoming EntityRevision[V]) (V, error) {
	current, _ := t.Get(key)

	merged, err := t.cache.opts.entityMergeStrategy(key, incoming, current, t)
	if err != nil {
		var zero V
		return zero, wrap(err, "merge")
	}
	if isNilish(merged) {
		var zero V
		return zero, wrap(ErrMergeProducedUndefined, "merge")
	}

	t.Set(key, merged)

	t.mu.Lock()
	t.localRevisions[key] = append(t.localRevisions[key], EntityRevision[V]{
		Entity:   merged,
		Revision: incoming.Revision,
		Context:  incoming.Context,
	})
	t.mu.Unlock()

	t.cache.mu.Lock()
	t.cache.stats.Merges++
	t.cache.mu.Unlock()

	return merged, nil
}

// Entries iterates the transaction's snapshot view, each entity paired with
// its EntryState.
func (t *LiveTransaction[K, V]) Entries(yield func(K, V, EntryState) bool) {
	t.mu.Lock()
	snapshot := make(map[K]V, len(t.snapshot))
	for k, v := range t.snapshot {
		snapshot[k] = v
	}
	states := t.entryState
	t.mu.Unlock()

	for k, v := range snapshot {
		if !yield(k, v, states[k]) {
			return
		}
	}
}

// LocalEntries iterates only keys written locally during this transaction.
func (t *LiveTransaction[K, V]) LocalEntries(yield func(K, V) bool) {
	t.mu.Lock()
	local := make(map[K]V, len(t.local))
	for k, v := range t.local {
		local[k] = v
	}
	t.mu.Unlock()

	for k, v := range local {
		if !yield(k, v) {
			return
		}
	}
}

// EntryRevisions returns the pre-existing entry revisions for key, followed
// by this transaction's local revisions for key.
func (t *LiveTransaction[K, V]) EntryRevisions(key K) []EntityRevision[V] {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]EntityRevision[V], 0, len(t.entryRevisions[key])+len(t.localRevisions[key]))
	out = append(out, t.entryRevisions[key]...)
	out = append(out, t.localRevisions[key]...)
	return out
}

// LocalRevisions returns only the revisions produced locally for key during
// this transaction.
func (t *LiveTransaction[K, V]) LocalRevisions(key K) []EntityRevision[V] {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing := t.localRevisions[key]
	out := make([]EntityRevision[V], len(existing))
	copy(out, existing)
	return out
}

func (t *LiveTransaction[K, V]) lastLocalRevision(key K) uint64 {
	revs := t.localRevisions[key]
	if len(revs) == 0 {
		return 0
	}
	return revs[len(revs)-1].Revision
}

// nextRevision computes the next revision number for key as one past the
// higher of this transaction's own local revisions and the cache's current
// committed log. lastLocalRevision alone is wrong here: it starts at 0 for
// every fresh transaction, so deriving the commit's revision number from it
// alone would install revision 1 for the same key on every independent
// commit instead of a strictly increasing sequence (spec §8 property 3,
// scenario S4). Reading the committed log directly (cache.go's
// lastCommittedRevision) keeps this correct across transactions, and across
// a concurrent commit to the same key that lands between this transaction's
// Begin and its own Commit.
func (t *LiveTransaction[K, V]) nextRevision(key K) uint64 {
	local := t.lastLocalRevision(key)
	committed := t.cache.lastCommittedRevision(key)
	if committed > local {
		return committed + 1
	}
	return local + 1
}

// isNilish reports whether merged is a reference-shaped value (pointer, map,
// slice, channel, function, or interface) holding nil, the closest Go
// equivalent of "the merge strategy produced nothing" for an arbitrary V
// (spec §4.4's MergeProducedUndefined).
func isNilish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// CommitOptions configures a single Commit call.
type CommitOptions struct {
	// Timeout bounds how long Commit may run before it is abandoned and
	// reported as ErrCommitTimeout, with nothing installed. The zero value
	// uses the 10 second default from spec §4.4; a negative value disables
	// the timeout entirely.
	Timeout time.Duration
}

const defaultCommitTimeout = 10 * time.Second

type stagedChange[K comparable, V any] struct {
	key   K
	value V
	state EntryState
}

// Commit merges every locally-written key against the cache's current
// value for that key, runs the configured merge strategies and commit
// hook, then atomically installs the result into the primary store, LRU
// tier, and revision log (spec §4.4).
//
// The commit body runs on its own goroutine so a hung user hook (entity
// merge strategy or CommitHook) cannot block the caller past the timeout.
// If the timeout wins the race, a flag checked immediately before the
// install step suppresses it, so even though the goroutine may still run
// to completion in the background, it can never install state after Commit
// has already reported ErrCommitTimeout (spec §4.4 "Partially-staged changes
// MUST NOT be installed").
func (t *LiveTransaction[K, V]) Commit(opts CommitOptions) error {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultCommitTimeout
	}

	var timedOut boolFlag
	done := make(chan error, 1)

	go func() {
		done <- t.runCommit(&timedOut)
	}()

	if timeout < 0 {
		return <-done
	}

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		timedOut.set()
		t.cache.mu.Lock()
		t.cache.stats.Timeouts++
		t.cache.mu.Unlock()
		t.cache.logger.WithField("transaction", t.id).Warn("txcache: commit timeout")
		return wrap(ErrCommitTimeout, "commit")
	}
}

func (t *LiveTransaction[K, V]) runCommit(timedOut *boolFlag) error {
	keys := make([]K, 0, len(t.local))
	for key := range t.local {
		keys = append(keys, key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		si, sj := t.entryState[keys[i]], t.entryState[keys[j]]
		if si.LastAccessed.IsZero() {
			return false
		}
		if sj.LastAccessed.IsZero() {
			return true
		}
		return si.LastAccessed.After(sj.LastAccessed)
	})

	committing := newCommittingTransaction[K, V]()
	t.committing = committing
	defer func() { t.committing = nil }()

	staged := make([]stagedChange[K, V], 0, len(keys))

	for _, key := range keys {
		value := t.local[key]
		state := t.entryState[key]

		latest, found := t.cache.getFresh(key)
		next := t.nextRevision(key)

		var toCommit V
		if found {
			merged, err := t.cache.opts.entityMergeStrategy(key, EntityRevision[V]{Entity: value, Revision: next}, latest, t)
			if err != nil {
				return wrap(err, "commit merge")
			}
			if isNilish(merged) {
				return wrap(ErrMergeProducedUndefined, "commit merge")
			}
			toCommit = merged
		} else {
			toCommit = value
		}

		cloned, err := deepClone(toCommit)
		if err != nil {
			return wrap(err, "commit clone")
		}

		t.localRevisions[key] = append(t.localRevisions[key], EntityRevision[V]{
			Entity:   toCommit,
			Revision: next,
		})

		staged = append(staged, stagedChange[K, V]{key: key, value: cloned, state: state})

		if err := t.cache.opts.revisionMergeStrategy(key, committing, t); err != nil {
			return wrap(err, "revision merge")
		}
	}

	if t.cache.opts.commitHook != nil {
		if err := t.cache.opts.commitHook(t); err != nil {
			return wrap(err, "commit hook")
		}
	}

	if timedOut.get() {
		return wrap(ErrCommitTimeout, "commit")
	}

	entries := make([]SavedEntry[K, V], len(staged))
	for i, s := range staged {
		entries[i] = SavedEntry[K, V]{Key: s.key, Value: s.value, State: s.state}
	}

	t.cache.installCommit(entries, committing.MergedRevisions())

	t.cache.mu.Lock()
	t.cache.stats.Commits++
	t.cache.mu.Unlock()
	t.cache.logger.WithField("transaction", t.id).WithField("keys", len(staged)).Debug("txcache: commit installed")

	return nil
}
