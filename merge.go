package txcache

import (
	"reflect"

	"dario.cat/mergo"
)

/*
EntityMergeStrategy resolves an incoming entity against the entity currently
visible to the transaction, per spec §4.7. It is invoked both by
LiveTransaction.Merge (against the transaction's own current value) and by
the commit loop (against the fresh primary-store value, spec §4.4 step 2).

A custom strategy that has nothing to contribute should return
ErrMergeProducedUndefined rather than a zero value, so callers can
distinguish "merged to nothing" from "merged to the zero value".
*/
type EntityMergeStrategy[K comparable, V any] func(key K, incoming EntityRevision[V], current V, txn *LiveTransaction[K, V]) (V, error)

/*
RevisionMergeStrategy decides which revisions a commit installs into the
primary revision log, by staging them into the CommittingTransaction (spec
§4.5). The default, retain-all, keeps every local revision produced for the
key during this commit.
*/
type RevisionMergeStrategy[K comparable, V any] func(key K, committing *CommittingTransaction[K, V], live *LiveTransaction[K, V]) error

/*
defaultEntityMergeStrategy is the deep-merge default of spec §4.7: for an
object-shaped value, recurse field by field, keeping the target's value
where the source doesn't differ, copying in fields unique to the source,
and replacing non-object values (including arrays/slices) wholesale.

mergo.Merge(&dst, src, mergo.WithOverride) is exactly this walk for a struct
or map: it merges src's fields into dst, overriding any dst field the
source also sets (recursing into nested structs/maps), and replaces slices
outright rather than merging them element-wise, matching "Arrays are NOT
element-wise merged" precisely.

mergo.Merge only accepts a struct or map destination; passed anything else
(a slice, a pointer, or a primitive such as int or string) it returns
ErrNotSupported. Those shapes have nothing to merge field by field anyway,
so they take the "replace wholesale" half of spec §4.7 directly: current is
only ever merged into when it is a struct or a map.
*/
func defaultEntityMergeStrategy[K comparable, V any](_ K, incoming EntityRevision[V], current V, _ *LiveTransaction[K, V]) (V, error) {
	switch reflect.ValueOf(current).Kind() {
	case reflect.Struct, reflect.Map:
		dst := current
		if err := mergo.Merge(&dst, incoming.Entity, mergo.WithOverride); err != nil {
			var zero V
			return zero, wrap(err, "default entity merge")
		}
		return dst, nil
	default:
		return incoming.Entity, nil
	}
}

// defaultRevisionMergeStrategy appends every local revision produced for key
// during this commit into the committing transaction's merged set.
func defaultRevisionMergeStrategy[K comparable, V any](key K, committing *CommittingTransaction[K, V], live *LiveTransaction[K, V]) error {
	committing.AppendRevisions(key, live.LocalRevisions(key)...)
	return nil
}
