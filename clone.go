package txcache

import "github.com/mitchellh/copystructure"

/*
deepClone produces an independent copy of v, used by Save, Load, and the
per-key commit merge (spec §4.4 step 3, §4.6). It is built on
mitchellh/copystructure, which performs the same reflect-driven structural
copy spec §9's "deep-clone used by save/load/commit" calls for, and shares
that package's documented limitation: cyclic references are not supported
(spec §9, "Cyclic references in entities").

A value copystructure cannot walk (e.g. an unexported-field-only struct it
refuses to touch, or a channel/func) surfaces as ErrNotStructuredCloneable
rather than copystructure's own error, so callers only ever need to check
for the one sentinel.
*/
func deepClone[V any](v V) (V, error) {
	copied, err := copystructure.Copy(v)
	if err != nil {
		var zero V
		return zero, wrap(ErrNotStructuredCloneable, err.Error())
	}
	cloned, ok := copied.(V)
	if !ok {
		var zero V
		return zero, wrap(ErrNotStructuredCloneable, "clone changed type")
	}
	return cloned, nil
}
