package txcache

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds the cache distinguishes. Callers recover one of these
// from a returned error via errors.Is.
var (
	// ErrNotStructuredCloneable is returned by Save, Load, or a commit when a
	// value cannot be deep-cloned.
	ErrNotStructuredCloneable = errors.New("txcache: value is not structured-cloneable")

	// ErrMergeProducedUndefined is returned when an entity-merge strategy
	// yields no result.
	ErrMergeProducedUndefined = errors.New("txcache: merge strategy produced no result")

	// ErrCommitTimeout is returned when a commit loses its race against the
	// configured timeout. No changes are installed.
	ErrCommitTimeout = errors.New("txcache: commit timed out")

	// ErrPrimaryStoreInvariantViolation is returned when iteration over the
	// primary store encounters a weak reference that should have resolved
	// but did not.
	ErrPrimaryStoreInvariantViolation = errors.New("txcache: primary store invariant violation")

	// ErrRevisionStateMissing is returned when a commit needs tracked
	// EntryState for a key and finds none.
	ErrRevisionStateMissing = errors.New("txcache: revision state missing for key")
)

// wrap attaches call-site context to a sentinel error while keeping it in the
// chain for errors.Is.
func wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, context)
}
