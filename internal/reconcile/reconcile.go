// Package reconcile picks one authoritative payload out of the settled
// outcomes of a shard fan-out.
//
// A shard that does not hold a partition legitimately answers with an empty
// payload. That is not an error, and it must not mask a real answer from a
// later shard, so both functions scan in order and skip empties. Transport
// failures and logical absence both end up as ErrNotFound.
package reconcile

import (
	"errors"

	"kontribute/internal/shard"
	"kontribute/pkg/models"
)

var ErrNotFound = errors.New("no usable result")

// FirstUsable returns the payload of the first fulfilled outcome whose slice
// payload is non-empty. Rejected and empty outcomes are skipped.
func FirstUsable[S ~[]E, E any](outcomes []shard.Outcome[S]) (S, error) {
	for _, o := range outcomes {
		if o.IsFulfilled() && len(o.Value()) > 0 {
			return o.Value(), nil
		}
	}
	return nil, ErrNotFound
}

// FirstSuccessfulOk returns the payload of the first fulfilled outcome whose
// result is tagged ok, unwrapping a one-element container. The first ok
// outcome decides: an empty ok container yields ErrNotFound without looking
// further.
func FirstSuccessfulOk[T any](outcomes []shard.Outcome[models.Result[T]]) (T, error) {
	var zero T
	for _, o := range outcomes {
		if !o.IsFulfilled() || !o.Value().IsOk() {
			continue
		}
		v, ok := o.Value().Unwrap()
		if !ok {
			return zero, ErrNotFound
		}
		return v, nil
	}
	return zero, ErrNotFound
}
