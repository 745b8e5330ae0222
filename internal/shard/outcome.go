package shard

import "errors"

var errNoReason = errors.New("rejected without error")

// Outcome is the settled result of one endpoint call: either fulfilled with
// a value or rejected with an error.
type Outcome[T any] struct {
	value     T
	err       error
	fulfilled bool
}

func Fulfilled[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, fulfilled: true}
}

func Rejected[T any](err error) Outcome[T] {
	if err == nil {
		err = errNoReason
	}
	return Outcome[T]{err: err}
}

func (o Outcome[T]) IsFulfilled() bool { return o.fulfilled }

// Value is the zero value for rejected outcomes.
func (o Outcome[T]) Value() T { return o.value }

// Err is nil for fulfilled outcomes.
func (o Outcome[T]) Err() error { return o.err }

func (o Outcome[T]) Status() string {
	if o.fulfilled {
		return "fulfilled"
	}
	return "rejected"
}
