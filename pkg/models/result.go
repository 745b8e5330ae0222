package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Result is a success/failure tagged payload as returned by the remote
// actors: {"ok": ...} or {"err": "..."}.
//
// The ok payload is sometimes a one-element container and sometimes a bare
// value. Both shapes are kept in Values; Container records which one was on
// the wire so it can be written back unchanged.
type Result[T any] struct {
	Values    []T
	Container bool
	Err       string
	ok        bool
}

// Ok wraps a bare value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Values: []T{v}, ok: true}
}

// OkContainer wraps values as a container payload.
func OkContainer[T any](vs ...T) Result[T] {
	if vs == nil {
		vs = []T{}
	}
	return Result[T]{Values: vs, Container: true, ok: true}
}

// Err builds a failed result.
func Err[T any](msg string) Result[T] {
	return Result[T]{Err: msg}
}

func (r Result[T]) IsOk() bool { return r.ok }

// Unwrap returns the single element of a container payload or the bare
// value. It reports false for failed results and empty containers.
func (r Result[T]) Unwrap() (T, bool) {
	var zero T
	if !r.ok || len(r.Values) == 0 {
		return zero, false
	}
	return r.Values[0], true
}

type resultWire struct {
	Ok  json.RawMessage `json:"ok,omitempty"`
	Err *string         `json:"err,omitempty"`
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	if !r.ok {
		msg := r.Err
		return json.Marshal(resultWire{Err: &msg})
	}
	var (
		raw []byte
		err error
	)
	switch {
	case r.Container:
		raw, err = json.Marshal(r.Values)
	case len(r.Values) > 0:
		raw, err = json.Marshal(r.Values[0])
	default:
		raw = []byte("null")
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(resultWire{Ok: raw})
}

func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	*r = Result[T]{}
	if w.Err != nil {
		r.Err = *w.Err
		return nil
	}
	if w.Ok == nil {
		return errors.New("decode result: neither ok nor err present")
	}
	r.ok = true

	raw := bytes.TrimSpace(w.Ok)
	if bytes.Equal(raw, []byte("null")) {
		r.Values = []T{}
		r.Container = true
		return nil
	}
	if len(raw) > 0 && raw[0] == '[' {
		var vs []T
		if err := json.Unmarshal(raw, &vs); err == nil {
			r.Values = vs
			r.Container = true
			return nil
		}
		// T itself may be array-shaped; fall through to a bare decode.
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode result ok: %w", err)
	}
	r.Values = []T{v}
	return nil
}
