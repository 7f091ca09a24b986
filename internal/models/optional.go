package models

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that may be absent. Absent values encode as JSON null.
type Optional[T any] struct {
	value T
	valid bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, valid: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// FromOK lifts a (value, ok) pair, the shape returned by the field helpers.
func FromOK[T any](v T, ok bool) Optional[T] {
	if !ok {
		return None[T]()
	}
	return Some(v)
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.valid
}

func (o Optional[T]) Valid() bool {
	return o.valid
}

func (o Optional[T]) OrElse(fallback T) T {
	if !o.valid {
		return fallback
	}
	return o.value
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
