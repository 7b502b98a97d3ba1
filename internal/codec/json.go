// Package codec provides the default JSON-backed domain.Codec
// implementation used for both TimedPayload and StateInfo values.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/fairyhunter13/redisqueue/domain"
)

// JSON is a domain.Codec[T] backed by encoding/json. It is stable:
// Deserialize(Serialize(v)) reproduces v field-for-field for any JSON-
// marshalable T.
type JSON[T any] struct{}

// NewJSON returns a JSON codec for T.
func NewJSON[T any]() JSON[T] { return JSON[T]{} }

// Serialize implements domain.Codec.
func (JSON[T]) Serialize(v T) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", &domain.SerializationError{Op: "codec.json.serialize", Err: err}
	}
	return string(b), nil
}

// Deserialize implements domain.Codec.
func (JSON[T]) Deserialize(s string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return v, &domain.DeserializationError{Op: "codec.json.deserialize", Err: fmt.Errorf("unmarshal: %w", err)}
	}
	return v, nil
}
