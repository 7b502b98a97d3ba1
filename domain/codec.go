package domain

// Codec serializes/deserializes values of type T to/from the string
// representation stored in Redis. Implementations must be stable:
// Deserialize(Serialize(v)) == v for all v. The core keeps two codec
// instances — one parameterized by TimedPayload[D], one by StateInfo.
type Codec[T any] interface {
	Serialize(v T) (string, error)
	Deserialize(s string) (T, error)
}
