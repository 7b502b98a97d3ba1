package codec

import (
	"encoding/json"
	"fmt"

	"github.com/fairyhunter13/redisqueue/domain"
)

// timedPayloadWire is the on-the-wire shape of a TimedPayload: the document
// itself is opaque to this package (callers supply a pluggable per-document
// codec), so it is carried as an already-serialized string rather than
// reflected into directly. This is the "capability abstraction" the core
// design notes call for in place of runtime reflection on the payload.
type timedPayloadWire struct {
	Doc   string `json:"doc"`
	TsUnx int64  `json:"ts_ms"`
}

// timedPayload composes a document codec with the enqueue timestamp to
// produce a domain.Codec[domain.TimedPayload[D]]. D's own serialization is
// delegated entirely to docCodec, keeping the core's knowledge of D limited
// to its ID() accessor.
type timedPayload[D domain.Document] struct {
	docCodec domain.Codec[D]
}

// NewTimedPayload returns the TimedPayload codec used by the queue core,
// built from a caller-supplied document codec.
func NewTimedPayload[D domain.Document](docCodec domain.Codec[D]) domain.Codec[domain.TimedPayload[D]] {
	return timedPayload[D]{docCodec: docCodec}
}

func (c timedPayload[D]) Serialize(v domain.TimedPayload[D]) (string, error) {
	docStr, err := c.docCodec.Serialize(v.Document)
	if err != nil {
		return "", &domain.SerializationError{Op: "codec.timedpayload.serialize", Err: err}
	}
	b, err := json.Marshal(timedPayloadWire{Doc: docStr, TsUnx: v.EnqueuedAtUnix})
	if err != nil {
		return "", &domain.SerializationError{Op: "codec.timedpayload.serialize", Err: err}
	}
	return string(b), nil
}

func (c timedPayload[D]) Deserialize(s string) (domain.TimedPayload[D], error) {
	var wire timedPayloadWire
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return domain.TimedPayload[D]{}, &domain.DeserializationError{Op: "codec.timedpayload.deserialize", Err: fmt.Errorf("unmarshal envelope: %w", err)}
	}
	doc, err := c.docCodec.Deserialize(wire.Doc)
	if err != nil {
		return domain.TimedPayload[D]{}, &domain.DeserializationError{Op: "codec.timedpayload.deserialize", Err: err}
	}
	return domain.TimedPayload[D]{Document: doc, EnqueuedAtUnix: wire.TsUnx}, nil
}
