package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/redisqueue/domain"
	"github.com/fairyhunter13/redisqueue/internal/codec"
)

type sampleDoc struct {
	IDValue string `json:"id"`
	Count   int    `json:"count"`
}

func (d sampleDoc) ID() string { return d.IDValue }

func TestJSON_RoundTrip(t *testing.T) {
	c := codec.NewJSON[sampleDoc]()

	s, err := c.Serialize(sampleDoc{IDValue: "a", Count: 3})
	require.NoError(t, err)

	got, err := c.Deserialize(s)
	require.NoError(t, err)
	require.Equal(t, sampleDoc{IDValue: "a", Count: 3}, got)
}

func TestJSON_DeserializeInvalidPayload(t *testing.T) {
	c := codec.NewJSON[sampleDoc]()

	_, err := c.Deserialize("not json")
	require.Error(t, err)
	var derr *domain.DeserializationError
	require.ErrorAs(t, err, &derr)
}

func TestTimedPayload_RoundTrip(t *testing.T) {
	c := codec.NewTimedPayload[sampleDoc](codec.NewJSON[sampleDoc]())

	payload := domain.TimedPayload[sampleDoc]{
		Document:       sampleDoc{IDValue: "b", Count: 7},
		EnqueuedAtUnix: 1700000000000,
	}

	s, err := c.Serialize(payload)
	require.NoError(t, err)

	got, err := c.Deserialize(s)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestTimedPayload_DeserializeInvalidEnvelope(t *testing.T) {
	c := codec.NewTimedPayload[sampleDoc](codec.NewJSON[sampleDoc]())

	_, err := c.Deserialize("{broken")
	require.Error(t, err)
	var derr *domain.DeserializationError
	require.ErrorAs(t, err, &derr)
}
