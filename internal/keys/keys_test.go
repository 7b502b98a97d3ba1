package keys_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/redisqueue/internal/keys"
)

func TestScheme_DerivedNamesEmbedQueueAndID(t *testing.T) {
	s := keys.New("orders")

	require.Equal(t, "q:orders:content:abc", s.Content("abc"))
	require.Equal(t, "q:orders:state:abc", s.State("abc"))
	require.Equal(t, "q:orders:lock:abc", s.Lock("abc"))
	require.Equal(t, "q:orders:statech:abc", s.StateChannel("abc"))
	require.Equal(t, "q:orders:ready", s.Ready())
	require.Equal(t, "q:orders:inflight", s.Inflight())
	require.Equal(t, "q:orders:state:*", s.StatePattern())
}

func TestScheme_DifferentQueuesNeverCollide(t *testing.T) {
	a := keys.New("orders")
	b := keys.New("shipments")

	require.NotEqual(t, a.Ready(), b.Ready())
	require.NotEqual(t, a.State("x"), b.State("x"))
}

func TestScheme_IDFromStateKey(t *testing.T) {
	s := keys.New("orders")

	id, ok := s.IDFromStateKey(s.State("abc-123"))
	require.True(t, ok)
	require.Equal(t, "abc-123", id)

	_, ok = s.IDFromStateKey("q:other:state:abc-123")
	require.False(t, ok)

	_, ok = s.IDFromStateKey("q:orders:state:")
	require.False(t, ok)

	_, ok = s.IDFromStateKey("garbage")
	require.False(t, ok)
}
