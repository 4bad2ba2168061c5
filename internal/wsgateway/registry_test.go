package wsgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionRegistry_AddRemove(t *testing.T) {
	registry := NewConnectionRegistry(0)
	conn := NewConnection("conn-1", "user-1", nil)

	require.NoError(t, registry.Add(conn))

	retrieved, exists := registry.Get("conn-1")
	require.True(t, exists)
	assert.Equal(t, "conn-1", retrieved.ID)
	assert.Equal(t, 1, registry.Count())
	assert.Equal(t, 1, registry.CountByUser("user-1"))

	assert.True(t, registry.Remove("conn-1"))
	assert.False(t, registry.Remove("conn-1"), "second remove is a no-op")

	_, exists = registry.Get("conn-1")
	assert.False(t, exists)
	assert.Equal(t, 0, registry.Count())
	assert.Equal(t, 0, registry.CountByUser("user-1"))
}

func TestConnectionRegistry_Capacity(t *testing.T) {
	registry := NewConnectionRegistry(2)

	require.NoError(t, registry.Add(NewConnection("conn-1", "user-1", nil)))
	require.NoError(t, registry.Add(NewConnection("conn-2", "user-1", nil)))
	assert.ErrorIs(t, registry.Add(NewConnection("conn-3", "user-2", nil)), ErrTooManyConnections)

	registry.Remove("conn-1")
	assert.NoError(t, registry.Add(NewConnection("conn-3", "user-2", nil)))
	assert.Len(t, registry.GetAll(), 2)
}

func TestConnectionRegistry_Subscribers(t *testing.T) {
	registry := NewConnectionRegistry(0)

	all := NewConnection("all", "user-1", nil)
	spy := NewConnection("spy", "user-2", nil)
	spy.Subscribe("SPY")
	qqq := NewConnection("qqq", "user-3", nil)
	qqq.Subscribe("QQQ", "TQQQ")

	for _, c := range []*Connection{all, spy, qqq} {
		require.NoError(t, registry.Add(c))
	}

	ids := func(conns []*Connection) []string {
		out := make([]string, 0, len(conns))
		for _, c := range conns {
			out = append(out, c.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"all", "spy"}, ids(registry.Subscribers("SPY")))
	assert.ElementsMatch(t, []string{"all", "qqq"}, ids(registry.Subscribers("TQQQ")))
	assert.ElementsMatch(t, []string{"all"}, ids(registry.Subscribers("IWM")))
}
