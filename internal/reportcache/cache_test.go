package reportcache

import (
	"errors"
	"testing"
	"time"

	"fleetshop/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadCachesUntilInvalidated(t *testing.T) {
	c := New(16, time.Minute)
	bus := events.NewBus(zap.NewNop())
	c.Subscribe(bus)

	calls := 0
	compute := func() (int, error) {
		calls++
		return calls * 10, nil
	}

	key := Key(1, "dashboard")
	v, err := Load(c, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = Load(c, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, calls)

	// a change in another tenant leaves the entry alone
	bus.Publish(events.Change{TenantID: 2, Entity: events.EntityJob})
	_, err = Load(c, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	bus.Publish(events.Change{TenantID: 1, Entity: events.EntityInvoice})
	v, err = Load(c, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	c := New(4, time.Minute)
	fail := errors.New("db down")

	_, err := Load(c, Key(1, "revenue"), func() (string, error) { return "", fail })
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 0, c.Len())
}

func TestInvalidateTenantPrefix(t *testing.T) {
	c := New(8, time.Minute)
	c.Put(Key(1, "a"), 1)
	c.Put(Key(1, "b", "2025-01-01"), 2)
	c.Put(Key(11, "a"), 3)

	assert.Equal(t, 2, c.InvalidateTenant(1))
	_, ok := c.Get(Key(11, "a"))
	assert.True(t, ok)
}

func TestLoadWithNilCache(t *testing.T) {
	v, err := Load[int](nil, "k", func() (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}
