package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
)

func TestPublishFansOut(t *testing.T) {
	b := NewBroadcaster(4, nil)
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	require.NoError(t, b.Publish(model.MarketState{Seq: 1}))

	assert.Equal(t, uint64(1), (<-ch1).Seq)
	assert.Equal(t, uint64(1), (<-ch2).Seq)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	drops := 0
	b := NewBroadcaster(1, func() { drops++ })
	ch, cancel := b.Subscribe()
	defer cancel()

	require.NoError(t, b.Publish(model.MarketState{Seq: 1}))
	require.NoError(t, b.Publish(model.MarketState{Seq: 2}))

	assert.Equal(t, 1, drops)
	assert.Equal(t, uint64(1), (<-ch).Seq)
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster(1, nil)
	ch, cancel := b.Subscribe()
	cancel()
	cancel() // idempotent

	_, ok := <-ch
	assert.False(t, ok)

	require.NoError(t, b.Publish(model.MarketState{Seq: 1}), "publish after cancel is fine")
}

func TestCloseStopsPublishing(t *testing.T) {
	b := NewBroadcaster(1, nil)
	ch, _ := b.Subscribe()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, b.Publish(model.MarketState{}), ErrClosed)

	late, cancel := b.Subscribe()
	defer cancel()
	_, ok = <-late
	assert.False(t, ok, "subscriptions after close are closed immediately")
}
