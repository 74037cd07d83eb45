package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func TestAddKeepsSidesSorted(t *testing.T) {
	b := New(8)
	b.Add(enum.SideBid, 9998, 30)
	b.Add(enum.SideBid, 9999, 50)
	b.Add(enum.SideBid, 9995, 10)
	b.Add(enum.SideAsk, 10002, 60)
	b.Add(enum.SideAsk, 10001, 40)

	bids := b.SnapshotSide(enum.SideBid)
	require.Len(t, bids, 3)
	assert.Equal(t, model.Price(9999), bids[0].Price)
	assert.Equal(t, model.Price(9998), bids[1].Price)
	assert.Equal(t, model.Price(9995), bids[2].Price)

	asks := b.SnapshotSide(enum.SideAsk)
	require.Len(t, asks, 2)
	assert.Equal(t, model.Price(10001), asks[0].Price)
	assert.Equal(t, model.Price(10002), asks[1].Price)
}

func TestAddMergesSamePrice(t *testing.T) {
	b := New(4)
	b.Add(enum.SideBid, 9999, 50)
	b.Add(enum.SideBid, 9999, 20)

	require.Equal(t, 1, b.Depth(enum.SideBid))
	best, ok := b.Best(enum.SideBid)
	require.True(t, ok)
	assert.Equal(t, model.Quantity(70), best.Volume)
}

func TestBestAndSpread(t *testing.T) {
	b := New(4)
	_, ok := b.Spread()
	assert.False(t, ok)
	_, ok = b.Best(enum.SideBid)
	assert.False(t, ok)

	b.Add(enum.SideBid, 9999, 50)
	_, ok = b.Spread()
	assert.False(t, ok, "spread needs both sides")

	b.Add(enum.SideAsk, 10001, 40)
	spread, ok := b.Spread()
	require.True(t, ok)
	assert.Equal(t, model.Price(2), spread)
}

func TestReduceBestRemovesEmptiedLevel(t *testing.T) {
	b := New(4)
	b.Add(enum.SideAsk, 10001, 40)
	b.Add(enum.SideAsk, 10002, 60)

	executed, price, ok := b.ReduceBest(enum.SideAsk, 40)
	require.True(t, ok)
	assert.Equal(t, model.Quantity(40), executed)
	assert.Equal(t, model.Price(10001), price)

	best, ok := b.Best(enum.SideAsk)
	require.True(t, ok)
	assert.Equal(t, model.Price(10002), best.Price)

	executed, price, ok = b.ReduceBest(enum.SideAsk, 100)
	require.True(t, ok)
	assert.Equal(t, model.Quantity(60), executed)
	assert.Equal(t, model.Price(10002), price)

	_, _, ok = b.ReduceBest(enum.SideAsk, 1)
	assert.False(t, ok, "side exhausted")
}

func TestReduceAt(t *testing.T) {
	b := New(4)
	b.Add(enum.SideBid, 9999, 50)
	b.Add(enum.SideBid, 9998, 30)

	require.True(t, b.ReduceAt(enum.SideBid, 0, 15))
	lvl, ok := b.LevelAt(enum.SideBid, 0)
	require.True(t, ok)
	assert.Equal(t, model.Quantity(35), lvl.Volume)

	require.True(t, b.ReduceAt(enum.SideBid, 1, 30))
	assert.Equal(t, 1, b.Depth(enum.SideBid), "emptied level is removed")

	assert.False(t, b.ReduceAt(enum.SideBid, 5, 1))
}

func TestSnapshotSideIsACopy(t *testing.T) {
	b := New(4)
	b.Add(enum.SideAsk, 10001, 40)

	snap := b.SnapshotSide(enum.SideAsk)
	snap[0].Volume = 1

	best, ok := b.Best(enum.SideAsk)
	require.True(t, ok)
	assert.Equal(t, model.Quantity(40), best.Volume)
}
