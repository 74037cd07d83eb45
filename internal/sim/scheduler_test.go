package sim

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/engine"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
)

func newTestEngine(t *testing.T, seed int64) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Config{
		Symbol:         "EDU-SIM",
		TickSize:       1,
		ReferencePrice: 10000,
	}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return eng
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, Config{}.withDefaults().Validate())

	bad := Config{MinInterval: 500 * time.Millisecond, MaxInterval: 100 * time.Millisecond}.withDefaults()
	assert.Error(t, bad.Validate())

	bad = Config{LargeRate: 1.5}.withDefaults()
	assert.Error(t, bad.Validate())

	bad = Config{LimitMinVolume: 50, LimitMaxVolume: 5}.withDefaults()
	assert.Error(t, bad.Validate())
}

func TestSchedulerPublishesSnapshots(t *testing.T) {
	eng := newTestEngine(t, 1)
	snaps := make(chan model.MarketState, 256)
	sched, err := New(Config{
		Seed:        1,
		MinInterval: time.Millisecond,
		MaxInterval: 2 * time.Millisecond,
	}, eng, obs.NewMetrics(), func(st model.MarketState) { snaps <- st }, nil)
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))
	assert.ErrorIs(t, sched.Start(context.Background()), ErrAlreadyRunning)

	var last uint64
	for i := 0; i < 10; i++ {
		select {
		case st := <-snaps:
			require.Greater(t, st.Seq, last, "snapshots arrive in strict tick order")
			last = st.Seq
			if bid, ok := st.BestBid(); ok {
				if ask, ok := st.BestAsk(); ok {
					require.Less(t, bid.Price, ask.Price)
				}
			}
		case <-time.After(5 * time.Second):
			t.Fatal("no snapshot published")
		}
	}

	sched.Stop()
	sched.Stop() // idempotent
	assert.False(t, sched.Running())

	// The loop has exited: drain anything already queued, then confirm
	// no further ticks fire.
	for len(snaps) > 0 {
		<-snaps
	}
	select {
	case st := <-snaps:
		t.Fatalf("tick after stop: seq %d", st.Seq)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerRestart(t *testing.T) {
	eng := newTestEngine(t, 2)
	snaps := make(chan model.MarketState, 256)
	sched, err := New(Config{
		Seed:        2,
		MinInterval: time.Millisecond,
		MaxInterval: 2 * time.Millisecond,
	}, eng, obs.NewMetrics(), func(st model.MarketState) { snaps <- st }, nil)
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))
	select {
	case <-snaps:
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot before stop")
	}
	sched.Stop()

	require.NoError(t, sched.Start(context.Background()))
	for len(snaps) > 0 {
		<-snaps
	}
	select {
	case <-snaps:
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after restart")
	}
	sched.Stop()
}

func TestExternalOrderInjection(t *testing.T) {
	eng := newTestEngine(t, 3)
	metrics := obs.NewMetrics()
	snaps := make(chan model.MarketState, 16)
	// An hour-long interval keeps synthetic ticks out of the way.
	sched, err := New(Config{
		Seed:        3,
		MinInterval: time.Hour,
		MaxInterval: time.Hour,
	}, eng, metrics, func(st model.MarketState) { snaps <- st }, nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, sched.SubmitMarketOrder(ctx, enum.TradeSideBuy, 10), ErrNotRunning)

	require.NoError(t, sched.Start(ctx))
	defer sched.Stop()

	require.NoError(t, sched.SubmitMarketOrder(ctx, enum.TradeSideBuy, 10))
	select {
	case st := <-snaps:
		require.NotEmpty(t, st.Trades)
		assert.Equal(t, enum.TradeSideBuy, st.Trades[0].Side)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after external order")
	}

	err = sched.SubmitMarketOrder(ctx, enum.TradeSideBuy, -1)
	assert.ErrorIs(t, err, engine.ErrInvalidVolume, "engine verdict is returned to the caller")

	err = sched.SubmitLimitOrder(ctx, enum.SideBid, 9990, 25)
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.ExternalOrders)
}

func TestDeterministicEventStream(t *testing.T) {
	collect := func(seed int64) []Event {
		eng := newTestEngine(t, 7)
		events := make(chan Event, 256)
		sched, err := New(Config{
			Seed:        seed,
			MinInterval: time.Millisecond,
			MaxInterval: 2 * time.Millisecond,
		}, eng, obs.NewMetrics(), nil, func(ev Event) { events <- ev })
		require.NoError(t, err)
		require.NoError(t, sched.Start(context.Background()))

		out := make([]Event, 0, 20)
		for len(out) < 20 {
			select {
			case ev := <-events:
				ev.TsMillis = 0 // wall clock is not part of determinism
				out = append(out, ev)
			case <-time.After(5 * time.Second):
				t.Fatal("event stream stalled")
			}
		}
		sched.Stop()
		return out
	}

	assert.Equal(t, collect(42), collect(42), "same seed, same synthetic stream")
}
