// Package sim drives the synthetic market. A single goroutine owns the
// engine while running: it waits a randomized interval, applies one
// weighted-random operation (market order, resting limit order, or
// level cancel), and publishes the resulting snapshot. External order
// submissions are routed through the same goroutine so the book only
// ever has one writer.
package sim

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/engine"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler not running")
)

// Event describes one operation the scheduler applied.
type Event struct {
	Seq        uint64
	Op         enum.Op
	Side       uint8
	Price      model.Price
	Volume     model.Quantity
	LevelIndex int
	Trades     int
	TsMillis   int64
	External   bool
}

// Scheduler owns the engine and generates the synthetic event stream.
type Scheduler struct {
	cfg     Config
	eng     *engine.Engine
	rng     *rand.Rand
	metrics *obs.Metrics

	publish func(model.MarketState)
	onEvent func(Event)

	commands chan command

	mu      sync.Mutex
	quit    chan struct{}
	wg      sync.WaitGroup
	running bool
}

type command struct {
	op    enum.Op
	apply func() (trades int, err error)
	event Event
	errC  chan error
}

// New creates a stopped scheduler around eng. publish receives the
// snapshot after every applied operation; onEvent (optional) receives
// the applied operation itself, e.g. for session recording.
func New(cfg Config, eng *engine.Engine, metrics *obs.Metrics, publish func(model.MarketState), onEvent func(Event)) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	return &Scheduler{
		cfg:      cfg,
		eng:      eng,
		rng:      rand.New(rand.NewSource(seed)),
		metrics:  metrics,
		publish:  publish,
		onEvent:  onEvent,
		commands: make(chan command, cfg.CommandQueueSize),
	}, nil
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the tick loop. Starting a running scheduler is an
// error; a stopped scheduler can be started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.quit = make(chan struct{})
	s.running = true
	s.wg.Add(1)
	go s.run(ctx, s.quit)
	return nil
}

// Stop cancels the pending wait and blocks until the loop exits. An
// operation already being applied completes; no new tick begins after
// the stop is observed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.quit)
	s.running = false
	s.mu.Unlock()
	s.wg.Wait()
}

// SubmitMarketOrder injects a user market order into the simulation
// stream. The call is synchronous: it returns the engine's verdict.
func (s *Scheduler) SubmitMarketOrder(ctx context.Context, side enum.TradeSide, volume model.Quantity) error {
	return s.submit(ctx, command{
		op: enum.OpMarket,
		apply: func() (int, error) {
			trades, err := s.eng.ExecuteMarketOrder(side, volume)
			return len(trades), err
		},
		event: Event{Op: enum.OpMarket, Side: uint8(side), Volume: volume, External: true},
	})
}

// SubmitLimitOrder injects a user limit order into the simulation
// stream.
func (s *Scheduler) SubmitLimitOrder(ctx context.Context, side enum.Side, price model.Price, volume model.Quantity) error {
	return s.submit(ctx, command{
		op: enum.OpLimit,
		apply: func() (int, error) {
			trades, err := s.eng.AddLimitOrder(side, price, volume)
			return len(trades), err
		},
		event: Event{Op: enum.OpLimit, Side: uint8(side), Price: price, Volume: volume, External: true},
	})
}

func (s *Scheduler) submit(ctx context.Context, cmd command) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	quit := s.quit
	s.mu.Unlock()

	cmd.errC = make(chan error, 1)
	select {
	case s.commands <- cmd:
	case <-quit:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.errC:
		return err
	case <-quit:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context, quit chan struct{}) {
	defer s.wg.Done()
	logs.Infof("scheduler started, interval %s..%s", s.cfg.MinInterval, s.cfg.MaxInterval)

	timer := time.NewTimer(s.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case cmd := <-s.commands:
			started := time.Now()
			trades, err := cmd.apply()
			cmd.errC <- err
			if err != nil {
				continue
			}
			s.metrics.ObserveApply(time.Since(started))
			s.metrics.ObserveOp(cmd.op, trades)
			s.metrics.IncExternalOrder()
			s.finish(cmd.event, trades)
		case <-timer.C:
			s.tick()
			timer.Reset(s.nextWait())
		}
	}
}

// tick applies one synthetic operation. All parameters are generated
// internally, so engine errors here are programming bugs; they are
// logged loudly instead of being swallowed.
func (s *Scheduler) tick() {
	started := time.Now()
	ev, trades, err := s.applyRandomOp()
	if err != nil {
		logs.Errorf("synthetic %s op rejected by engine, err: %+v", ev.Op, err)
		return
	}
	s.metrics.ObserveApply(time.Since(started))
	s.metrics.ObserveOp(ev.Op, trades)
	s.finish(ev, trades)
}

func (s *Scheduler) finish(ev Event, trades int) {
	ev.Seq = s.eng.Seq()
	ev.Trades = trades
	ev.TsMillis = time.Now().UnixMilli()
	if s.onEvent != nil {
		s.onEvent(ev)
	}
	if s.publish != nil {
		s.publish(s.eng.Snapshot())
	}
}

func (s *Scheduler) applyRandomOp() (Event, int, error) {
	total := s.cfg.MarketWeight + s.cfg.LimitWeight + s.cfg.CancelWeight
	pick := s.rng.Intn(total)

	switch {
	case pick < s.cfg.MarketWeight:
		side := s.tradeSide()
		volume := s.marketVolume()
		trades, err := s.eng.ExecuteMarketOrder(side, volume)
		return Event{Op: enum.OpMarket, Side: uint8(side), Volume: volume}, len(trades), err

	case pick < s.cfg.MarketWeight+s.cfg.LimitWeight:
		side := s.bookSide()
		price := s.limitPrice(side)
		volume := s.limitVolume()
		trades, err := s.eng.AddLimitOrder(side, price, volume)
		return Event{Op: enum.OpLimit, Side: uint8(side), Price: price, Volume: volume}, len(trades), err

	default:
		side := s.bookSide()
		depth := s.eng.Depth(side)
		if depth == 0 {
			side = side.Opposite()
			depth = s.eng.Depth(side)
			if depth == 0 {
				// Both sides swept empty; replenish near the last price.
				side = s.bookSide()
				price := s.limitPrice(side)
				volume := s.limitVolume()
				trades, err := s.eng.AddLimitOrder(side, price, volume)
				return Event{Op: enum.OpLimit, Side: uint8(side), Price: price, Volume: volume}, len(trades), err
			}
		}
		reach := s.cfg.CancelBestLevels
		if depth < reach {
			reach = depth
		}
		index := s.rng.Intn(reach)
		err := s.eng.CancelLevel(side, index)
		return Event{Op: enum.OpCancel, Side: uint8(side), LevelIndex: index}, 0, err
	}
}

func (s *Scheduler) nextWait() time.Duration {
	span := int64(s.cfg.MaxInterval - s.cfg.MinInterval)
	if span <= 0 {
		return s.cfg.MinInterval
	}
	return s.cfg.MinInterval + time.Duration(s.rng.Int63n(span+1))
}

func (s *Scheduler) tradeSide() enum.TradeSide {
	if s.rng.Intn(2) == 0 {
		return enum.TradeSideBuy
	}
	return enum.TradeSideSell
}

func (s *Scheduler) bookSide() enum.Side {
	if s.rng.Intn(2) == 0 {
		return enum.SideBid
	}
	return enum.SideAsk
}

// marketVolume draws from a bimodal size distribution: mostly small
// lots, occasionally a large sweep.
func (s *Scheduler) marketVolume() model.Quantity {
	if s.rng.Float64() < s.cfg.LargeRate {
		span := int64(s.cfg.LargeVolumeMax-s.cfg.LargeVolumeMin) + 1
		return s.cfg.LargeVolumeMin + model.Quantity(s.rng.Int63n(span))
	}
	return 1 + model.Quantity(s.rng.Int63n(int64(s.cfg.SmallVolumeMax)))
}

// limitPrice offsets 1..LimitMaxOffsetTicks away from the last price:
// bids below, asks above, clamped to stay positive.
func (s *Scheduler) limitPrice(side enum.Side) model.Price {
	tick := s.eng.TickSize()
	offset := model.Price(s.rng.Int63n(int64(s.cfg.LimitMaxOffsetTicks))+1) * tick
	price := s.eng.LastPrice() + offset
	if side == enum.SideBid {
		price = s.eng.LastPrice() - offset
	}
	if price <= 0 {
		price = tick
	}
	return price
}

func (s *Scheduler) limitVolume() model.Quantity {
	span := int64(s.cfg.LimitMaxVolume-s.cfg.LimitMinVolume) + 1
	return s.cfg.LimitMinVolume + model.Quantity(s.rng.Int63n(span))
}
