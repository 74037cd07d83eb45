package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"main/internal/book"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/tape"
)

var (
	ErrInvalidVolume   = errors.New("volume must be a positive integer")
	ErrMisalignedPrice = errors.New("price is not a positive multiple of the tick size")
	ErrUnknownSide     = errors.New("unknown side")
	ErrNoSuchLevel     = errors.New("no level at index")
)

// cancelShaveBps is the fraction of a level withdrawn per cancel,
// rounded up so a one-lot level still decays.
const cancelShaveBps = 3000

// Config defines the instrument and seeding parameters.
type Config struct {
	Symbol         string
	TickSize       model.Price
	ReferencePrice model.Price
	SeedDepth      int
	SeedMinVolume  model.Quantity
	SeedMaxVolume  model.Quantity
	TapeCapacity   int
}

func (c Config) withDefaults() Config {
	if c.SeedDepth == 0 {
		c.SeedDepth = 20
	}
	if c.SeedMinVolume == 0 {
		c.SeedMinVolume = 10
	}
	if c.SeedMaxVolume == 0 {
		c.SeedMaxVolume = 100
	}
	if c.TapeCapacity == 0 {
		c.TapeCapacity = tape.DefaultCapacity
	}
	return c
}

// Validate ensures the config describes a book that can be seeded.
func (c Config) Validate() error {
	if c.TickSize <= 0 {
		return fmt.Errorf("tickSize must be > 0")
	}
	if c.ReferencePrice <= 0 || c.ReferencePrice%c.TickSize != 0 {
		return fmt.Errorf("referencePrice must be a positive multiple of tickSize")
	}
	if c.SeedDepth < 0 {
		return fmt.Errorf("seedDepth must be >= 0")
	}
	if c.ReferencePrice <= c.TickSize*model.Price(c.SeedDepth) {
		return fmt.Errorf("referencePrice too low for seedDepth %d", c.SeedDepth)
	}
	if c.SeedMinVolume <= 0 || c.SeedMaxVolume < c.SeedMinVolume {
		return fmt.Errorf("seed volume range invalid")
	}
	if c.TapeCapacity < 0 {
		return fmt.Errorf("tapeCapacity must be >= 0")
	}
	return nil
}

// Engine owns the order book, the trade tape and the monotonic trade
// counter for one instrument. It is not safe for concurrent use; a
// single owner applies all mutations and hands out snapshots.
type Engine struct {
	cfg         Config
	book        *book.Book
	tape        *tape.Tape
	lastPrice   model.Price
	nextTradeID uint64
	seq         uint64
	now         func() time.Time
}

// New creates an engine and seeds the book with SeedDepth levels per
// side, one tick apart from the reference price, volumes drawn from
// rng. A nil rng falls back to an unseeded source.
func New(cfg Config, rng *rand.Rand) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UTC().UnixNano()))
	}

	e := &Engine{
		cfg:       cfg,
		book:      book.New(cfg.SeedDepth),
		tape:      tape.New(cfg.TapeCapacity),
		lastPrice: cfg.ReferencePrice,
		now:       time.Now,
	}
	e.seed(rng)
	return e, nil
}

func (e *Engine) seed(rng *rand.Rand) {
	span := int64(e.cfg.SeedMaxVolume-e.cfg.SeedMinVolume) + 1
	for i := 1; i <= e.cfg.SeedDepth; i++ {
		offset := e.cfg.TickSize * model.Price(i)
		bidVol := e.cfg.SeedMinVolume + model.Quantity(rng.Int63n(span))
		askVol := e.cfg.SeedMinVolume + model.Quantity(rng.Int63n(span))
		e.book.Add(enum.SideBid, e.cfg.ReferencePrice-offset, bidVol)
		e.book.Add(enum.SideAsk, e.cfg.ReferencePrice+offset, askVol)
	}
}

// Symbol returns the configured instrument symbol.
func (e *Engine) Symbol() string {
	return e.cfg.Symbol
}

// TickSize returns the minimum price increment.
func (e *Engine) TickSize() model.Price {
	return e.cfg.TickSize
}

// LastPrice returns the price of the last level consumed by an
// aggressor, or the reference price before any trade.
func (e *Engine) LastPrice() model.Price {
	return e.lastPrice
}

// Seq returns the number of completed operations.
func (e *Engine) Seq() uint64 {
	return e.seq
}

// Depth returns the number of resting levels on side.
func (e *Engine) Depth(side enum.Side) int {
	return e.book.Depth(side)
}

// CheckPrice reports whether p is a positive multiple of the tick size.
func (e *Engine) CheckPrice(p model.Price) error {
	if p <= 0 || p%e.cfg.TickSize != 0 {
		return ErrMisalignedPrice
	}
	return nil
}

// ExecuteMarketOrder fills volume against the opposing side in price
// priority, emitting one trade per level touched. Exhausting the
// opposing side before volume is filled is a partial fill, not an
// error; callers compare requested volume against the returned trades.
func (e *Engine) ExecuteMarketOrder(side enum.TradeSide, volume model.Quantity) ([]model.Trade, error) {
	if !side.IsAvailable() {
		return nil, ErrUnknownSide
	}
	if volume <= 0 {
		return nil, ErrInvalidVolume
	}

	trades := e.sweep(side, volume, 0)
	e.seq++
	return trades, nil
}

// AddLimitOrder rests volume at price on side, merging with an existing
// level at the same price. A price that crosses the opposite touch
// executes against it first and only the remainder rests, so the book
// can never end up crossed.
func (e *Engine) AddLimitOrder(side enum.Side, price model.Price, volume model.Quantity) ([]model.Trade, error) {
	if !side.IsAvailable() {
		return nil, ErrUnknownSide
	}
	if volume <= 0 {
		return nil, ErrInvalidVolume
	}
	if err := e.CheckPrice(price); err != nil {
		return nil, err
	}

	var trades []model.Trade
	remaining := volume
	if aggressor := aggressorFor(side); e.crosses(side, price) {
		trades = e.sweep(aggressor, remaining, price)
		for _, tr := range trades {
			remaining -= tr.Volume
		}
	}
	if remaining > 0 {
		e.book.Add(side, price, remaining)
	}
	e.seq++
	return trades, nil
}

// CancelLevel withdraws ~30% (rounded up) of the volume resting at the
// index-th best level on side, removing the level if nothing remains.
func (e *Engine) CancelLevel(side enum.Side, index int) error {
	if !side.IsAvailable() {
		return ErrUnknownSide
	}
	lvl, ok := e.book.LevelAt(side, index)
	if !ok {
		return ErrNoSuchLevel
	}

	cut := model.Quantity((int64(lvl.Volume)*cancelShaveBps + 9999) / 10000)
	e.book.ReduceAt(side, index, cut)
	e.seq++
	return nil
}

// Snapshot assembles an immutable copy of the current market state.
func (e *Engine) Snapshot() model.MarketState {
	spread, ok := e.book.Spread()
	return model.MarketState{
		Seq:       e.seq,
		Symbol:    e.cfg.Symbol,
		Bids:      e.book.SnapshotSide(enum.SideBid),
		Asks:      e.book.SnapshotSide(enum.SideAsk),
		Trades:    e.tape.Snapshot(),
		LastPrice: e.lastPrice,
		Spread:    spread,
		HasSpread: ok,
		TsMillis:  e.now().UnixMilli(),
	}
}

// sweep walks the side opposing the aggressor best-first. A zero limit
// consumes without a price bound (market order); otherwise execution
// stops once the touch no longer crosses limit.
func (e *Engine) sweep(aggressor enum.TradeSide, volume model.Quantity, limit model.Price) []model.Trade {
	opposing := aggressor.ConsumedSide()
	ts := e.now().UnixMilli()

	var trades []model.Trade
	remaining := volume
	for remaining > 0 {
		best, ok := e.book.Best(opposing)
		if !ok {
			break
		}
		if limit > 0 {
			if aggressor == enum.TradeSideBuy && best.Price > limit {
				break
			}
			if aggressor == enum.TradeSideSell && best.Price < limit {
				break
			}
		}

		executed, price, _ := e.book.ReduceBest(opposing, remaining)
		e.nextTradeID++
		tr := model.Trade{
			ID:         e.nextTradeID,
			Price:      price,
			Volume:     executed,
			Side:       aggressor,
			TsMillis:   ts,
			Aggressive: true,
		}
		e.tape.Push(tr)
		trades = append(trades, tr)
		e.lastPrice = price
		remaining -= executed
	}
	return trades
}

func aggressorFor(side enum.Side) enum.TradeSide {
	if side == enum.SideBid {
		return enum.TradeSideBuy
	}
	return enum.TradeSideSell
}

func (e *Engine) crosses(side enum.Side, price model.Price) bool {
	best, ok := e.book.Best(side.Opposite())
	if !ok {
		return false
	}
	if side == enum.SideBid {
		return price >= best.Price
	}
	return price <= best.Price
}
