package book

import (
	"sort"

	"main/internal/model"
	"main/internal/model/enum"
)

type level struct {
	price  model.Price
	volume model.Quantity
}

// Book holds the two-sided limit order book for one instrument. Bids
// are kept strictly descending by price, asks strictly ascending, with
// at most one level per price. The caller owns all mutation; Book does
// no locking.
type Book struct {
	bids []level
	asks []level
}

// New allocates an empty book with room for the given depth per side.
func New(depthHint int) *Book {
	if depthHint < 0 {
		depthHint = 0
	}
	return &Book{
		bids: make([]level, 0, depthHint),
		asks: make([]level, 0, depthHint),
	}
}

// Best returns the level nearest the mid on the given side.
func (b *Book) Best(side enum.Side) (model.PriceLevel, bool) {
	levels := b.side(side)
	if len(levels) == 0 {
		return model.PriceLevel{}, false
	}
	return model.PriceLevel{Price: levels[0].price, Volume: levels[0].volume, Side: side}, true
}

// Spread returns best ask minus best bid, or false if either side is
// empty.
func (b *Book) Spread() (model.Price, bool) {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return 0, false
	}
	return b.asks[0].price - b.bids[0].price, true
}

// Depth returns the number of levels resting on the given side.
func (b *Book) Depth(side enum.Side) int {
	return len(b.side(side))
}

// LevelAt returns the level at index on the sorted side, 0 = best.
func (b *Book) LevelAt(side enum.Side, index int) (model.PriceLevel, bool) {
	levels := b.side(side)
	if index < 0 || index >= len(levels) {
		return model.PriceLevel{}, false
	}
	return model.PriceLevel{Price: levels[index].price, Volume: levels[index].volume, Side: side}, true
}

// Add merges volume into an existing level at price or inserts a new
// level in sorted position.
func (b *Book) Add(side enum.Side, price model.Price, volume model.Quantity) {
	levels := b.side(side)
	idx := b.searchIndex(side, price)

	if idx < len(levels) && levels[idx].price == price {
		levels[idx].volume += volume
		return
	}

	levels = append(levels, level{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = level{price: price, volume: volume}
	b.setSide(side, levels)
}

// ReduceBest consumes up to want from the best level on side, removing
// the level when it empties. It reports the executed quantity and the
// level's price, or false if the side is empty.
func (b *Book) ReduceBest(side enum.Side, want model.Quantity) (model.Quantity, model.Price, bool) {
	levels := b.side(side)
	if len(levels) == 0 {
		return 0, 0, false
	}

	price := levels[0].price
	executed := want
	if levels[0].volume < executed {
		executed = levels[0].volume
	}
	levels[0].volume -= executed
	if levels[0].volume <= 0 {
		b.setSide(side, levels[1:])
	}
	return executed, price, true
}

// ReduceAt shaves by from the level at index, removing the level when
// nothing remains. It reports whether the level existed.
func (b *Book) ReduceAt(side enum.Side, index int, by model.Quantity) bool {
	levels := b.side(side)
	if index < 0 || index >= len(levels) {
		return false
	}

	levels[index].volume -= by
	if levels[index].volume <= 0 {
		copy(levels[index:], levels[index+1:])
		b.setSide(side, levels[:len(levels)-1])
	}
	return true
}

// SnapshotSide copies the sorted levels of one side.
func (b *Book) SnapshotSide(side enum.Side) []model.PriceLevel {
	levels := b.side(side)
	out := make([]model.PriceLevel, len(levels))
	for i, lvl := range levels {
		out[i] = model.PriceLevel{Price: lvl.price, Volume: lvl.volume, Side: side}
	}
	return out
}

// searchIndex finds the sorted insertion index for price on side:
// bids descending, asks ascending.
func (b *Book) searchIndex(side enum.Side, price model.Price) int {
	levels := b.side(side)
	if side == enum.SideBid {
		return sort.Search(len(levels), func(i int) bool {
			return levels[i].price <= price
		})
	}
	return sort.Search(len(levels), func(i int) bool {
		return levels[i].price >= price
	})
}

func (b *Book) side(side enum.Side) []level {
	if side == enum.SideBid {
		return b.bids
	}
	return b.asks
}

func (b *Book) setSide(side enum.Side, levels []level) {
	if side == enum.SideBid {
		b.bids = levels
	} else {
		b.asks = levels
	}
}
