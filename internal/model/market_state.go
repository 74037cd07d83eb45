package model

import "main/internal/model/enum"

// PriceLevel is an aggregated resting quantity at one price on one side.
// A level exists only while its volume is positive.
type PriceLevel struct {
	Price  Price
	Volume Quantity
	Side   enum.Side
}

// MarketState is the immutable snapshot published after every completed
// operation. Bids are sorted descending, asks ascending; Trades are
// newest-first.
type MarketState struct {
	Seq       uint64
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Trades    []Trade
	LastPrice Price
	Spread    Price
	HasSpread bool
	TsMillis  int64
}

// BestBid returns the highest resting bid, if any.
func (s MarketState) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest resting ask, if any.
func (s MarketState) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}
