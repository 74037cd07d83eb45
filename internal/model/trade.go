package model

import "main/internal/model/enum"

// Trade is one execution against a resting level. Trades are immutable
// once created.
type Trade struct {
	ID         uint64
	Price      Price
	Volume     Quantity
	Side       enum.TradeSide
	TsMillis   int64
	Aggressive bool
}
