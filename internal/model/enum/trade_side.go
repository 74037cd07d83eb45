package enum

// TradeSide is the aggressor direction of an execution.
type TradeSide uint8

const (
	_trade_side_beg TradeSide = iota
	TradeSideBuy
	TradeSideSell
	_trade_side_end
)

func (s TradeSide) IsAvailable() bool {
	return s > _trade_side_beg && s < _trade_side_end
}

// ConsumedSide returns the book side this aggressor executes against.
func (s TradeSide) ConsumedSide() Side {
	switch s {
	case TradeSideBuy:
		return SideAsk
	case TradeSideSell:
		return SideBid
	default:
		return 0
	}
}

func (s TradeSide) String() string {
	switch s {
	case TradeSideBuy:
		return "buy"
	case TradeSideSell:
		return "sell"
	default:
		return "unknown"
	}
}
