package gateway

import (
	"fmt"

	"github.com/yanun0323/decimal"

	"main/internal/model"
	"main/internal/model/enum"
)

// OrderRequest is the JSON body for POST /orders. Prices arrive as
// decimal strings and are resolved against the configured scale.
type OrderRequest struct {
	Type   string          `json:"type"`
	Side   string          `json:"side"`
	Price  decimal.Decimal `json:"price,omitempty"`
	Volume int64           `json:"volume"`
}

// OrderResponse is the JSON response for POST /orders.
type OrderResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ControlResponse reports the simulation lifecycle state.
type ControlResponse struct {
	Running bool `json:"running"`
}

type levelDTO struct {
	Price  string `json:"price"`
	Volume int64  `json:"volume"`
}

type tradeDTO struct {
	ID         uint64 `json:"id"`
	Price      string `json:"price"`
	Volume     int64  `json:"volume"`
	Side       string `json:"side"`
	TsMillis   int64  `json:"ts"`
	Aggressive bool   `json:"aggressive"`
}

type stateDTO struct {
	Seq       uint64     `json:"seq"`
	Symbol    string     `json:"symbol"`
	Bids      []levelDTO `json:"bids"`
	Asks      []levelDTO `json:"asks"`
	Trades    []tradeDTO `json:"trades"`
	LastPrice string     `json:"lastPrice"`
	Spread    string     `json:"spread,omitempty"`
	TsMillis  int64      `json:"ts"`
}

func stateToDTO(state model.MarketState, scale int) stateDTO {
	dto := stateDTO{
		Seq:       state.Seq,
		Symbol:    state.Symbol,
		Bids:      levelsToDTO(state.Bids, scale),
		Asks:      levelsToDTO(state.Asks, scale),
		Trades:    make([]tradeDTO, 0, len(state.Trades)),
		LastPrice: state.LastPrice.Text(scale),
		TsMillis:  state.TsMillis,
	}
	if state.HasSpread {
		dto.Spread = state.Spread.Text(scale)
	}
	for _, trade := range state.Trades {
		dto.Trades = append(dto.Trades, tradeDTO{
			ID:         trade.ID,
			Price:      trade.Price.Text(scale),
			Volume:     int64(trade.Volume),
			Side:       trade.Side.String(),
			TsMillis:   trade.TsMillis,
			Aggressive: trade.Aggressive,
		})
	}
	return dto
}

func levelsToDTO(levels []model.PriceLevel, scale int) []levelDTO {
	out := make([]levelDTO, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, levelDTO{
			Price:  lvl.Price.Text(scale),
			Volume: int64(lvl.Volume),
		})
	}
	return out
}

func parseTradeSide(s string) (enum.TradeSide, error) {
	switch s {
	case "buy":
		return enum.TradeSideBuy, nil
	case "sell":
		return enum.TradeSideSell, nil
	default:
		return 0, fmt.Errorf("side must be 'buy' or 'sell'")
	}
}

func parseBookSide(s string) (enum.Side, error) {
	switch s {
	case "bid", "buy":
		return enum.SideBid, nil
	case "ask", "sell":
		return enum.SideAsk, nil
	default:
		return 0, fmt.Errorf("side must be 'bid' or 'ask'")
	}
}

func parsePrice(d decimal.Decimal, scale int) (model.Price, error) {
	v, err := model.ParseScaled(fmt.Sprint(d), scale)
	if err != nil {
		return 0, err
	}
	return model.Price(v), nil
}
