package record

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Order is the most recent row of the wallet's latest-orders view.
type Order struct {
	OrderHash string
	Token     string
	Side      Side
	Amount    decimal.Decimal
	Price     decimal.Decimal
	ValueUSD  decimal.Decimal
	// Identifier keys the dedup history and is never rendered.
	Identifier string
}

// Position is one row of the open-positions view.
//
// ID is token_side_entry. Two open positions sharing token, side and entry
// price produce the same ID and are treated as one position when diffing.
type Position struct {
	ID               string           `json:"id"`
	Token            string           `json:"token"`
	Side             string           `json:"side"`
	Leverage         string           `json:"leverage"`
	Value            decimal.Decimal  `json:"value"`
	Amount           decimal.Decimal  `json:"amount"`
	EntryPrice       decimal.Decimal  `json:"entry_price"`
	MarkPrice        decimal.Decimal  `json:"mark_price"`
	PnL              decimal.Decimal  `json:"pnl"`
	Funding          string           `json:"funding"`
	LiquidationPrice *decimal.Decimal `json:"liquidation_price,omitempty"`
}

func (p Position) IsLong() bool {
	return strings.EqualFold(strings.TrimSpace(p.Side), string(SideLong))
}

func OrderIdentifier(hash, token string, signedAmount, price decimal.Decimal) string {
	return strings.Join([]string{hash, token, signedAmount.String(), price.String()}, "_")
}

func PositionID(token, side string, entryPrice decimal.Decimal) string {
	return strings.Join([]string{token, side, entryPrice.String()}, "_")
}
