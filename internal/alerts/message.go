package alerts

import (
	"fmt"
	"math/big"
	"strings"

	"hl-whale-alert/internal/positions"
	"hl-whale-alert/internal/record"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	noNewOrderMessage      = "🐋 No new order."
	noOpenPositionsMessage = "📊 No open positions."
	positionsHeader        = "📊 Positions:\n"

	iconLong  = "🟢"
	iconShort = "🔴"
)

// Alert is one of OrderAlert, PositionAlert or NoNewOrder.
type Alert interface {
	alert()
}

type OrderAlert struct {
	Order record.Order
}

type PositionAlert struct {
	Report positions.Report
}

type NoNewOrder struct{}

func (OrderAlert) alert()    {}
func (PositionAlert) alert() {}
func (NoNewOrder) alert()    {}

// Format renders a into a chat message. link is appended to order alerts.
func Format(a Alert, link string) string {
	switch v := a.(type) {
	case OrderAlert:
		return formatOrder(v.Order, link)
	case PositionAlert:
		return formatReport(v.Report)
	case NoNewOrder:
		return noNewOrderMessage
	default:
		return ""
	}
}

func formatOrder(order record.Order, link string) string {
	icon := iconShort
	if order.Side == record.SideLong {
		icon = iconLong
	}
	return fmt.Sprintf("🚨 Whale Alert!\n%s [%s] %s\nPrice: $%s\nSize: %s %s\nValue: $%s\n%s",
		icon,
		order.Token,
		order.Side,
		order.Price.StringFixed(6),
		money(order.Amount),
		order.Token,
		money(order.ValueUSD),
		link,
	)
}

func formatReport(report positions.Report) string {
	if report.NoOpenPositions {
		return noOpenPositionsMessage
	}
	var b strings.Builder
	b.WriteString(positionsHeader)
	for _, entry := range report.Entries {
		pos := entry.Position
		icon := iconShort
		if pos.IsLong() {
			icon = iconLong
		}
		if entry.Kind == positions.KindClosed {
			fmt.Fprintf(&b, "%s %s %s\n(Closed)\n\n", icon, pos.Token, pos.Side)
			continue
		}
		var value, size, entryPx, pnl string
		if entry.Deltas != nil {
			value = annotate(entry.Deltas.Value)
			size = annotate(entry.Deltas.Amount)
			entryPx = annotate(entry.Deltas.EntryPrice)
			pnl = annotate(entry.Deltas.PnL)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n", icon, pos.Token, pos.Side, pos.Leverage)
		fmt.Fprintf(&b, "Value: $%s%s, Size: %s%s\n", money(pos.Value), value, money(pos.Amount), size)
		fmt.Fprintf(&b, "Entry: $%s%s, PnL: $%s%s\n\n", money(pos.EntryPrice), entryPx, money(pos.PnL), pnl)
	}
	return b.String()
}

func annotate(delta positions.Delta) string {
	switch delta.Sign {
	case positions.SignUp:
		return fmt.Sprintf(" (⬆ +%s)", money(delta.Change))
	case positions.SignDown:
		return fmt.Sprintf(" (⬇ %s)", money(delta.Change))
	default:
		return " (➖ 0.00)"
	}
}

// money renders two decimals with thousands separators.
func money(d decimal.Decimal) string {
	r := d.Round(2)
	whole, frac, _ := strings.Cut(r.Abs().StringFixed(2), ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return r.StringFixed(2)
	}
	sign := ""
	if r.IsNegative() {
		sign = "-"
	}
	return sign + humanize.BigComma(n) + "." + frac
}
