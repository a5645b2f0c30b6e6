package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"hl-whale-alert/internal/hl/rest"
	"hl-whale-alert/internal/record"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type infoClient interface {
	Info(ctx context.Context, req rest.InfoRequest) (any, error)
}

// API reads the same two views from the Hyperliquid info endpoint and renders
// them into rows with the explorer's column layout, so no browser is needed.
type API struct {
	client  infoClient
	user    string
	timeout time.Duration
	log     *zap.Logger
}

func NewAPI(client *rest.Client, user string, timeout time.Duration, log *zap.Logger) *API {
	return newAPI(client, user, timeout, log)
}

func newAPI(client infoClient, user string, timeout time.Duration, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{client: client, user: user, timeout: timeout, log: log}
}

// FetchLatestOrderRows returns the wallet's fills newest first as
// hash, time, direction, -, -, signed size, coin, price, value.
func (a *API) FetchLatestOrderRows(ctx context.Context) ([][]string, error) {
	payload, err := a.info(ctx, "userFills")
	if err != nil {
		return nil, err
	}
	list, ok := toSlice(payload)
	if !ok {
		return nil, errors.New("userFills: unexpected payload")
	}
	fills := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if fill, ok := toMap(item); ok {
			fills = append(fills, fill)
		}
	}
	sort.SliceStable(fills, func(i, j int) bool {
		return int64FromAny(fills[i]["time"]) > int64FromAny(fills[j]["time"])
	})
	rows := make([][]string, 0, len(fills))
	for _, fill := range fills {
		rows = append(rows, fillRow(fill))
	}
	return rows, nil
}

// FetchPositionRows returns one row per open perp position as coin, side,
// leverage, value, size, entry, mark, pnl, funding, liquidation.
func (a *API) FetchPositionRows(ctx context.Context) ([][]string, error) {
	payload, err := a.info(ctx, "clearinghouseState")
	if err != nil {
		return nil, err
	}
	stateMap, ok := toMap(payload)
	if !ok {
		return nil, errors.New("clearinghouseState: unexpected payload")
	}
	assetPositions, _ := toSlice(stateMap["assetPositions"])
	rows := make([][]string, 0, len(assetPositions))
	for _, item := range assetPositions {
		entry, ok := toMap(item)
		if !ok {
			continue
		}
		pos, ok := toMap(entry["position"])
		if !ok {
			continue
		}
		row, ok := positionRow(pos)
		if !ok {
			a.log.Debug("skipping flat position", zap.Any("position", pos))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (a *API) Close() error {
	return nil
}

func (a *API) info(ctx context.Context, typ string) (any, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	payload, err := a.client.Info(ctx, rest.InfoRequest{Type: typ, User: a.user})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotReady, typ, err)
		}
		return nil, err
	}
	return payload, nil
}

// fillRow keeps unparseable numbers as their raw text and leaves the value
// cell empty, so the row is rejected by the record parser rather than read
// as zero.
func fillRow(fill map[string]any) []string {
	sizeText, size, sizeOK := decimalText(fill["sz"])
	priceText, price, priceOK := decimalText(fill["px"])
	amount := sizeText
	if sizeOK {
		signed := size
		if stringFromAny(fill["side"]) == "A" {
			signed = size.Neg()
		}
		amount = signed.String()
	}
	value := ""
	if sizeOK && priceOK {
		value = size.Mul(price).StringFixed(2)
	}
	ts := ""
	if ms := int64FromAny(fill["time"]); ms > 0 {
		ts = time.UnixMilli(ms).UTC().Format(time.RFC3339)
	}
	return []string{
		stringFromAny(fill["hash"]),
		ts,
		stringFromAny(fill["dir"]),
		"",
		"",
		amount,
		stringFromAny(fill["coin"]),
		canonical(priceText, price, priceOK),
		value,
	}
}

// positionRow renders one asset position. Flat positions and positions
// without a coin are skipped. Malformed numbers follow the fillRow rule.
func positionRow(pos map[string]any) ([]string, bool) {
	coin := stringFromAny(pos["coin"])
	sziText, szi, sziOK := decimalText(pos["szi"])
	if coin == "" || (sziOK && szi.IsZero()) {
		return nil, false
	}
	side := ""
	size := sziText
	if sziOK {
		side = string(record.SideLong)
		if szi.IsNegative() {
			side = string(record.SideShort)
		}
		size = szi.Abs().String()
	}
	valueText, value, valueOK := decimalText(pos["positionValue"])
	mark := ""
	if sziOK && valueOK {
		mark = value.Div(szi.Abs()).Round(6).String()
	}
	entryText, entry, entryOK := decimalText(pos["entryPx"])
	pnlText, pnl, pnlOK := decimalText(pos["unrealizedPnl"])
	leverage := ""
	if lev, ok := toMap(pos["leverage"]); ok {
		leverage = stringFromAny(lev["value"]) + "x"
	}
	funding := ""
	if cum, ok := toMap(pos["cumFunding"]); ok {
		funding = stringFromAny(cum["sinceOpen"])
	}
	liquidation := record.NoLiquidation
	if liq := stringFromAny(pos["liquidationPx"]); liq != "" {
		liquidation = liq
	}
	return []string{
		coin,
		side,
		leverage,
		canonical(valueText, value, valueOK),
		size + " " + coin,
		canonical(entryText, entry, entryOK),
		mark,
		canonical(pnlText, pnl, pnlOK),
		funding,
		liquidation,
	}, true
}

// decimalText returns the raw text of v and its value when it parses.
func decimalText(v any) (string, decimal.Decimal, bool) {
	s := stringFromAny(v)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s, decimal.Zero, false
	}
	return s, d, true
}

func canonical(raw string, d decimal.Decimal, ok bool) string {
	if !ok {
		return raw
	}
	return d.String()
}
