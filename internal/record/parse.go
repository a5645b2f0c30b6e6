package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	OrderColumns    = 9
	PositionColumns = 10

	// NoLiquidation is rendered in the liquidation column when the position
	// has no liquidation risk.
	NoLiquidation = "-"
)

const (
	orderHashCol   = 0
	orderAmountCol = 5
	orderTokenCol  = 6
	orderPriceCol  = 7
	orderValueCol  = 8

	posTokenCol       = 0
	posSideCol        = 1
	posLeverageCol    = 2
	posValueCol       = 3
	posAmountCol      = 4
	posEntryCol       = 5
	posMarkCol        = 6
	posPnLCol         = 7
	posFundingCol     = 8
	posLiquidationCol = 9
)

var ErrTooFewColumns = errors.New("too few columns")

var numberCleaner = strings.NewReplacer(",", "", "$", "")

// FieldError reports a cell that did not convert to a number.
type FieldError struct {
	Field  string
	Column int
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("parse %s (column %d) %q: %v", e.Field, e.Column, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// LatestOrder parses the first row only. An empty view is not an error.
func LatestOrder(rows [][]string) (Order, bool, error) {
	if len(rows) == 0 {
		return Order{}, false, nil
	}
	order, err := ParseOrder(rows[0])
	if err != nil {
		return Order{}, false, err
	}
	return order, true, nil
}

func ParseOrder(cells []string) (Order, error) {
	if err := requireColumns(cells, OrderColumns); err != nil {
		return Order{}, err
	}
	signed, err := decimalCell(cells, orderAmountCol, "amount")
	if err != nil {
		return Order{}, err
	}
	price, err := decimalCell(cells, orderPriceCol, "price")
	if err != nil {
		return Order{}, err
	}
	value, err := decimalCell(cells, orderValueCol, "value_usd")
	if err != nil {
		return Order{}, err
	}
	hash := textCell(cells, orderHashCol)
	token := textCell(cells, orderTokenCol)
	side := SideShort
	if signed.IsPositive() {
		side = SideLong
	}
	return Order{
		OrderHash:  hash,
		Token:      token,
		Side:       side,
		Amount:     signed.Abs(),
		Price:      price,
		ValueUSD:   value,
		Identifier: OrderIdentifier(hash, token, signed, price),
	}, nil
}

// ParsePositions parses every row, skipping the ones that fail. Each returned
// error carries the row index.
func ParsePositions(rows [][]string) ([]Position, []error) {
	positions := make([]Position, 0, len(rows))
	var errs []error
	for i, cells := range rows {
		pos, err := ParsePosition(cells)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		positions = append(positions, pos)
	}
	return positions, errs
}

func ParsePosition(cells []string) (Position, error) {
	if err := requireColumns(cells, PositionColumns); err != nil {
		return Position{}, err
	}
	value, err := decimalCell(cells, posValueCol, "value")
	if err != nil {
		return Position{}, err
	}
	amount, err := leadingDecimalCell(cells, posAmountCol, "amount")
	if err != nil {
		return Position{}, err
	}
	entry, err := decimalCell(cells, posEntryCol, "entry_price")
	if err != nil {
		return Position{}, err
	}
	mark, err := decimalCell(cells, posMarkCol, "mark_price")
	if err != nil {
		return Position{}, err
	}
	pnl, err := decimalCell(cells, posPnLCol, "pnl")
	if err != nil {
		return Position{}, err
	}
	var liquidation *decimal.Decimal
	if textCell(cells, posLiquidationCol) != NoLiquidation {
		liq, err := decimalCell(cells, posLiquidationCol, "liquidation_price")
		if err != nil {
			return Position{}, err
		}
		liquidation = &liq
	}
	token := textCell(cells, posTokenCol)
	side := textCell(cells, posSideCol)
	return Position{
		ID:               PositionID(token, side, entry),
		Token:            token,
		Side:             side,
		Leverage:         textCell(cells, posLeverageCol),
		Value:            value,
		Amount:           amount,
		EntryPrice:       entry,
		MarkPrice:        mark,
		PnL:              pnl,
		Funding:          textCell(cells, posFundingCol),
		LiquidationPrice: liquidation,
	}, nil
}

func requireColumns(cells []string, want int) error {
	if len(cells) < want {
		return fmt.Errorf("%w: got %d, need %d", ErrTooFewColumns, len(cells), want)
	}
	return nil
}

func textCell(cells []string, col int) string {
	return strings.TrimSpace(cells[col])
}

func decimalCell(cells []string, col int, field string) (decimal.Decimal, error) {
	raw := textCell(cells, col)
	return parseNumber(raw, col, field)
}

// leadingDecimalCell parses only the first whitespace-separated token, so
// "1.83 ETH" yields 1.83.
func leadingDecimalCell(cells []string, col int, field string) (decimal.Decimal, error) {
	raw := textCell(cells, col)
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return parseNumber(raw, col, field)
	}
	return parseNumber(fields[0], col, field)
}

func parseNumber(raw string, col int, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(numberCleaner.Replace(raw)))
	if err != nil {
		return decimal.Decimal{}, &FieldError{Field: field, Column: col, Value: raw, Err: err}
	}
	return d, nil
}
