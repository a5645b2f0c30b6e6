package positions

import (
	"testing"

	"hl-whale-alert/internal/record"

	"github.com/shopspring/decimal"
)

func pos(token, side string, value, amount, entry, pnl string) record.Position {
	entryPrice := decimal.RequireFromString(entry)
	return record.Position{
		ID:         record.PositionID(token, side, entryPrice),
		Token:      token,
		Side:       side,
		Leverage:   "10x",
		Value:      decimal.RequireFromString(value),
		Amount:     decimal.RequireFromString(amount),
		EntryPrice: entryPrice,
		MarkPrice:  entryPrice,
		PnL:        decimal.RequireFromString(pnl),
		Funding:    "$0.00",
	}
}

func TestDiffAllNew(t *testing.T) {
	current := []record.Position{pos("BTC", "LONG", "1000", "0.02", "50000", "10")}
	report := Diff(nil, current)
	if report.NoOpenPositions {
		t.Fatalf("expected a populated report")
	}
	if len(report.Entries) != 1 || report.Entries[0].Kind != KindNew {
		t.Fatalf("expected one new entry, got %#v", report.Entries)
	}
	if report.Entries[0].Deltas != nil || report.Entries[0].Previous != nil {
		t.Fatalf("new entries must not carry deltas")
	}
	if report.Entries[0].Position.ID != "BTC_LONG_50000" {
		t.Fatalf("unexpected id %q", report.Entries[0].Position.ID)
	}
}

func TestDiffSelfIsIdempotent(t *testing.T) {
	snapshot := []record.Position{
		pos("BTC", "LONG", "1000", "0.02", "50000", "10"),
		pos("ETH", "SHORT", "500", "1.83", "2700", "-4.5"),
	}
	report := Diff(snapshot, snapshot)
	if report.Count(KindNew) != 0 || report.Count(KindClosed) != 0 {
		t.Fatalf("expected no new or closed entries, got %#v", report.Entries)
	}
	if report.Count(KindPresent) != len(snapshot) {
		t.Fatalf("expected %d present entries, got %d", len(snapshot), report.Count(KindPresent))
	}
	for _, entry := range report.Entries {
		d := entry.Deltas
		for _, delta := range []Delta{d.Value, d.Amount, d.EntryPrice, d.PnL} {
			if delta.Sign != SignZero || !delta.Change.IsZero() {
				t.Fatalf("expected zero delta for %s, got %#v", entry.Position.ID, delta)
			}
		}
	}
}

func TestDiffDeltaMatchesSubtraction(t *testing.T) {
	previous := []record.Position{pos("BTC", "LONG", "1000", "0.02", "50000", "10")}
	current := []record.Position{pos("BTC", "LONG", "1200", "0.015", "50000", "-5.25")}
	report := Diff(previous, current)
	if len(report.Entries) != 1 || report.Entries[0].Kind != KindPresent {
		t.Fatalf("expected one present entry, got %#v", report.Entries)
	}
	d := report.Entries[0].Deltas
	if !d.Value.Change.Equal(decimal.NewFromInt(200)) || d.Value.Sign != SignUp {
		t.Fatalf("expected value +200, got %#v", d.Value)
	}
	if !d.Amount.Change.Equal(decimal.RequireFromString("-0.005")) || d.Amount.Sign != SignDown {
		t.Fatalf("expected amount -0.005, got %#v", d.Amount)
	}
	if !d.PnL.Change.Equal(decimal.RequireFromString("-15.25")) || d.PnL.Sign != SignDown {
		t.Fatalf("expected pnl -15.25, got %#v", d.PnL)
	}
	if d.EntryPrice.Sign != SignZero {
		t.Fatalf("expected zero entry delta, got %#v", d.EntryPrice)
	}
	if report.Entries[0].Previous == nil || !report.Entries[0].Previous.Value.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected previous record to be attached")
	}
}

func TestDiffOrdering(t *testing.T) {
	previous := []record.Position{
		pos("SOL", "LONG", "100", "5", "20", "0"),
		pos("BTC", "LONG", "1000", "0.02", "50000", "10"),
		pos("DOGE", "SHORT", "50", "400", "0.12", "1"),
	}
	current := []record.Position{
		pos("ETH", "SHORT", "500", "1.83", "2700", "-4.5"),
		pos("BTC", "LONG", "1100", "0.02", "50000", "20"),
	}
	report := Diff(previous, current)
	want := []struct {
		id   string
		kind Kind
	}{
		{"ETH_SHORT_2700", KindNew},
		{"BTC_LONG_50000", KindPresent},
		{"SOL_LONG_20", KindClosed},
		{"DOGE_SHORT_0.12", KindClosed},
	}
	if len(report.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(report.Entries))
	}
	for i, w := range want {
		got := report.Entries[i]
		if got.Position.ID != w.id || got.Kind != w.kind {
			t.Fatalf("entry %d: expected %s %s, got %s %s", i, w.id, w.kind, got.Position.ID, got.Kind)
		}
		if w.kind == KindClosed && got.Deltas != nil {
			t.Fatalf("closed entries must not carry deltas")
		}
	}
}

func TestDiffClosedOnce(t *testing.T) {
	dup := pos("BTC", "LONG", "1000", "0.02", "50000", "10")
	previous := []record.Position{dup, dup}
	current := []record.Position{pos("ETH", "LONG", "1", "1", "1", "0")}
	report := Diff(previous, current)
	if report.Count(KindClosed) != 1 {
		t.Fatalf("expected one closed entry, got %d", report.Count(KindClosed))
	}
	if report.Count(KindNew) != 1 {
		t.Fatalf("expected one new entry, got %d", report.Count(KindNew))
	}
}

func TestDiffEmptyCurrent(t *testing.T) {
	previous := []record.Position{pos("BTC", "LONG", "1000", "0.02", "50000", "10")}
	report := Diff(previous, nil)
	if !report.NoOpenPositions {
		t.Fatalf("expected no-open-positions outcome")
	}
	if len(report.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(report.Entries))
	}
	if (Report{}).NoOpenPositions {
		t.Fatalf("zero report must not be the sentinel")
	}
}

func TestNewDeltaSign(t *testing.T) {
	cases := []struct {
		current, previous string
		sign              Sign
	}{
		{"1", "1", SignZero},
		{"1.0", "1", SignZero},
		{"2", "1", SignUp},
		{"-1", "1", SignDown},
	}
	for _, tc := range cases {
		d := NewDelta(decimal.RequireFromString(tc.current), decimal.RequireFromString(tc.previous))
		if d.Sign != tc.sign {
			t.Fatalf("%s-%s: expected sign %d, got %d", tc.current, tc.previous, tc.sign, d.Sign)
		}
		if (d.Sign == SignZero) != d.Change.IsZero() {
			t.Fatalf("%s-%s: sign inconsistent with change %s", tc.current, tc.previous, d.Change)
		}
	}
}
