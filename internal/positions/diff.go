package positions

import (
	"hl-whale-alert/internal/record"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindNew Kind = iota
	KindPresent
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindPresent:
		return "present"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Sign int

const (
	SignZero Sign = iota
	SignUp
	SignDown
)

type Delta struct {
	Change decimal.Decimal
	Sign   Sign
}

func NewDelta(current, previous decimal.Decimal) Delta {
	change := current.Sub(previous)
	sign := SignZero
	switch change.Sign() {
	case 1:
		sign = SignUp
	case -1:
		sign = SignDown
	}
	return Delta{Change: change, Sign: sign}
}

type Deltas struct {
	Value      Delta
	Amount     Delta
	EntryPrice Delta
	PnL        Delta
}

func ComputeDeltas(current, previous record.Position) Deltas {
	return Deltas{
		Value:      NewDelta(current.Value, previous.Value),
		Amount:     NewDelta(current.Amount, previous.Amount),
		EntryPrice: NewDelta(current.EntryPrice, previous.EntryPrice),
		PnL:        NewDelta(current.PnL, previous.PnL),
	}
}

// Entry is one line of a Report. Position is the current record for new and
// present entries and the last seen record for closed ones. Previous and
// Deltas are set only for present entries.
type Entry struct {
	Kind     Kind
	Position record.Position
	Previous *record.Position
	Deltas   *Deltas
}

type Report struct {
	// NoOpenPositions is set when the current snapshot is empty. Entries is
	// then empty too, closed positions included.
	NoOpenPositions bool
	Entries         []Entry
}

func (r Report) Count(kind Kind) int {
	n := 0
	for _, entry := range r.Entries {
		if entry.Kind == kind {
			n++
		}
	}
	return n
}

// Diff classifies current against previous. New and present entries follow
// the current row order; closed entries follow the previous row order and
// come last. When an ID repeats within a snapshot the last row wins the
// lookup.
func Diff(previous, current []record.Position) Report {
	if len(current) == 0 {
		return Report{NoOpenPositions: true}
	}
	prevByID := index(previous)
	currByID := index(current)

	entries := make([]Entry, 0, len(current)+len(previous))
	for _, pos := range current {
		prev, ok := prevByID[pos.ID]
		if !ok {
			entries = append(entries, Entry{Kind: KindNew, Position: pos})
			continue
		}
		deltas := ComputeDeltas(pos, prev)
		entries = append(entries, Entry{
			Kind:     KindPresent,
			Position: pos,
			Previous: &prev,
			Deltas:   &deltas,
		})
	}

	closed := make(map[string]struct{})
	for _, pos := range previous {
		if _, ok := currByID[pos.ID]; ok {
			continue
		}
		if _, done := closed[pos.ID]; done {
			continue
		}
		closed[pos.ID] = struct{}{}
		entries = append(entries, Entry{Kind: KindClosed, Position: prevByID[pos.ID]})
	}
	return Report{Entries: entries}
}

func index(snapshot []record.Position) map[string]record.Position {
	out := make(map[string]record.Position, len(snapshot))
	for _, pos := range snapshot {
		out[pos.ID] = pos
	}
	return out
}
