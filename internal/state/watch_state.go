package state

import (
	"context"
	"encoding/json"
	"strings"

	"hl-whale-alert/internal/record"
)

const (
	OrderHistoryKey  = "watch:order_history"
	LastPositionsKey = "watch:last_positions"
)

type OrderHistory struct {
	Identifiers []string `json:"identifiers"`
	UpdatedAtMS int64    `json:"updated_at_ms"`
}

type PositionSnapshot struct {
	Positions   []record.Position `json:"positions"`
	UpdatedAtMS int64             `json:"updated_at_ms"`
}

func LoadOrderHistory(ctx context.Context, store Store) (OrderHistory, bool, error) {
	var out OrderHistory
	ok, err := load(ctx, store, OrderHistoryKey, &out)
	return out, ok, err
}

func SaveOrderHistory(ctx context.Context, store Store, history OrderHistory) error {
	return save(ctx, store, OrderHistoryKey, history)
}

func LoadPositionSnapshot(ctx context.Context, store Store) (PositionSnapshot, bool, error) {
	var out PositionSnapshot
	ok, err := load(ctx, store, LastPositionsKey, &out)
	return out, ok, err
}

func SavePositionSnapshot(ctx context.Context, store Store, snapshot PositionSnapshot) error {
	return save(ctx, store, LastPositionsKey, snapshot)
}

// ClearPositionSnapshot removes the stored snapshot, so a restart begins with
// no open positions.
func ClearPositionSnapshot(ctx context.Context, store Store) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return store.Delete(ctx, LastPositionsKey)
}

func load(ctx context.Context, store Store, key string, dst any) (bool, error) {
	if store == nil {
		return false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

func save(ctx context.Context, store Store, key string, value any) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, string(payload))
}
