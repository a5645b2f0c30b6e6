package app

import (
	"context"

	"hl-whale-alert/internal/state"

	"go.uber.org/zap"
)

// restoreState loads the dedup history and the last positions snapshot from
// the store. Failures are logged and the loop starts empty.
func (a *App) restoreState(ctx context.Context) {
	if a.store == nil {
		return
	}
	orders, ok, err := state.LoadOrderHistory(ctx, a.store)
	if err != nil {
		a.log.Warn("order history restore failed", zap.Error(err))
	} else if ok {
		a.history.Restore(orders.Identifiers)
		a.log.Info("order history restored", zap.Int("identifiers", a.history.Len()))
	}
	snapshot, ok, err := state.LoadPositionSnapshot(ctx, a.store)
	if err != nil {
		a.log.Warn("positions snapshot restore failed", zap.Error(err))
	} else if ok {
		a.lastPositions = snapshot.Positions
		a.log.Info("positions snapshot restored", zap.Int("positions", len(snapshot.Positions)))
	}
}

func (a *App) persistHistory(ctx context.Context) {
	if a.store == nil {
		return
	}
	err := state.SaveOrderHistory(ctx, a.store, state.OrderHistory{
		Identifiers: a.history.Items(),
		UpdatedAtMS: a.now().UnixMilli(),
	})
	if err != nil {
		a.log.Warn("order history persist failed", zap.Error(err))
	}
}

func (a *App) persistPositions(ctx context.Context) {
	if a.store == nil {
		return
	}
	if len(a.lastPositions) == 0 {
		if err := state.ClearPositionSnapshot(ctx, a.store); err != nil {
			a.log.Warn("positions snapshot clear failed", zap.Error(err))
		}
		return
	}
	err := state.SavePositionSnapshot(ctx, a.store, state.PositionSnapshot{
		Positions:   a.lastPositions,
		UpdatedAtMS: a.now().UnixMilli(),
	})
	if err != nil {
		a.log.Warn("positions snapshot persist failed", zap.Error(err))
	}
}
