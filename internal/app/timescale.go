package app

import (
	"hl-whale-alert/internal/record"
	"hl-whale-alert/internal/timescale"
)

func (a *App) recordOrder(order record.Order) {
	if a.timescale == nil {
		return
	}
	a.timescale.EnqueueOrder(timescale.OrderEvent{
		Time:   a.now().UTC(),
		Wallet: a.cfg.Wallet.Address,
		Order:  order,
	})
}

func (a *App) recordPositions(current []record.Position) {
	if a.timescale == nil || len(current) == 0 {
		return
	}
	batch := make([]record.Position, len(current))
	copy(batch, current)
	a.timescale.EnqueuePositions(timescale.PositionBatch{
		Time:      a.now().UTC(),
		Wallet:    a.cfg.Wallet.Address,
		Positions: batch,
	})
}
