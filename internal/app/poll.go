package app

import (
	"context"
	"errors"
	"fmt"

	"hl-whale-alert/internal/alerts"
	"hl-whale-alert/internal/positions"
	"hl-whale-alert/internal/record"

	"go.uber.org/zap"
)

// iterate runs one order check and, when due, one positions check. A panic
// is logged and the loop carries on.
func (a *App) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.metrics.IterationsFailed.Inc()
			a.log.Error("poll iteration panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if err := a.checkOrders(ctx); err != nil {
		a.log.Warn("order check failed", zap.Error(err))
	}
	if a.now().Sub(a.lastPositionsCheck) >= a.cfg.Poll.PositionsInterval {
		if err := a.checkPositions(ctx); err != nil {
			a.log.Warn("positions check failed", zap.Error(err))
		}
		a.lastPositionsCheck = a.now()
	}
}

// checkOrders alerts on the latest order when its identifier is not in the
// history. An unreadable view counts as no new order.
func (a *App) checkOrders(ctx context.Context) error {
	rows, err := a.source.FetchLatestOrderRows(ctx)
	if err != nil {
		a.metrics.OrderFetchFailed.Inc()
		a.log.Warn("order fetch failed", zap.Error(err))
		return a.dispatch(ctx, alerts.NoNewOrder{})
	}
	order, ok, err := record.LatestOrder(rows)
	if err != nil {
		a.metrics.RowsRejected.Inc()
		a.log.Warn("latest order rejected", zap.Int("row", 0), zap.Error(err))
		return a.dispatch(ctx, alerts.NoNewOrder{})
	}
	if !ok {
		a.log.Debug("orders view is empty")
		return a.dispatch(ctx, alerts.NoNewOrder{})
	}
	a.metrics.OrdersSeen.Inc()
	if !a.history.CheckAndRecord(order.Identifier) {
		return a.dispatch(ctx, alerts.NoNewOrder{})
	}
	a.log.Info("new order detected",
		zap.String("token", order.Token),
		zap.String("side", string(order.Side)),
		zap.String("amount", order.Amount.String()),
		zap.String("price", order.Price.String()),
		zap.String("value_usd", order.ValueUSD.String()),
	)
	a.persistHistory(ctx)
	a.recordOrder(order)
	if err := a.dispatch(ctx, alerts.OrderAlert{Order: order}); err != nil {
		return err
	}
	a.metrics.OrderAlerts.Inc()
	return nil
}

// checkPositions diffs the positions view against the retained snapshot and
// reports the result. On a fetch failure nothing is reported and the snapshot
// is kept.
func (a *App) checkPositions(ctx context.Context) error {
	rows, err := a.source.FetchPositionRows(ctx)
	if err != nil {
		a.metrics.PositionFetchFailed.Inc()
		return fmt.Errorf("fetch positions: %w", err)
	}
	current, rowErrs := record.ParsePositions(rows)
	for _, rowErr := range rowErrs {
		a.metrics.RowsRejected.Inc()
		var fieldErr *record.FieldError
		if errors.As(rowErr, &fieldErr) {
			a.log.Warn("position field rejected", zap.String("field", fieldErr.Field), zap.String("value", fieldErr.Value), zap.Error(rowErr))
			continue
		}
		a.log.Warn("position row rejected", zap.Error(rowErr))
	}

	report := positions.Diff(a.lastPositions, current)
	a.log.Info("positions diffed",
		zap.Int("new", report.Count(positions.KindNew)),
		zap.Int("present", report.Count(positions.KindPresent)),
		zap.Int("closed", report.Count(positions.KindClosed)),
	)
	a.lastPositions = current
	a.persistPositions(ctx)
	a.recordPositions(current)

	if err := a.dispatch(ctx, alerts.PositionAlert{Report: report}); err != nil {
		return err
	}
	a.metrics.PositionReports.Inc()
	return nil
}

// dispatch formats and sends one alert. Delivery is attempted once.
func (a *App) dispatch(ctx context.Context, alert alerts.Alert) error {
	if _, skip := alert.(alerts.NoNewOrder); skip && !a.cfg.Alerts.NotifyNoNewOrderValue() {
		return nil
	}
	message := alerts.Format(alert, a.cfg.Wallet.URL)
	if err := a.sender.Send(ctx, message); err != nil {
		a.metrics.AlertsFailed.Inc()
		return fmt.Errorf("deliver alert: %w", err)
	}
	return nil
}
