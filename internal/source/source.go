// Package source supplies the rendered rows of the two monitored views: the
// wallet's latest orders and its open positions.
package source

import (
	"context"
	"errors"
)

// ErrNotReady means the view did not become ready within the wait budget.
var ErrNotReady = errors.New("view not ready")

// Source is the raw row provider consumed by the poll loop. Each fetch
// refreshes the underlying view and blocks until its rows are rendered or the
// ready timeout elapses. Rows are cell texts in column order, header excluded.
type Source interface {
	FetchLatestOrderRows(ctx context.Context) ([][]string, error)
	FetchPositionRows(ctx context.Context) ([][]string, error)
	Close() error
}
