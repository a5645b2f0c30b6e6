package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"hl-whale-alert/internal/config"
	"hl-whale-alert/internal/record"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// OrderEvent is a newly observed latest order.
type OrderEvent struct {
	Time   time.Time
	Wallet string
	Order  record.Order
}

// PositionBatch is one accepted positions snapshot.
type PositionBatch struct {
	Time      time.Time
	Wallet    string
	Positions []record.Position
}

// Writer appends the observed wallet history to TimescaleDB. A nil Writer
// accepts and discards everything.
type Writer struct {
	db         *sql.DB
	log        *zap.Logger
	schema     string
	positions  chan PositionBatch
	orders     chan OrderEvent
	started    atomic.Bool
	dropPos    atomic.Uint64
	dropOrders atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:        db,
		log:       log,
		schema:    schema,
		positions: make(chan PositionBatch, queueSize),
		orders:    make(chan OrderEvent, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueuePositions(batch PositionBatch) {
	if w == nil {
		return
	}
	select {
	case w.positions <- batch:
	default:
		if w.dropPos.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale position queue full")
		}
	}
}

func (w *Writer) EnqueueOrder(event OrderEvent) {
	if w == nil {
		return
	}
	select {
	case w.orders <- event:
	default:
		if w.dropOrders.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale order queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-w.positions:
			w.writePositions(ctx, batch)
		case event := <-w.orders:
			w.writeOrder(ctx, event)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		wallet TEXT NOT NULL,
		identifier TEXT NOT NULL,
		order_hash TEXT NOT NULL,
		token TEXT NOT NULL,
		side TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		price NUMERIC NOT NULL,
		value_usd NUMERIC NOT NULL,
		PRIMARY KEY (ts, wallet, identifier)
	)`, w.table("wallet_orders"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		wallet TEXT NOT NULL,
		position_id TEXT NOT NULL,
		token TEXT NOT NULL,
		side TEXT NOT NULL,
		leverage TEXT NOT NULL,
		value NUMERIC NOT NULL,
		amount NUMERIC NOT NULL,
		entry_price NUMERIC NOT NULL,
		mark_price NUMERIC NOT NULL,
		pnl NUMERIC NOT NULL,
		funding TEXT NOT NULL,
		liquidation_price NUMERIC
	)`, w.table("wallet_positions"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	for _, name := range []string{"wallet_orders", "wallet_positions"} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(name))); err != nil && w.log != nil {
			w.log.Warn("timescale hypertable create failed", zap.String("table", name), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeOrder(ctx context.Context, event OrderEvent) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	order := event.Order
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, wallet, identifier, order_hash, token, side, amount, price, value_usd
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9
	)
	ON CONFLICT (ts, wallet, identifier) DO NOTHING`, w.table("wallet_orders"))
	if _, err := w.db.ExecContext(ctx, query,
		event.Time,
		event.Wallet,
		order.Identifier,
		order.OrderHash,
		order.Token,
		string(order.Side),
		order.Amount.String(),
		order.Price.String(),
		order.ValueUSD.String(),
	); err != nil && w.log != nil {
		w.log.Warn("timescale order insert failed", zap.Error(err))
	}
}

// writePositions inserts the whole batch in one transaction.
func (w *Writer) writePositions(ctx context.Context, batch PositionBatch) {
	if w.db == nil || len(batch.Positions) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		if w.log != nil {
			w.log.Warn("timescale position batch begin failed", zap.Error(err))
		}
		return
	}
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, wallet, position_id, token, side, leverage, value, amount,
		entry_price, mark_price, pnl, funding, liquidation_price
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
	)`, w.table("wallet_positions"))
	for _, pos := range batch.Positions {
		var liquidation any
		if pos.LiquidationPrice != nil {
			liquidation = pos.LiquidationPrice.String()
		}
		if _, err := tx.ExecContext(ctx, query,
			batch.Time,
			batch.Wallet,
			pos.ID,
			pos.Token,
			pos.Side,
			pos.Leverage,
			pos.Value.String(),
			pos.Amount.String(),
			pos.EntryPrice.String(),
			pos.MarkPrice.String(),
			pos.PnL.String(),
			pos.Funding,
			liquidation,
		); err != nil {
			_ = tx.Rollback()
			if w.log != nil {
				w.log.Warn("timescale position insert failed", zap.String("position", pos.ID), zap.Error(err))
			}
			return
		}
	}
	if err := tx.Commit(); err != nil && w.log != nil {
		w.log.Warn("timescale position batch commit failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
