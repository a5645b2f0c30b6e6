package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hl-whale-alert/internal/alerts"
	"hl-whale-alert/internal/config"
	"hl-whale-alert/internal/history"
	"hl-whale-alert/internal/hl/rest"
	"hl-whale-alert/internal/metrics"
	"hl-whale-alert/internal/record"
	"hl-whale-alert/internal/source"
	"hl-whale-alert/internal/state"
	"hl-whale-alert/internal/state/sqlite"
	"hl-whale-alert/internal/timescale"

	"go.uber.org/zap"
)

// App owns the poll loop. All fields are touched only from the goroutine
// running Run.
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	source    source.Source
	sender    alerts.Sender
	store     state.Store
	timescale *timescale.Writer
	metrics   *metrics.Metrics
	promHTTP  http.Handler
	now       func() time.Time

	history            *history.History
	lastPositions      []record.Position
	lastPositionsCheck time.Time
}

// New acquires every resource the loop needs. Anything acquired before a
// failure is released again.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		cfg:     cfg,
		log:     log,
		sender:  alerts.NewTelegram(cfg.Telegram, log),
		metrics: metrics.NewNoop(),
		now:     time.Now,
		history: history.New(cfg.History.Size),
	}
	if cfg.Metrics.EnabledValue() {
		prom := metrics.NewPrometheus()
		a.metrics = prom.Metrics
		a.promHTTP = prom.Handler()
	}
	if cfg.State.SQLitePath != "" {
		store, err := sqlite.New(cfg.State.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open state store: %w", err)
		}
		a.store = store
	}
	writer, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("open timescale: %w", err)
	}
	a.timescale = writer

	src, err := newSource(cfg, log)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.source = src
	return a, nil
}

func newSource(cfg *config.Config, log *zap.Logger) (source.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceAPI:
		client := rest.New(cfg.Source.APIBaseURL, cfg.Source.APITimeout, log)
		return source.NewAPI(client, cfg.Wallet.Address, cfg.Source.ReadyTimeout, log), nil
	default:
		browser, err := source.NewBrowser(cfg.Source, cfg.Wallet.URL, log)
		if err != nil {
			return nil, fmt.Errorf("start browser source: %w", err)
		}
		return browser, nil
	}
}

// Run polls until ctx is cancelled and then releases the source and stores.
func (a *App) Run(ctx context.Context) error {
	defer a.closeAll()

	a.restoreState(ctx)
	a.timescale.Start(ctx)
	if a.promHTTP != nil {
		stop := a.serveMetrics()
		defer stop()
	}
	a.lastPositionsCheck = a.now()
	a.log.Info("monitoring started",
		zap.String("wallet", a.cfg.Wallet.Address),
		zap.String("url", a.cfg.Wallet.URL),
		zap.String("source", a.cfg.Source.Kind),
		zap.Duration("order_interval", a.cfg.Poll.OrderInterval),
		zap.Duration("positions_interval", a.cfg.Poll.PositionsInterval),
	)

	for {
		a.iterate(ctx)
		select {
		case <-ctx.Done():
			a.log.Info("monitoring stopped")
			return ctx.Err()
		case <-time.After(a.cfg.Poll.OrderInterval):
		}
	}
}

func (a *App) closeAll() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.log.Warn("source close failed", zap.Error(err))
		}
		a.source = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("state store close failed", zap.Error(err))
		}
		a.store = nil
	}
	if err := a.timescale.Close(); err != nil {
		a.log.Warn("timescale close failed", zap.Error(err))
	}
	a.timescale = nil
}

func (a *App) serveMetrics() func() {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.promHTTP)
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("metrics server listening", zap.String("address", a.cfg.Metrics.Address), zap.String("path", a.cfg.Metrics.Path))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
