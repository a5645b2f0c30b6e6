// Command verify fetches both views once and prints the messages the bot
// would send, without sending them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"hl-whale-alert/internal/alerts"
	"hl-whale-alert/internal/config"
	"hl-whale-alert/internal/hl/rest"
	"hl-whale-alert/internal/logging"
	"hl-whale-alert/internal/positions"
	"hl-whale-alert/internal/record"
	"hl-whale-alert/internal/source"
	"hl-whale-alert/internal/state"
	"hl-whale-alert/internal/state/sqlite"

	"go.uber.org/zap"
)

const defaultVerifyEnvFile = ".env"

func main() {
	configPath := flag.String("config", "", "optional config path")
	kind := flag.String("source", "", "override source kind (browser or api)")
	rowsOnly := flag.Bool("rows", false, "print the raw rows instead of the messages")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	if err := config.LoadEnv(defaultVerifyEnvFile); err != nil {
		fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *kind != "" {
		cfg.Source.Kind = *kind
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	src, err := openSource(cfg, log)
	if err != nil {
		fatal(err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("source close failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	orderRows, err := src.FetchLatestOrderRows(ctx)
	if err != nil {
		log.Warn("order fetch failed", zap.Error(err))
	}
	positionRows, err := src.FetchPositionRows(ctx)
	if err != nil {
		log.Warn("positions fetch failed", zap.Error(err))
	}
	if *rowsOnly {
		printRows("orders", orderRows)
		printRows("positions", positionRows)
		return
	}

	var orderAlert alerts.Alert = alerts.NoNewOrder{}
	if order, ok, err := record.LatestOrder(orderRows); err != nil {
		log.Warn("latest order rejected", zap.Error(err))
	} else if ok {
		orderAlert = alerts.OrderAlert{Order: order}
	}
	fmt.Println(alerts.Format(orderAlert, cfg.Wallet.URL))
	fmt.Println()

	current, rowErrs := record.ParsePositions(positionRows)
	for _, rowErr := range rowErrs {
		log.Warn("position row rejected", zap.Error(rowErr))
	}
	previous := previousSnapshot(cfg, log)
	fmt.Print(alerts.Format(alerts.PositionAlert{Report: positions.Diff(previous, current)}, cfg.Wallet.URL))
}

func openSource(cfg *config.Config, log *zap.Logger) (source.Source, error) {
	if cfg.Source.Kind == config.SourceAPI {
		client := rest.New(cfg.Source.APIBaseURL, cfg.Source.APITimeout, log)
		return source.NewAPI(client, cfg.Wallet.Address, cfg.Source.ReadyTimeout, log), nil
	}
	return source.NewBrowser(cfg.Source, cfg.Wallet.URL, log)
}

// previousSnapshot diffs against the bot's persisted snapshot when a state
// store is configured, read only.
func previousSnapshot(cfg *config.Config, log *zap.Logger) []record.Position {
	if cfg.State.SQLitePath == "" {
		return nil
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		log.Warn("state store open failed", zap.Error(err))
		return nil
	}
	defer store.Close()
	snapshot, ok, err := state.LoadPositionSnapshot(context.Background(), store)
	if err != nil {
		log.Warn("positions snapshot load failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return snapshot.Positions
}

func printRows(view string, rows [][]string) {
	fmt.Printf("%s (%d rows)\n", view, len(rows))
	for i, row := range rows {
		fmt.Printf("  %d: %q\n", i, row)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
