package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/db"
	"github.com/metalagman/caretaker/internal/history"
	"github.com/metalagman/caretaker/internal/ledger"
	"github.com/metalagman/caretaker/internal/llm"
	"github.com/metalagman/caretaker/internal/metrics"
	"github.com/metalagman/caretaker/internal/prompt"
	"github.com/metalagman/caretaker/internal/tracker"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// app bundles the collaborators shared by the agent commands.
type app struct {
	root      string
	cfg       *config.Store
	engine    *prompt.Engine
	tracker   tracker.Recorder
	ledger    *ledger.Ledger
	generator llm.Generator
	metrics   *metrics.Metrics
	history   *history.Store
}

func newApp(ctx context.Context) (*app, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	engine, err := loadEngine(root)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	rec := tracker.FromEnv()
	led, err := openLedger(root, rec, ledger.WithObserver(m))
	if err != nil {
		return nil, err
	}

	hist, err := history.Open(filepath.Join(root, db.DefaultPath))
	if err != nil {
		log.Warn().Err(err).Msg("run history unavailable")
		hist = nil
	}

	return &app{
		root:      root,
		cfg:       cfg,
		engine:    engine,
		tracker:   rec,
		ledger:    led,
		generator: llm.FromEnv(ctx, 0),
		metrics:   m,
		history:   hist,
	}, nil
}

// Close releases the history database and flushes metrics.
func (a *app) Close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	if path := viper.GetString("metrics-file"); path != "" {
		if err := a.metrics.WriteTextfile(resolvePath(a.root, path)); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to write metrics")
		}
	}
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func loadConfig(root string) (*config.Store, error) {
	path := viper.GetString("config")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(resolvePath(root, path))
	if err != nil {
		return nil, err
	}
	if cfg.Created() {
		log.Info().Str("path", cfg.Path()).Msg("created default configuration")
	}
	return cfg, nil
}

func loadEngine(root string) (*prompt.Engine, error) {
	engine := prompt.NewEngine()
	n, err := engine.LoadFile(filepath.Join(root, prompt.DefaultFile))
	if err != nil {
		return nil, err
	}
	if n > 0 {
		log.Debug().Int("templates", n).Msg("custom templates loaded")
	}
	return engine, nil
}

// openLedger opens the usage ledger. The external record is only attached
// when the tracker is configured.
func openLedger(root string, rec tracker.Recorder, opts ...ledger.Option) (*ledger.Ledger, error) {
	budget, ok, err := monthlyBudget()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, ledger.WithBudget(budget))
	}
	path := viper.GetString("usage-file")
	if path == "" {
		path = ledger.DefaultPath
	}
	var recorder ledger.Recorder
	if tracker.Enabled(rec) {
		recorder = rec
	}
	return ledger.Open(resolvePath(root, path), recorder, opts...)
}

func monthlyBudget() (decimal.Decimal, bool, error) {
	raw := viper.GetString("monthly_budget")
	if raw == "" {
		return decimal.Zero, false, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || !v.IsPositive() {
		return decimal.Zero, false, fmt.Errorf("%s must be a positive amount, got %q", envMonthlyBudget, raw)
	}
	return v, true, nil
}

func prNumber() int {
	raw := viper.GetString("pr_number")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Warn().Str("pr_number", raw).Msg("ignoring invalid pull request number")
		return 0
	}
	return n
}

func monthToDate(l *ledger.Ledger) decimal.Decimal {
	if m := l.Month(l.CurrentMonth()); m != nil {
		return m.Cost
	}
	return decimal.Zero
}
