// Package ledger meters generation cost per call, aggregates it per calendar
// month and keeps an external, human readable record of the totals in sync.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultBudget is the monthly limit in USD used when none is configured.
var DefaultBudget = decimal.NewFromInt(50)

// AlertThreshold is the fraction of the budget that triggers the one-time alert.
var AlertThreshold = decimal.RequireFromString("0.90")

// Labels attached to the records the ledger creates.
var (
	UsageLabels = []string{"ai-usage", "automated"}
	AlertLabels = []string{"ai-budget-alert", "urgent"}
)

// Recorder is the external ledger record, typically an issue tracker.
// Update replaces the whole body of the record.
type Recorder interface {
	Create(ctx context.Context, title, body string, labels []string) (int, error)
	Update(ctx context.Context, id int, body string) error
}

// Observer receives cost events, e.g. for metrics.
type Observer interface {
	ObserveCost(agent, model string, cost float64)
	ObserveBudgetAlert(month string)
}

// Usage is the outcome of one recorded call.
type Usage struct {
	Cost         decimal.Decimal
	MonthlyTotal decimal.Decimal
	AlertRaised  bool
	// Warnings lists external sync failures; local state is persisted regardless.
	Warnings []string
}

// Ledger is a single-writer store: every mutation reloads the file under a
// file lock, applies the change and flushes it before returning.
type Ledger struct {
	path     string
	recorder Recorder
	observer Observer
	budget   *decimal.Decimal
	now      func() time.Time
	lock     *fileLock
	state    State
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithBudget overrides the monthly budget stored in the ledger file.
func WithBudget(limit decimal.Decimal) Option {
	return func(l *Ledger) { l.budget = &limit }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithObserver registers an observer for cost events.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observer = o }
}

// Open loads the ledger at path. recorder may be nil, in which case no
// external record is kept.
func Open(path string, recorder Recorder, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		path:     path,
		recorder: recorder,
		now:      time.Now,
		lock:     newFileLock(path),
	}
	for _, opt := range opts {
		opt(l)
	}
	st, err := readState(path)
	if err != nil {
		return nil, err
	}
	l.state = st
	return l, nil
}

// MonthKey formats t as the YYYY-MM key used by the ledger.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CurrentMonth returns the key of the current calendar month.
func (l *Ledger) CurrentMonth() string {
	return MonthKey(l.now())
}

// Budget returns the effective monthly limit.
func (l *Ledger) Budget() decimal.Decimal {
	if l.budget != nil {
		return *l.budget
	}
	if l.state.MonthlyLimit != nil {
		return *l.state.MonthlyLimit
	}
	return DefaultBudget
}

// State returns the last loaded state. Callers must not modify it.
func (l *Ledger) State() State {
	return l.state
}

// Month returns the usage of month, or nil when nothing was recorded.
func (l *Ledger) Month(month string) *MonthlyUsage {
	return l.state.Monthly[month]
}

// RecordUsage prices one generation call and adds it to the current month.
// Every call is a distinct event; identical arguments are never deduplicated.
// Only local persistence failures are returned as errors.
func (l *Ledger) RecordUsage(ctx context.Context, agent, model string, inputTokens, outputTokens int) (Usage, error) {
	cost := Cost(model, inputTokens, outputTokens)
	if _, known := RateFor(model); !known {
		log.Debug().Str("model", model).Str("fallback", FallbackModel).Msg("no rate for model, using fallback")
	}

	month := l.CurrentMonth()
	var usage Usage
	err := l.mutate(ctx, func(st *State) error {
		mu, ok := st.Monthly[month]
		if !ok {
			mu = &MonthlyUsage{Cost: decimal.Zero, Agents: make(map[string]*AgentUsage)}
			mu.LedgerRecordID = l.createMonthRecord(ctx, month, &usage)
			st.Monthly[month] = mu
		}
		au, ok := mu.Agents[agent]
		if !ok {
			au = &AgentUsage{Cost: decimal.Zero}
			mu.Agents[agent] = au
		}
		au.Cost = au.Cost.Add(cost)
		au.Calls++
		mu.Cost = mu.Cost.Add(cost)
		st.TotalSpent = st.TotalSpent.Add(cost)

		usage.Cost = cost
		usage.MonthlyTotal = mu.Cost
		return nil
	})
	if err != nil {
		return Usage{}, err
	}

	log.Info().
		Str("agent", agent).
		Str("model", model).
		Int("input_tokens", inputTokens).
		Int("output_tokens", outputTokens).
		Str("cost", cost.StringFixed(4)).
		Str("monthly_total", usage.MonthlyTotal.StringFixed(2)).
		Msg("usage recorded")
	if l.observer != nil {
		l.observer.ObserveCost(agent, model, cost.InexactFloat64())
	}

	l.syncMonthRecord(ctx, month, &usage)

	raised, err := l.checkBudget(ctx, month, &usage)
	if err != nil {
		return usage, err
	}
	usage.AlertRaised = raised
	return usage, nil
}

// SetBudget stores a monthly limit in the ledger file.
func (l *Ledger) SetBudget(ctx context.Context, limit decimal.Decimal) error {
	if limit.Sign() <= 0 {
		return fmt.Errorf("budget must be positive, got %s", limit)
	}
	return l.mutate(ctx, func(st *State) error {
		st.MonthlyLimit = &limit
		return nil
	})
}

// Reload refreshes the in-memory state from disk.
func (l *Ledger) Reload() error {
	st, err := readState(l.path)
	if err != nil {
		return err
	}
	l.state = st
	return nil
}

func (l *Ledger) mutate(ctx context.Context, fn func(*State) error) error {
	if err := l.lock.acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if err := l.lock.release(); err != nil {
			log.Warn().Err(err).Str("path", l.path).Msg("failed to release usage ledger lock")
		}
	}()

	st, err := readState(l.path)
	if err != nil {
		return err
	}
	if err := fn(&st); err != nil {
		return err
	}
	if err := writeState(l.path, st); err != nil {
		return err
	}
	l.state = st
	return nil
}

func (l *Ledger) createMonthRecord(ctx context.Context, month string, usage *Usage) *int {
	if l.recorder == nil {
		return nil
	}
	id, err := l.recorder.Create(ctx, MonthTitle(month), l.emptyReport(month), UsageLabels)
	if err != nil {
		log.Warn().Err(err).Str("month", month).Msg("failed to create monthly usage record")
		usage.Warnings = append(usage.Warnings, fmt.Sprintf("create usage record: %v", err))
		return nil
	}
	log.Info().Int("record_id", id).Str("month", month).Msg("created monthly usage record")
	return &id
}

func (l *Ledger) syncMonthRecord(ctx context.Context, month string, usage *Usage) {
	mu := l.state.Monthly[month]
	if l.recorder == nil || mu == nil || mu.LedgerRecordID == nil {
		return
	}
	if err := l.recorder.Update(ctx, *mu.LedgerRecordID, l.Report(month)); err != nil {
		log.Warn().Err(err).Int("record_id", *mu.LedgerRecordID).Msg("failed to update monthly usage record")
		usage.Warnings = append(usage.Warnings, fmt.Sprintf("update usage record: %v", err))
	}
}

// checkBudget raises the alert at most once per month. A failed alert is not
// retried: the month is marked as alerted either way.
func (l *Ledger) checkBudget(ctx context.Context, month string, usage *Usage) (bool, error) {
	mu := l.state.Monthly[month]
	if mu == nil || mu.AlertRaised {
		return false, nil
	}
	threshold := l.Budget().Mul(AlertThreshold)
	if mu.Cost.LessThan(threshold) {
		return false, nil
	}

	if l.recorder != nil {
		title := fmt.Sprintf("🚨 AI Budget Alert - %s%% Used", l.percentUsed(mu.Cost).String())
		if _, err := l.recorder.Create(ctx, title, l.alertBody(month), AlertLabels); err != nil {
			log.Warn().Err(err).Str("month", month).Msg("failed to create budget alert")
			usage.Warnings = append(usage.Warnings, fmt.Sprintf("create budget alert: %v", err))
		}
	}
	log.Warn().
		Str("month", month).
		Str("monthly_total", mu.Cost.StringFixed(2)).
		Str("budget", l.Budget().StringFixed(2)).
		Msg("monthly budget threshold reached")
	if l.observer != nil {
		l.observer.ObserveBudgetAlert(month)
	}

	err := l.mutate(ctx, func(st *State) error {
		if m := st.Monthly[month]; m != nil {
			m.AlertRaised = true
		}
		return nil
	})
	if err != nil {
		return true, err
	}
	return true, nil
}
