package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordCall struct {
	title  string
	labels []string
}

type fakeRecorder struct {
	mu        sync.Mutex
	nextID    int
	creates   []recordCall
	updates   map[int]string
	createErr error
	updateErr error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{nextID: 100, updates: make(map[int]string)}
}

func (f *fakeRecorder) Create(_ context.Context, title, _ string, labels []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, recordCall{title: title, labels: labels})
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeRecorder) Update(_ context.Context, id int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[id] = body
	return nil
}

func (f *fakeRecorder) alerts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.creates {
		if len(c.labels) > 0 && c.labels[0] == AlertLabels[0] {
			n++
		}
	}
	return n
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC) }
}

func openTestLedger(t *testing.T, rec Recorder, opts ...Option) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	l, err := Open(path, rec, append([]Option{WithClock(fixedClock())}, opts...)...)
	require.NoError(t, err)
	return l, path
}

func TestCost_GPT4oMini(t *testing.T) {
	t.Parallel()

	got := Cost("gpt-4o-mini", 1000, 500)
	assert.True(t, got.Equal(decimal.RequireFromString("0.00045")), "got %s", got)
}

func TestCost_UnknownModelFallsBack(t *testing.T) {
	t.Parallel()

	assert.True(t, Cost("some-new-model", 1000, 500).Equal(Cost(FallbackModel, 1000, 500)))
	_, known := RateFor("some-new-model")
	assert.False(t, known)
}

func TestRecordUsage_AggregatesWithinMonth(t *testing.T) {
	t.Parallel()

	rec := newFakeRecorder()
	l, path := openTestLedger(t, rec)
	ctx := context.Background()

	first, err := l.RecordUsage(ctx, "bugFixer", "gpt-4o", 4000, 0)
	require.NoError(t, err)
	assert.True(t, first.Cost.Equal(decimal.RequireFromString("0.01")), "got %s", first.Cost)

	second, err := l.RecordUsage(ctx, "bugFixer", "gpt-4o", 8000, 0)
	require.NoError(t, err)
	assert.True(t, second.MonthlyTotal.Equal(decimal.RequireFromString("0.03")), "got %s", second.MonthlyTotal)

	mu := l.Month("2025-03")
	require.NotNil(t, mu)
	assert.Equal(t, 2, mu.Agents["bugFixer"].Calls)
	assert.True(t, mu.Agents["bugFixer"].Cost.Equal(mu.Cost))
	require.NotNil(t, mu.LedgerRecordID)

	reopened, err := Open(path, nil, WithClock(fixedClock()))
	require.NoError(t, err)
	assert.True(t, reopened.State().TotalSpent.Equal(decimal.RequireFromString("0.03")))
	assert.Equal(t, 2, reopened.Month("2025-03").Agents["bugFixer"].Calls)

	body := rec.updates[*mu.LedgerRecordID]
	assert.Contains(t, body, "AI Agent Usage Report - March 2025")
	assert.Contains(t, body, "- **bugFixer:** $0.030 (2 calls, $0.0150/call)")
}

func TestRecordUsage_CreatesOneRecordPerMonth(t *testing.T) {
	t.Parallel()

	rec := newFakeRecorder()
	l, _ := openTestLedger(t, rec)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.RecordUsage(ctx, "codeReviewer", "gpt-4o-mini", 100, 100)
		require.NoError(t, err)
	}
	require.Len(t, rec.creates, 1)
	assert.Equal(t, "🤖 AI Agent Usage - March 2025", rec.creates[0].title)
	assert.Equal(t, UsageLabels, rec.creates[0].labels)
	assert.Equal(t, 3, l.Month("2025-03").Agents["codeReviewer"].Calls)
}

func TestRecordUsage_AlertRaisedOnce(t *testing.T) {
	t.Parallel()

	rec := newFakeRecorder()
	l, _ := openTestLedger(t, rec, WithBudget(decimal.NewFromInt(10)))
	ctx := context.Background()

	// 1M gpt-4o output tokens cost exactly $10.
	u, err := l.RecordUsage(ctx, "bugFixer", "gpt-4o", 0, 1_000_000)
	require.NoError(t, err)
	assert.True(t, u.AlertRaised)

	u, err = l.RecordUsage(ctx, "bugFixer", "gpt-4o", 0, 1000)
	require.NoError(t, err)
	assert.False(t, u.AlertRaised)

	assert.Equal(t, 1, rec.alerts())
	assert.True(t, l.Month("2025-03").AlertRaised)
}

func TestRecordUsage_MonthRolloverDuringCall(t *testing.T) {
	t.Parallel()

	var calls int
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
		}
		return time.Date(2025, time.April, 1, 0, 0, 1, 0, time.UTC)
	}
	rec := newFakeRecorder()
	l, _ := openTestLedger(t, rec, WithClock(clock), WithBudget(decimal.NewFromInt(10)))

	u, err := l.RecordUsage(context.Background(), "bugFixer", "gpt-4o", 0, 1_000_000)
	require.NoError(t, err)
	assert.True(t, u.AlertRaised)
	assert.Empty(t, u.Warnings)

	march := l.Month("2025-03")
	require.NotNil(t, march)
	require.NotNil(t, march.LedgerRecordID)
	assert.True(t, march.AlertRaised)
	assert.Contains(t, rec.updates, *march.LedgerRecordID)
	assert.Nil(t, l.Month("2025-04"))
	assert.Equal(t, 1, rec.alerts())
}

func TestRecordUsage_BelowThresholdNoAlert(t *testing.T) {
	t.Parallel()

	rec := newFakeRecorder()
	l, _ := openTestLedger(t, rec, WithBudget(decimal.NewFromInt(10)))

	u, err := l.RecordUsage(context.Background(), "bugFixer", "gpt-4o", 0, 890_000)
	require.NoError(t, err)
	assert.False(t, u.AlertRaised)
	assert.Zero(t, rec.alerts())
}

func TestRecordUsage_AlertFailureStillMarksMonth(t *testing.T) {
	t.Parallel()

	rec := newFakeRecorder()
	l, _ := openTestLedger(t, rec, WithBudget(decimal.NewFromInt(1)))
	ctx := context.Background()

	_, err := l.RecordUsage(ctx, "docs", "gpt-4o", 0, 1000)
	require.NoError(t, err)

	rec.createErr = errors.New("tracker down")
	u, err := l.RecordUsage(ctx, "docs", "gpt-4o", 0, 100_000)
	require.NoError(t, err)
	assert.True(t, u.AlertRaised)
	assert.NotEmpty(t, u.Warnings)
	assert.True(t, l.Month("2025-03").AlertRaised)
}

func TestRecordUsage_RecordCreationFailureKeepsLocalState(t *testing.T) {
	t.Parallel()

	rec := newFakeRecorder()
	rec.createErr = errors.New("forbidden")
	l, path := openTestLedger(t, rec)

	u, err := l.RecordUsage(context.Background(), "bugFixer", "gpt-4o-mini", 1000, 500)
	require.NoError(t, err)
	require.NotEmpty(t, u.Warnings)

	mu := l.Month("2025-03")
	require.NotNil(t, mu)
	assert.Nil(t, mu.LedgerRecordID)
	assert.Empty(t, rec.updates)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ledgerRecordId": null`)
	assert.Contains(t, string(data), `"calls": 1`)
}

func TestRecordUsage_NoRecorder(t *testing.T) {
	t.Parallel()

	l, _ := openTestLedger(t, nil)
	u, err := l.RecordUsage(context.Background(), "bugFixer", "gpt-4o-mini", 1000, 500)
	require.NoError(t, err)
	assert.Empty(t, u.Warnings)
	assert.Nil(t, l.Month("2025-03").LedgerRecordID)
}

func TestOpen_CorruptFileStartsFresh(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l, err := Open(path, nil)
	require.NoError(t, err)
	assert.True(t, l.State().TotalSpent.IsZero())
	assert.FileExists(t, path+".bak")
}

func TestOpen_AcceptsNumericDecimals(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultPath)
	legacy := `{"totalSpent": 1.5, "monthly": {"2025-02": {"cost": 1.5, "agents": {"bugFixer": {"cost": 1.5, "calls": 3}}, "ledgerRecordId": 7}}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	l, err := Open(path, nil)
	require.NoError(t, err)
	mu := l.Month("2025-02")
	require.NotNil(t, mu)
	assert.True(t, mu.Cost.Equal(decimal.RequireFromString("1.5")))
	require.NotNil(t, mu.LedgerRecordID)
	assert.Equal(t, 7, *mu.LedgerRecordID)
}

func TestSetBudget_Persists(t *testing.T) {
	t.Parallel()

	l, path := openTestLedger(t, nil)
	require.NoError(t, l.SetBudget(context.Background(), decimal.NewFromInt(80)))
	require.Error(t, l.SetBudget(context.Background(), decimal.Zero))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.True(t, reopened.Budget().Equal(decimal.NewFromInt(80)))
}

func TestBudget_Precedence(t *testing.T) {
	t.Parallel()

	l, path := openTestLedger(t, nil)
	assert.True(t, l.Budget().Equal(DefaultBudget))
	require.NoError(t, l.SetBudget(context.Background(), decimal.NewFromInt(30)))

	overridden, err := Open(path, nil, WithBudget(decimal.NewFromInt(12)))
	require.NoError(t, err)
	assert.True(t, overridden.Budget().Equal(decimal.NewFromInt(12)))
}

func TestReport_SuggestionsAboveThreshold(t *testing.T) {
	t.Parallel()

	l, _ := openTestLedger(t, nil, WithBudget(decimal.NewFromInt(1)))
	ctx := context.Background()
	_, err := l.RecordUsage(ctx, "documentationWriter", "gpt-4o", 0, 80_000)
	require.NoError(t, err)
	_, err = l.RecordUsage(ctx, "codeReviewer", "gpt-4o-mini", 10, 10)
	require.NoError(t, err)

	report := l.Report("2025-03")
	assert.Contains(t, report, "### Current Usage ⚠️")
	assert.Contains(t, report, "### ⚠️ Budget Alert")
	assert.Contains(t, report, "**documentationWriter** is expensive ($0.8000/call)")
	assert.NotContains(t, report, "**codeReviewer** is expensive")
	assert.Less(t, strings.Index(report, "documentationWriter:"), strings.Index(report, "codeReviewer:"))
	assert.Contains(t, report, "*Last updated: 2025-03-14 09:30 UTC*")
}

func TestSuggestions_GenericWhenEfficient(t *testing.T) {
	t.Parallel()

	l, _ := openTestLedger(t, nil)
	_, err := l.RecordUsage(context.Background(), "codeReviewer", "gpt-4o-mini", 100, 100)
	require.NoError(t, err)

	got := l.Suggestions("2025-03")
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Usage is high but efficient")
}

func TestCostFooter(t *testing.T) {
	t.Parallel()

	l, _ := openTestLedger(t, nil)
	got := l.CostFooter(decimal.RequireFromString("0.00045"), decimal.RequireFromString("1.234"))
	assert.Equal(t, "\n\n---\n💰 **AI Cost:** $0.0005 | **Monthly Total:** $1.23/$50.00", got)
}

func TestSuggestedBudget(t *testing.T) {
	t.Parallel()

	assert.True(t, SuggestedBudget(1).Equal(decimal.NewFromInt(25)))
	assert.True(t, SuggestedBudget(5).Equal(decimal.NewFromInt(50)))
	assert.True(t, SuggestedBudget(12).Equal(decimal.NewFromInt(120)))
}

func TestMonthKey(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2025-02", MonthKey(time.Date(2025, time.March, 1, 5, 0, 0, 0, loc)))
	assert.Equal(t, "March 2025", MonthName("2025-03"))
	assert.Equal(t, "bogus", MonthName("bogus"))
}
