package fix

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/ledger"
	"github.com/metalagman/caretaker/internal/llm"
	"github.com/metalagman/caretaker/internal/prompt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type scriptedGenerator struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.prompts)
	g.prompts = append(g.prompts, req.Prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return llm.Response{}, g.errs[i]
	}
	out := ""
	if i < len(g.outputs) {
		out = g.outputs[i]
	}
	return llm.Response{Text: out, Usage: llm.Usage{InputTokens: 1000, OutputTokens: 500}}, nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// contentValidator passes only when the file holds want, recording what it saw.
type contentValidator struct {
	want string
	seen []string
}

func (v *contentValidator) Validate(_ context.Context, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	v.seen = append(v.seen, string(data))
	if string(data) != v.want {
		return errors.New("tests failed")
	}
	return nil
}

type fakeCommitter struct {
	err     error
	commits []string
	paths   [][]string
	pushes  int
}

func (c *fakeCommitter) Commit(_ context.Context, msg string, paths ...string) error {
	c.commits = append(c.commits, msg)
	c.paths = append(c.paths, paths)
	return c.err
}

func (c *fakeCommitter) Push(context.Context) error {
	c.pushes++
	return nil
}

type fakeUsage struct {
	err   error
	calls int
}

func (u *fakeUsage) RecordUsage(_ context.Context, _, model string, in, out int) (ledger.Usage, error) {
	u.calls++
	if u.err != nil {
		return ledger.Usage{}, u.err
	}
	cost := ledger.Cost(model, in, out)
	return ledger.Usage{Cost: cost, MonthlyTotal: cost.Mul(decimal.NewFromInt(int64(u.calls)))}, nil
}

type recordingJournal struct {
	types []string
}

func (j *recordingJournal) Record(_ context.Context, typ, _ string, _ any) {
	j.types = append(j.types, typ)
}

func newStore(t *testing.T, mutate func(*config.Config)) *config.Store {
	t.Helper()
	cfg := config.Default()
	cfg.BugFixer.AutoCommit = ptr(false)
	if mutate != nil {
		mutate(&cfg)
	}
	return config.NewStore(filepath.Join(t.TempDir(), config.DefaultPath), cfg)
}

func writeTarget(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.js")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readTarget(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFix_RollsBackFailedAttempt(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	gen := &scriptedGenerator{outputs: []string{"B"}}
	val := &contentValidator{want: "never"}
	store := newStore(t, func(c *config.Config) { c.BugFixer.MaxAttemptsPerFile = ptr(1) })

	res, err := New(store, prompt.NewEngine(), gen, nil, val, nil).Fix(context.Background(), target, "TypeError")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, AttemptsExhausted, res.Error)
	assert.Equal(t, []string{"B"}, val.seen)
	assert.Equal(t, "A", readTarget(t, target))
}

func TestFix_SucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "const total = items.reduce(sum)")
	gen := &scriptedGenerator{outputs: []string{"fix-1", "fix-2", "```javascript\nfix-3\n```"}}
	val := &contentValidator{want: "fix-3"}
	journal := &recordingJournal{}
	store := newStore(t, func(c *config.Config) { c.BugFixer.MaxAttemptsPerFile = ptr(3) })

	res, err := New(store, prompt.NewEngine(), gen, nil, val, nil, WithJournal(journal)).
		Fix(context.Background(), target, "TypeError: sum is not a function")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "fix-3", res.FixedCode)
	assert.Equal(t, "fix-3", readTarget(t, target))
	assert.Equal(t, []string{"fix-1", "fix-2", "fix-3"}, val.seen)
	assert.Equal(t, []string{"attempt_failed", "attempt_failed", "attempt_passed"}, journal.types)

	require.Len(t, gen.prompts, 3)
	for _, p := range gen.prompts {
		assert.Contains(t, p, "const total = items.reduce(sum)")
		assert.Contains(t, p, "TypeError: sum is not a function")
	}
}

func TestFix_ZeroAttempts(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	gen := &scriptedGenerator{outputs: []string{"B"}}
	store := newStore(t, func(c *config.Config) { c.BugFixer.MaxAttemptsPerFile = ptr(0) })

	res, err := New(store, prompt.NewEngine(), gen, nil, &contentValidator{want: "B"}, nil).Fix(context.Background(), target, "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Attempts)
	assert.Equal(t, AttemptsExhausted, res.Error)
	assert.Zero(t, gen.calls())
	assert.Equal(t, "A", readTarget(t, target))
}

func TestFix_NegativeAttemptsReportZero(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	store := newStore(t, func(c *config.Config) { c.BugFixer.MaxAttemptsPerFile = ptr(-2) })

	res, err := New(store, prompt.NewEngine(), &scriptedGenerator{}, nil, nil, nil).Fix(context.Background(), target, "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Attempts)
}

func TestFix_Gate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		reason string
	}{
		{name: "agent disabled", mutate: func(c *config.Config) { c.BugFixer.Enabled = ptr(false) }, reason: ReasonDisabled},
		{name: "global disabled", mutate: func(c *config.Config) { c.Global.Enabled = ptr(false) }, reason: ReasonDisabled},
		{name: "excluded", mutate: func(c *config.Config) { c.BugFixer.ExcludePatterns = []string{"*cart.js"} }, reason: ReasonExcluded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target := writeTarget(t, "A")
			gen := &scriptedGenerator{outputs: []string{"B"}}
			res, err := New(newStore(t, tt.mutate), prompt.NewEngine(), gen, nil, nil, nil).Fix(context.Background(), target, "")
			require.NoError(t, err)
			assert.True(t, res.Skipped)
			assert.Equal(t, tt.reason, res.Reason)
			assert.False(t, res.Success)
			assert.Zero(t, gen.calls())
			assert.Equal(t, "A", readTarget(t, target))
		})
	}
}

func TestFix_GenerationFailureConsumesAttempt(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	gen := &scriptedGenerator{
		outputs: []string{"", "good"},
		errs:    []error{&llm.GenerationError{Provider: "openai", Model: "gpt-4o-mini", Err: errors.New("quota")}},
	}
	val := &contentValidator{want: "good"}
	store := newStore(t, func(c *config.Config) { c.BugFixer.MaxAttemptsPerFile = ptr(2) })

	res, err := New(store, prompt.NewEngine(), gen, nil, val, nil).Fix(context.Background(), target, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []string{"good"}, val.seen)
}

func TestFix_CommitFailureIsWarning(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	committer := &fakeCommitter{err: errors.New("not a git repository")}
	store := newStore(t, func(c *config.Config) { c.BugFixer.AutoCommit = ptr(true) })

	res, err := New(store, prompt.NewEngine(), &scriptedGenerator{outputs: []string{"B"}}, nil, &contentValidator{want: "B"}, committer).
		Fix(context.Background(), target, "TypeError: x is undefined\n    at cart.js:3")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "commit")
	assert.Equal(t, []string{"🤖 Auto-fix: TypeError: x is undefined"}, committer.commits)
	assert.Equal(t, [][]string{{target}}, committer.paths)
}

func TestFix_NoCommitWhenAutoCommitOff(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	committer := &fakeCommitter{}

	res, err := New(newStore(t, nil), prompt.NewEngine(), &scriptedGenerator{outputs: []string{"B"}}, nil, &contentValidator{want: "B"}, committer).
		Fix(context.Background(), target, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, committer.commits)
}

func TestFix_RecordsUsagePerGeneration(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	usage := &fakeUsage{}
	store := newStore(t, func(c *config.Config) { c.BugFixer.MaxAttemptsPerFile = ptr(2) })

	res, err := New(store, prompt.NewEngine(), &scriptedGenerator{outputs: []string{"B", "C"}}, usage, &contentValidator{want: "C"}, nil).
		Fix(context.Background(), target, "")
	require.NoError(t, err)
	assert.Equal(t, 2, usage.calls)
	assert.True(t, res.Cost.Equal(decimal.RequireFromString("0.0009")), "got %s", res.Cost)
}

func TestFix_UsageFailureIsWarning(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	usage := &fakeUsage{err: errors.New("disk full")}

	res, err := New(newStore(t, nil), prompt.NewEngine(), &scriptedGenerator{outputs: []string{"B"}}, usage, &contentValidator{want: "B"}, nil).
		Fix(context.Background(), target, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "disk full")
}

func TestFix_UnreadableTarget(t *testing.T) {
	t.Parallel()

	_, err := New(newStore(t, nil), prompt.NewEngine(), &scriptedGenerator{}, nil, nil, nil).
		Fix(context.Background(), filepath.Join(t.TempDir(), "missing.js"), "")
	require.ErrorIs(t, err, ErrTargetUnreadable)
}

func TestFix_UnknownAgent(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	_, err := New(newStore(t, nil), prompt.NewEngine(), &scriptedGenerator{}, nil, nil, nil, WithAgent("linter")).
		Fix(context.Background(), target, "")
	require.ErrorIs(t, err, config.ErrUnknownAgent)
}

func TestFix_UsesConfiguredTemplateAndCustomVariables(t *testing.T) {
	t.Parallel()

	target := writeTarget(t, "A")
	engine := prompt.NewEngine()
	engine.AddTemplate(config.AgentBugFixer, "team", "Fix {filename} for {team} at {safetyLevel}")
	gen := &scriptedGenerator{outputs: []string{"B"}}
	store := newStore(t, func(c *config.Config) {
		c.Prompts[config.AgentBugFixer] = config.PromptConfig{Template: "team", CustomVariables: map[string]any{"team": "payments"}}
	})

	res, err := New(store, engine, gen, nil, nil, nil).Fix(context.Background(), target, "")
	require.NoError(t, err)
	assert.Equal(t, "team", res.Template)
	require.Len(t, gen.prompts, 1)
	assert.Equal(t, "Fix "+target+" for payments at medium", gen.prompts[0])
}

func TestCommitMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "🤖 Auto-fix: Resolve issue in cart.js", CommitMessage("cart.js", ""))
	assert.Equal(t, "🤖 Auto-fix: first line", CommitMessage("cart.js", "  first line\nsecond"))
	long := strings.Repeat("x", 100)
	assert.Equal(t, "🤖 Auto-fix: "+strings.Repeat("x", 72), CommitMessage("cart.js", long))
}
