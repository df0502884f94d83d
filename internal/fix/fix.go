// Package fix implements the bounded generate, apply, validate and rollback
// loop of the bug fixer agent.
package fix

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/ledger"
	"github.com/metalagman/caretaker/internal/llm"
	"github.com/metalagman/caretaker/internal/prompt"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultErrorMessage fills errorMessage when the caller gives no context.
const DefaultErrorMessage = "Analyze code for potential issues"

// Reasons reported by skipped results.
const (
	ReasonDisabled = "disabled"
	ReasonExcluded = "excluded"
)

// Attempt outcomes reported to observers and the journal.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// Validator checks the project after a candidate fix was applied. A nil
// error means the fix passes.
type Validator interface {
	Validate(ctx context.Context, filename string) error
}

// Committer records a successful fix in version control.
type Committer interface {
	Commit(ctx context.Context, msg string, paths ...string) error
}

// UsageRecorder meters generation calls.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, agent, model string, inputTokens, outputTokens int) (ledger.Usage, error)
}

// Journal receives run events. history.Journal implements it.
type Journal interface {
	Record(ctx context.Context, typ, message string, data any)
}

// AttemptObserver counts attempts by outcome.
type AttemptObserver interface {
	ObserveAttempt(agent, outcome string)
}

// Result is the terminal record of one Fix call.
type Result struct {
	Filename     string
	Success      bool
	Skipped      bool
	Reason       string
	Attempts     int
	FixedCode    string
	Error        string
	Template     string
	Cost         decimal.Decimal
	MonthlyTotal decimal.Decimal
	// Warnings collects failed best-effort side effects (commit, ledger sync).
	Warnings []string
}

// attempt is the ephemeral state of one generate, apply, validate cycle.
type attempt struct {
	number    int
	generated string
	applied   bool
	passed    bool
}

// Orchestrator runs the fix loop for one agent. It is not safe for
// concurrent use on the same target file.
type Orchestrator struct {
	agent     string
	cfg       *config.Store
	engine    *prompt.Engine
	generator llm.Generator
	usage     UsageRecorder
	validator Validator
	committer Committer
	journal   Journal
	observer  AttemptObserver
	ci        ciOptions
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAgent overrides the agent whose settings drive the loop.
func WithAgent(name string) Option {
	return func(o *Orchestrator) { o.agent = name }
}

// WithJournal records attempts as run events.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithObserver counts attempts.
func WithObserver(obs AttemptObserver) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// New creates an orchestrator for the bug fixer agent. usage and committer
// may be nil.
func New(cfg *config.Store, engine *prompt.Engine, generator llm.Generator, usage UsageRecorder, validator Validator, committer Committer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agent:     config.AgentBugFixer,
		cfg:       cfg,
		engine:    engine,
		generator: generator,
		usage:     usage,
		validator: validator,
		committer: committer,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fix tries to repair filename. Skips and exhausted attempts are reported in
// the result; only an unknown agent, an unreadable target or a failed
// rollback are returned as errors.
func (o *Orchestrator) Fix(ctx context.Context, filename, errorContext string) (Result, error) {
	return o.fix(ctx, filename, errorContext, true)
}

func (o *Orchestrator) fix(ctx context.Context, filename, errorContext string, allowCommit bool) (Result, error) {
	settings, err := o.cfg.Resolve(o.agent)
	if err != nil {
		return Result{}, err
	}
	res := Result{Filename: filename, Template: settings.Template, Cost: decimal.Zero, MonthlyTotal: decimal.Zero}

	if !settings.Enabled {
		log.Info().Str("agent", o.agent).Str("file", filename).Msg("agent disabled, skipping")
		res.Skipped, res.Reason = true, ReasonDisabled
		return res, nil
	}
	if o.cfg.ShouldSkip(o.agent, filename) {
		log.Info().Str("agent", o.agent).Str("file", filename).Msg("file excluded, skipping")
		res.Skipped, res.Reason = true, ReasonExcluded
		return res, nil
	}

	info, err := os.Stat(filename)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrTargetUnreadable, filename, err)
	}
	baseline, err := os.ReadFile(filename)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrTargetUnreadable, filename, err)
	}
	if _, err := o.engine.Lookup(o.agent, settings.Template); err != nil {
		return Result{}, err
	}

	log.Info().
		Str("agent", o.agent).
		Str("file", filename).
		Str("safety_level", string(settings.SafetyLevel)).
		Int("max_attempts", settings.MaxAttemptsPerFile).
		Str("template", settings.Template).
		Msg("fixing file")

	for n := 1; n <= settings.MaxAttemptsPerFile; n++ {
		a := attempt{number: n}
		log.Info().Int("attempt", n).Int("max_attempts", settings.MaxAttemptsPerFile).Str("file", filename).Msg("fix attempt")

		generated, err := o.generate(ctx, settings, filename, string(baseline), errorContext, &res)
		if err != nil {
			log.Warn().Err(err).Int("attempt", n).Str("file", filename).Msg("generation failed")
			o.finishAttempt(ctx, a, err)
			continue
		}
		a.generated = generated

		if err := writeContent(filename, []byte(generated), info.Mode().Perm()); err != nil {
			log.Warn().Err(err).Int("attempt", n).Str("file", filename).Msg("failed to apply fix")
			if rbErr := o.rollback(filename, baseline, info.Mode().Perm()); rbErr != nil {
				return res, rbErr
			}
			o.finishAttempt(ctx, a, err)
			continue
		}
		a.applied = true

		if err := o.validate(ctx, filename); err != nil {
			log.Info().Err(err).Int("attempt", n).Str("file", filename).Msg("validation failed, rolling back")
			if rbErr := o.rollback(filename, baseline, info.Mode().Perm()); rbErr != nil {
				return res, rbErr
			}
			o.finishAttempt(ctx, a, err)
			continue
		}
		a.passed = true
		o.finishAttempt(ctx, a, nil)

		res.Success = true
		res.Attempts = n
		res.FixedCode = generated
		if allowCommit && settings.AutoCommit && o.committer != nil {
			if err := o.committer.Commit(ctx, CommitMessage(filename, errorContext), filename); err != nil {
				log.Warn().Err(err).Str("file", filename).Msg("failed to commit fix")
				res.Warnings = append(res.Warnings, fmt.Sprintf("commit: %v", err))
			} else {
				log.Info().Str("file", filename).Msg("fix committed")
			}
		}
		log.Info().Int("attempts", n).Str("file", filename).Msg("fix validated")
		return res, nil
	}

	res.Attempts = max(settings.MaxAttemptsPerFile, 0)
	res.Error = AttemptsExhausted
	log.Warn().Int("attempts", res.Attempts).Str("file", filename).Msg(AttemptsExhausted)
	return res, nil
}

func (o *Orchestrator) generate(ctx context.Context, s config.Settings, filename, code, errorContext string, res *Result) (string, error) {
	if errorContext == "" {
		errorContext = DefaultErrorMessage
	}
	vars := prompt.Vars{}.
		Set(prompt.KeyCode, code).
		Set(prompt.KeyFilename, filename).
		Set(prompt.KeyLanguage, prompt.DetectLanguage(filename)).
		Set(prompt.KeyErrorMessage, errorContext).
		Set(prompt.KeySafetyLevel, string(s.SafetyLevel)).
		WithCustom(s.CustomVariables)

	body, err := o.engine.GetTemplate(o.agent, s.Template, vars)
	if err != nil {
		return "", err
	}
	if unknown := prompt.UnknownPlaceholders(o.agent, body, vars); len(unknown) > 0 {
		log.Debug().Strs("placeholders", unknown).Msg("template has unfilled placeholders")
	}

	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	resp, err := o.generator.Generate(callCtx, llm.Request{Model: s.Model, Prompt: body, MaxTokens: s.MaxTokens})
	if err != nil {
		return "", err
	}
	o.recordUsage(ctx, s.Model, resp.Usage, res)

	text := llm.StripFences(resp.Text)
	if text == "" {
		return "", errors.New("generated fix is empty")
	}
	return text, nil
}

func (o *Orchestrator) recordUsage(ctx context.Context, model string, u llm.Usage, res *Result) {
	if o.usage == nil {
		return
	}
	usage, err := o.usage.RecordUsage(ctx, o.agent, model, u.InputTokens, u.OutputTokens)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record usage")
		res.Warnings = append(res.Warnings, fmt.Sprintf("record usage: %v", err))
		return
	}
	res.Cost = res.Cost.Add(usage.Cost)
	res.MonthlyTotal = usage.MonthlyTotal
	res.Warnings = append(res.Warnings, usage.Warnings...)
}

func (o *Orchestrator) validate(ctx context.Context, filename string) error {
	if o.validator == nil {
		return nil
	}
	return o.validator.Validate(ctx, filename)
}

func (o *Orchestrator) rollback(filename string, baseline []byte, perm fs.FileMode) error {
	if err := writeContent(filename, baseline, perm); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to restore baseline")
		return fmt.Errorf("%w: %s: %v", ErrRollbackFailed, filename, err)
	}
	return nil
}

func (o *Orchestrator) finishAttempt(ctx context.Context, a attempt, err error) {
	outcome := OutcomePassed
	switch {
	case err != nil && !a.applied:
		outcome = OutcomeError
	case !a.passed:
		outcome = OutcomeFailed
	}
	if o.observer != nil {
		o.observer.ObserveAttempt(o.agent, outcome)
	}
	if o.journal != nil {
		data := map[string]any{"attempt": a.number, "applied": a.applied, "passed": a.passed}
		msg := fmt.Sprintf("attempt %d %s", a.number, outcome)
		if err != nil {
			data["error"] = err.Error()
		}
		o.journal.Record(ctx, "attempt_"+outcome, msg, data)
	}
}

// CommitMessage derives a commit subject from the error context, falling
// back to the file name.
func CommitMessage(filename, errorContext string) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(errorContext), "\n")
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "Resolve issue in " + filename
	}
	if r := []rune(subject); len(r) > 72 {
		subject = string(r[:72])
	}
	return "🤖 Auto-fix: " + subject
}
