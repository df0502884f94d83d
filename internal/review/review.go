// Package review runs the code reviewer agent on a single file.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/ledger"
	"github.com/metalagman/caretaker/internal/llm"
	"github.com/metalagman/caretaker/internal/prompt"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// UsageRecorder meters generation calls.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, agent, model string, inputTokens, outputTokens int) (ledger.Usage, error)
}

// Result is a finished or skipped review.
type Result struct {
	Filename     string
	Skipped      bool
	Reason       string
	Analysis     string
	Template     string
	Timestamp    time.Time
	Cost         decimal.Decimal
	MonthlyTotal decimal.Decimal
	Warnings     []string
}

// Reviewer reviews files with the codeReviewer settings.
type Reviewer struct {
	cfg       *config.Store
	engine    *prompt.Engine
	generator llm.Generator
	usage     UsageRecorder
	now       func() time.Time
}

// New creates a reviewer. usage may be nil.
func New(cfg *config.Store, engine *prompt.Engine, generator llm.Generator, usage UsageRecorder) *Reviewer {
	return &Reviewer{cfg: cfg, engine: engine, generator: generator, usage: usage, now: time.Now}
}

// Review analyzes filename. Disabled and excluded files are skipped.
func (r *Reviewer) Review(ctx context.Context, filename string) (Result, error) {
	const agent = config.AgentCodeReviewer
	s, err := r.cfg.Resolve(agent)
	if err != nil {
		return Result{}, err
	}
	res := Result{Filename: filename, Template: s.Template, Cost: decimal.Zero, MonthlyTotal: decimal.Zero}
	if !s.Enabled {
		res.Skipped, res.Reason = true, "disabled"
		return res, nil
	}
	if r.cfg.ShouldSkip(agent, filename) {
		res.Skipped, res.Reason = true, "excluded"
		return res, nil
	}

	code, err := os.ReadFile(filename)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", filename, err)
	}
	standards, err := json.MarshalIndent(s.TeamStandards, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode team standards: %w", err)
	}
	vars := prompt.Vars{}.
		Set(prompt.KeyCode, string(code)).
		Set(prompt.KeyFilename, filename).
		Set(prompt.KeyLanguage, prompt.DetectLanguage(filename)).
		Set(prompt.KeyFocusAreas, s.FocusAreas).
		Set(prompt.KeySeverity, string(s.Severity)).
		Set(prompt.KeyTeamStandards, string(standards)).
		WithCustom(s.CustomVariables)

	body, err := r.engine.GetTemplate(agent, s.Template, vars)
	if err != nil {
		return Result{}, err
	}
	log.Info().Str("file", filename).Str("template", s.Template).Msg("reviewing file")

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	resp, err := r.generator.Generate(ctx, llm.Request{Model: s.Model, Prompt: body, MaxTokens: s.MaxTokens})
	if err != nil {
		return Result{}, fmt.Errorf("review %s: %w", filename, err)
	}

	if r.usage != nil {
		u, err := r.usage.RecordUsage(context.WithoutCancel(ctx), agent, s.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		if err != nil {
			log.Warn().Err(err).Msg("failed to record usage")
			res.Warnings = append(res.Warnings, fmt.Sprintf("record usage: %v", err))
		} else {
			res.Cost, res.MonthlyTotal = u.Cost, u.MonthlyTotal
			res.Warnings = append(res.Warnings, u.Warnings...)
		}
	}

	res.Analysis = resp.Text
	res.Timestamp = r.now().UTC()
	return res, nil
}
