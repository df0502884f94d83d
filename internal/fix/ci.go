package fix

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CIFixMessage is the commit subject used for fixes made in CI.
const CIFixMessage = "🤖 Auto-fix: Resolve test failures"

// Pusher publishes committed fixes.
type Pusher interface {
	Push(ctx context.Context) error
}

// Commenter posts to a pull request thread.
type Commenter interface {
	Comment(ctx context.Context, threadID int, body string) error
}

// CostFooter renders the cost line appended to pull request comments.
type CostFooter func(cost, monthlyTotal decimal.Decimal) string

type ciOptions struct {
	pusher    Pusher
	commenter Commenter
	prNumber  int
	footer    CostFooter
}

// WithPusher pushes CI fixes after they are committed.
func WithPusher(p Pusher) Option {
	return func(o *Orchestrator) { o.ci.pusher = p }
}

// WithPullRequest posts CI results as a comment on pull request number.
func WithPullRequest(c Commenter, number int) Option {
	return func(o *Orchestrator) {
		o.ci.commenter = c
		o.ci.prNumber = number
	}
}

// WithCostFooter appends footer to CI comments.
func WithCostFooter(footer CostFooter) Option {
	return func(o *Orchestrator) { o.ci.footer = footer }
}

// CIReport summarizes a CI run.
type CIReport struct {
	Failures  []Failure
	Results   []Result
	Committed bool
	Pushed    bool
	Commented bool
	Cost      decimal.Decimal
	Warnings  []string
}

// Fixed counts the successful results.
func (r CIReport) Fixed() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// RunCI fixes every failure reported by source, then commits and pushes all
// fixed files at once and comments on the pull request. Per-fix commits are
// suppressed. Commit, push and comment are best-effort.
func (o *Orchestrator) RunCI(ctx context.Context, source FailureSource) (CIReport, error) {
	report := CIReport{Cost: decimal.Zero}
	failures, err := source.Failures(ctx)
	if err != nil {
		return report, err
	}
	report.Failures = failures
	if len(failures) == 0 {
		return report, nil
	}
	log.Info().Int("failures", len(failures)).Msg("fixing test failures")

	monthly := decimal.Zero
	var fixed []string
	for _, f := range failures {
		log.Info().Str("file", f.File).Msg("trying to fix file")
		res, err := o.fix(ctx, f.File, f.Error, false)
		if err != nil {
			log.Warn().Err(err).Str("file", f.File).Msg("fix aborted")
			res = Result{Filename: f.File, Error: err.Error(), Cost: decimal.Zero}
		}
		report.Results = append(report.Results, res)
		report.Cost = report.Cost.Add(res.Cost)
		report.Warnings = append(report.Warnings, res.Warnings...)
		if res.MonthlyTotal.GreaterThan(monthly) {
			monthly = res.MonthlyTotal
		}
		if res.Success {
			fixed = append(fixed, f.File)
		}
	}

	if len(fixed) == 0 {
		return report, nil
	}

	if o.committer != nil {
		if err := o.committer.Commit(ctx, CIFixMessage, fixed...); err != nil {
			log.Warn().Err(err).Msg("failed to commit fixes")
			report.Warnings = append(report.Warnings, fmt.Sprintf("commit: %v", err))
		} else {
			report.Committed = true
		}
	}
	if report.Committed && o.ci.pusher != nil {
		if err := o.ci.pusher.Push(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to push fixes")
			report.Warnings = append(report.Warnings, fmt.Sprintf("push: %v", err))
		} else {
			report.Pushed = true
			log.Info().Msg("fixes committed and pushed")
		}
	}

	if o.ci.commenter != nil && o.ci.prNumber > 0 {
		body := o.ciComment(report, monthly)
		if err := o.ci.commenter.Comment(ctx, o.ci.prNumber, body); err != nil {
			log.Warn().Err(err).Int("pr", o.ci.prNumber).Msg("failed to post pull request comment")
			report.Warnings = append(report.Warnings, fmt.Sprintf("comment: %v", err))
		} else {
			report.Commented = true
		}
	}
	return report, nil
}

func (o *Orchestrator) ciComment(report CIReport, monthly decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("## 🤖 Automated Bug Fix Results\n\n")
	fmt.Fprintf(&b, "**Test failures detected:** %d\n", len(report.Failures))
	fmt.Fprintf(&b, "**Successfully fixed:** %d\n\n", report.Fixed())
	b.WriteString("### Fixed Issues:\n")
	for _, res := range report.Results {
		if !res.Success {
			continue
		}
		fmt.Fprintf(&b, "- ✅ `%s`: %s\n", res.Filename, summarize(errorFor(report.Failures, res.Filename), 80))
	}
	if report.Committed {
		b.WriteString("\nThe fixes have been committed to this branch. Please review before merging.\n")
	} else {
		b.WriteString("\nThe fixes could not be committed automatically.\n")
	}
	if o.ci.footer != nil {
		b.WriteString(o.ci.footer(report.Cost, monthly))
		b.WriteString("\n*Cost tracking updated in [monthly usage issue](../../issues?q=is:open+label:ai-usage)*\n")
	}
	return b.String()
}

func errorFor(failures []Failure, file string) string {
	for _, f := range failures {
		if f.File == file {
			return f.Error
		}
	}
	return ""
}

func summarize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
