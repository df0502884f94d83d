package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/docs"
	"github.com/metalagman/caretaker/internal/fix"
	"github.com/metalagman/caretaker/internal/git"
	"github.com/metalagman/caretaker/internal/history"
	"github.com/metalagman/caretaker/internal/review"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var errFixFailed = errors.New("fix failed")

var agentCommands = map[string]string{
	"fix":                           config.AgentBugFixer,
	config.AgentBugFixer:            config.AgentBugFixer,
	"review":                        config.AgentCodeReviewer,
	config.AgentCodeReviewer:        config.AgentCodeReviewer,
	"docs":                          config.AgentDocumentationWriter,
	config.AgentDocumentationWriter: config.AgentDocumentationWriter,
}

// resolveAgent maps a command alias to the agent name.
func resolveAgent(command string) (string, error) {
	if agent, ok := agentCommands[command]; ok {
		return agent, nil
	}
	names := make([]string, 0, len(agentCommands))
	for name := range agentCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return "", fmt.Errorf("unknown agent command %q (want one of %s)", command, strings.Join(names, ", "))
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <agentCommand> <filename> [errorMessage]",
		Short: "Run an agent against one file",
		Long: "Run an agent against one file. agentCommand is fix (bugFixer), review (codeReviewer) " +
			"or docs (documentationWriter). errorMessage gives the bug fixer failure context.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := resolveAgent(args[0])
			if err != nil {
				return err
			}
			filename := args[1]
			if _, err := os.Stat(filename); err != nil {
				return fmt.Errorf("file not found: %s", filename)
			}
			errorMessage := ""
			if len(args) == 3 {
				errorMessage = args[2]
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			journal := history.Begin(ctx, a.history, agent, filename)
			switch agent {
			case config.AgentBugFixer:
				return a.runFix(ctx, cmd, journal, filename, errorMessage)
			case config.AgentCodeReviewer:
				return a.runReview(ctx, cmd, journal, filename)
			default:
				return a.runDocs(ctx, cmd, journal, filename)
			}
		},
	}
}

func (a *app) committer(ctx context.Context) *git.Committer {
	if !git.Available(ctx, a.root) {
		log.Debug().Str("dir", a.root).Msg("not a git repository, commits disabled")
		return nil
	}
	return git.NewCommitter(a.root)
}

func (a *app) orchestrator(ctx context.Context, journal *history.Journal, opts ...fix.Option) (*fix.Orchestrator, error) {
	settings, err := a.cfg.Resolve(config.AgentBugFixer)
	if err != nil {
		return nil, err
	}
	var committer fix.Committer
	if c := a.committer(ctx); c != nil {
		committer = c
	}
	opts = append([]fix.Option{fix.WithJournal(journal), fix.WithObserver(a.metrics)}, opts...)
	validator := fix.NewCommandValidator(settings.TestCommand, a.root)
	return fix.New(a.cfg, a.engine, a.generator, a.ledger, validator, committer, opts...), nil
}

func (a *app) runFix(ctx context.Context, cmd *cobra.Command, journal *history.Journal, filename, errorMessage string) error {
	o, err := a.orchestrator(ctx, journal)
	if err != nil {
		return err
	}
	res, err := o.Fix(ctx, filename, errorMessage)
	if err != nil {
		a.finish(ctx, journal, config.AgentBugFixer, history.Outcome{Status: history.StatusError, Error: err.Error()})
		return err
	}

	out := cmd.OutOrStdout()
	status := history.StatusSuccess
	switch {
	case res.Skipped:
		status = history.StatusSkipped
		printSkipped(out, filename, res.Reason)
	case res.Success:
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("✅ fixed %s in %d attempt(s)", filename, res.Attempts)))
	default:
		status = history.StatusFailed
		fmt.Fprintln(out, errStyle.Render(fmt.Sprintf("❌ %s after %d attempt(s): %s", filename, res.Attempts, res.Error)))
	}
	printCost(out, res.Cost, res.MonthlyTotal)
	printWarnings(out, res.Warnings)

	a.finish(ctx, journal, config.AgentBugFixer, history.Outcome{
		Status:   status,
		Attempts: res.Attempts,
		Cost:     res.Cost.String(),
		Template: res.Template,
		Reason:   res.Reason,
		Error:    res.Error,
	})
	if status == history.StatusFailed {
		return errFixFailed
	}
	return nil
}

func (a *app) runReview(ctx context.Context, cmd *cobra.Command, journal *history.Journal, filename string) error {
	res, err := review.New(a.cfg, a.engine, a.generator, a.ledger).Review(ctx, filename)
	if err != nil {
		a.finish(ctx, journal, config.AgentCodeReviewer, history.Outcome{Status: history.StatusError, Error: err.Error()})
		return err
	}
	out := cmd.OutOrStdout()
	if res.Skipped {
		printSkipped(out, filename, res.Reason)
		a.finish(ctx, journal, config.AgentCodeReviewer, history.Outcome{Status: history.StatusSkipped, Template: res.Template, Reason: res.Reason})
		return nil
	}

	fmt.Fprintln(out, titleStyle.Render("🔍 Review of "+res.Filename))
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("template %s, %s", res.Template, res.Timestamp.Format(time.RFC3339))))
	fmt.Fprint(out, renderMarkdown(res.Analysis, 100))
	printCost(out, res.Cost, res.MonthlyTotal)
	printWarnings(out, res.Warnings)

	journal.Record(ctx, "analysis", "review finished", map[string]any{"length": len(res.Analysis)})
	a.finish(ctx, journal, config.AgentCodeReviewer, history.Outcome{Status: history.StatusSuccess, Cost: res.Cost.String(), Template: res.Template})
	return nil
}

func (a *app) runDocs(ctx context.Context, cmd *cobra.Command, journal *history.Journal, filename string) error {
	res, err := docs.New(a.root, a.cfg, a.engine, a.generator, a.ledger).Generate(ctx, filename)
	if err != nil {
		a.finish(ctx, journal, config.AgentDocumentationWriter, history.Outcome{Status: history.StatusError, Error: err.Error()})
		return err
	}
	out := cmd.OutOrStdout()
	if res.Skipped {
		printSkipped(out, filename, res.Reason)
		a.finish(ctx, journal, config.AgentDocumentationWriter, history.Outcome{Status: history.StatusSkipped, Template: res.Template, Reason: res.Reason})
		return nil
	}

	fmt.Fprintln(out, okStyle.Render("📚 documentation written to "+res.DocPath))
	if res.IndexUpdated {
		fmt.Fprintln(out, mutedStyle.Render("README.md documentation index updated"))
	}
	printCost(out, res.Cost, res.MonthlyTotal)
	printWarnings(out, res.Warnings)

	journal.Record(ctx, "written", "documentation written", map[string]any{"path": res.DocPath, "index_updated": res.IndexUpdated})
	a.finish(ctx, journal, config.AgentDocumentationWriter, history.Outcome{Status: history.StatusSuccess, Cost: res.Cost.String(), Template: res.Template})
	return nil
}

func (a *app) finish(ctx context.Context, journal *history.Journal, agent string, out history.Outcome) {
	if out.Cost == "" {
		out.Cost = decimal.Zero.String()
	}
	journal.Finish(ctx, out)
	a.metrics.ObserveRun(agent, out.Status)
}
