package main

import (
	"fmt"

	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/docs"
	"github.com/metalagman/caretaker/internal/fix"
	"github.com/metalagman/caretaker/internal/history"
	"github.com/metalagman/caretaker/internal/tracker"
	"github.com/spf13/cobra"
)

func ciCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci",
		Short: "Run agents in continuous integration",
	}
	cmd.AddCommand(ciFixCmd())
	cmd.AddCommand(ciDocsCmd())
	return cmd
}

func ciFixCmd() *cobra.Command {
	var file, errorMessage string
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Fix failing tests, commit, push and comment on the pull request",
		Long: "Run the configured test command, map each failing suite to a source file and fix it. " +
			"Fixed files are committed and pushed together. With --file the test run is skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			settings, err := a.cfg.Resolve(config.AgentBugFixer)
			if err != nil {
				return err
			}
			var source fix.FailureSource = fix.TestOutput{
				Runner: fix.NewCommandValidator(settings.TestCommand, a.root),
				Root:   a.root,
			}
			if file != "" {
				source = fix.Local{File: file, Error: errorMessage}
			}

			journal := history.Begin(ctx, a.history, config.AgentBugFixer, "ci")
			opts := []fix.Option{fix.WithCostFooter(a.ledger.CostFooter)}
			if c := a.committer(ctx); c != nil {
				opts = append(opts, fix.WithPusher(c))
			}
			if n := prNumber(); n > 0 && tracker.Enabled(a.tracker) {
				opts = append(opts, fix.WithPullRequest(a.tracker, n))
			}
			o, err := a.orchestrator(ctx, journal, opts...)
			if err != nil {
				return err
			}

			report, err := o.RunCI(ctx, source)
			if err != nil {
				a.finish(ctx, journal, config.AgentBugFixer, history.Outcome{Status: history.StatusError, Error: err.Error()})
				return err
			}

			out := cmd.OutOrStdout()
			if len(report.Failures) == 0 {
				fmt.Fprintln(out, okStyle.Render("✅ no test failures to fix"))
				a.finish(ctx, journal, config.AgentBugFixer, history.Outcome{Status: history.StatusSkipped, Reason: "no failures"})
				return nil
			}
			for _, res := range report.Results {
				switch {
				case res.Success:
					fmt.Fprintln(out, okStyle.Render("✅ "+res.Filename))
				case res.Skipped:
					printSkipped(out, res.Filename, res.Reason)
				default:
					fmt.Fprintln(out, errStyle.Render(fmt.Sprintf("❌ %s: %s", res.Filename, res.Error)))
				}
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("fixed %d of %d failure(s)", report.Fixed(), len(report.Failures))))
			printCost(out, report.Cost, monthToDate(a.ledger))
			printWarnings(out, report.Warnings)

			status := history.StatusSuccess
			if report.Fixed() < len(report.Failures) {
				status = history.StatusFailed
			}
			a.finish(ctx, journal, config.AgentBugFixer, history.Outcome{
				Status:   status,
				Attempts: report.Fixed(),
				Cost:     report.Cost.String(),
			})
			if report.Fixed() == 0 {
				return errFixFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "fix this file instead of running the test command")
	cmd.Flags().StringVar(&errorMessage, "error", "", "failure context for --file")
	return cmd
}

func ciDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Document API files changed in the last commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			journal := history.Begin(ctx, a.history, config.AgentDocumentationWriter, "ci")
			opts := docs.CIOptions{Footer: a.ledger.CostFooter}
			c := a.committer(ctx)
			if c == nil {
				return fmt.Errorf("ci docs requires a git repository")
			}
			opts.Committer, opts.Pusher = c, c
			if n := prNumber(); n > 0 && tracker.Enabled(a.tracker) {
				opts.Commenter, opts.PRNumber = a.tracker, n
			}

			report, err := docs.New(a.root, a.cfg, a.engine, a.generator, a.ledger).RunCI(ctx, c, opts)
			if err != nil {
				a.finish(ctx, journal, config.AgentDocumentationWriter, history.Outcome{Status: history.StatusError, Error: err.Error()})
				return err
			}

			out := cmd.OutOrStdout()
			if len(report.Files) == 0 {
				fmt.Fprintln(out, okStyle.Render("✅ no API changes detected"))
			}
			for _, res := range report.Results {
				if res.Skipped {
					printSkipped(out, res.Filename, res.Reason)
					continue
				}
				fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("📄 %s → %s", res.Filename, res.DocPath)))
			}
			printCost(out, report.Cost, monthToDate(a.ledger))
			printWarnings(out, report.Warnings)

			journal.Record(ctx, "documented", "ci documentation finished", map[string]any{"files": report.Files, "committed": report.Committed})
			a.finish(ctx, journal, config.AgentDocumentationWriter, history.Outcome{Status: history.StatusSuccess, Cost: report.Cost.String()})
			return nil
		},
	}
}
