package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/metalagman/caretaker/internal/ledger"
	"github.com/metalagman/caretaker/internal/tracker"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func usageCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "usage [month]",
		Short: "Show the usage report for a month (YYYY-MM, default current)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			led, err := openLedger(root, tracker.Nop{})
			if err != nil {
				return err
			}
			month := led.CurrentMonth()
			if len(args) == 1 {
				month = args[0]
			}
			report := led.Report(month)
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), report)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(report, 100))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal rendering")
	return cmd
}

func budgetCmd() *cobra.Command {
	var teamSize int
	cmd := &cobra.Command{
		Use:   "budget [amount]",
		Short: "Set the monthly budget in USD",
		Long:  "Set the monthly budget in USD, or derive it from the team size ($10 per developer, at least $25).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := budgetFromArgs(args, teamSize)
			if err != nil {
				return err
			}
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			led, err := openLedger(root, tracker.Nop{})
			if err != nil {
				return err
			}
			if err := led.SetBudget(cmd.Context(), limit); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			msg := fmt.Sprintf("✅ monthly budget set to $%s", limit.StringFixed(2))
			if teamSize > 0 && len(args) == 0 {
				msg += fmt.Sprintf(" for %d developer(s)", teamSize)
			}
			fmt.Fprintln(out, okStyle.Render(msg))
			if viper.GetString("monthly_budget") != "" {
				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("⚠️  %s is set and overrides the stored budget", envMonthlyBudget)))
			}
			fmt.Fprintln(out, mutedStyle.Render("usage reports appear in issues labelled "+strings.Join(ledger.UsageLabels, ", ")))
			return nil
		},
	}
	cmd.Flags().IntVar(&teamSize, "team-size", 0, "derive the budget from the number of developers")
	return cmd
}

func budgetFromArgs(args []string, teamSize int) (decimal.Decimal, error) {
	switch {
	case len(args) == 1 && teamSize > 0:
		return decimal.Zero, fmt.Errorf("give either an amount or --team-size, not both")
	case len(args) == 1:
		v, err := decimal.NewFromString(strings.TrimPrefix(args[0], "$"))
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", args[0], err)
		}
		if !v.IsPositive() {
			return decimal.Zero, fmt.Errorf("budget must be positive, got %s", v)
		}
		return v, nil
	case teamSize > 0:
		return ledger.SuggestedBudget(teamSize), nil
	}
	return decimal.Zero, fmt.Errorf("give an amount or --team-size")
}
