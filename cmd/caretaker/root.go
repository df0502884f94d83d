package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/ledger"
	"github.com/metalagman/caretaker/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Environment variables bound into viper.
const (
	envMonthlyBudget = "CARETAKER_MONTHLY_BUDGET"
	envPRNumber      = "PR_NUMBER"
)

var (
	cfgFile     string
	usageFile   string
	metricsFile string
	debug       bool
	rootCmd     = &cobra.Command{
		Use:          "caretaker",
		Short:        "caretaker runs code review, bug fixing and documentation agents",
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	cobra.OnInitialize(initConfig)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", config.DefaultPath, "agent config file path")
	flags.StringVar(&usageFile, "usage-file", ledger.DefaultPath, "usage ledger file path")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	for _, name := range []string{"config", "usage-file", "metrics-file", "debug"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind %s flag: %w", name, err)
		}
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(viper.GetBool("debug"))
	}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(ciCmd())
	rootCmd.AddCommand(usageCmd())
	rootCmd.AddCommand(budgetCmd())
	rootCmd.AddCommand(templatesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(historyCmd())
	return rootCmd.Execute()
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	_ = viper.BindEnv("monthly_budget", envMonthlyBudget)
	_ = viper.BindEnv("pr_number", envPRNumber)
}
