package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/prompt"
	"github.com/spf13/cobra"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage prompt templates",
	}
	cmd.AddCommand(templatesListCmd())
	cmd.AddCommand(templatesShowCmd())
	cmd.AddCommand(templatesAddCmd())
	cmd.AddCommand(templatesUseCmd())
	cmd.AddCommand(templatesBuildCmd())
	return cmd
}

// sampleVars fills every known key with example values for previews.
func sampleVars() prompt.Vars {
	return prompt.Vars{}.
		Set(prompt.KeyCode, `function test() { return "example"; }`).
		Set(prompt.KeyFilename, "test.js").
		Set(prompt.KeyLanguage, "javascript").
		Set(prompt.KeyFocusAreas, []string{"bugs", "security"}).
		Set(prompt.KeySeverity, "medium").
		Set(prompt.KeyTeamStandards, `{"maxFunctionLength": 50}`).
		Set(prompt.KeyErrorMessage, "Example error").
		Set(prompt.KeySafetyLevel, "medium").
		Set(prompt.KeyStyle, "standard").
		Set(prompt.KeyVoiceAndTone, "professional").
		Set(prompt.KeyIncludeExamples, true).
		Set(prompt.KeyExistingDocs, "")
}

func templatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [agent]",
		Short: "List templates per agent, marking the active one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			engine, err := loadEngine(root)
			if err != nil {
				return err
			}
			agents := engine.Agents()
			if len(args) == 1 {
				agents = []string{args[0]}
			}
			return listTemplates(cmd.OutOrStdout(), cfg, engine, agents)
		},
	}
}

func listTemplates(w io.Writer, cfg *config.Store, engine *prompt.Engine, agents []string) error {
	for _, agent := range agents {
		names := engine.ListTemplates(agent)
		if names == nil {
			return fmt.Errorf("%w: %s", prompt.ErrUnknownAgent, agent)
		}
		active := prompt.DefaultTemplate
		if s, err := cfg.Resolve(agent); err == nil {
			active = s.Template
		}
		fmt.Fprintln(w, titleStyle.Render(agent))
		for _, name := range names {
			if name == active {
				fmt.Fprintln(w, okStyle.Render("  * "+name))
				continue
			}
			fmt.Fprintln(w, "    "+name)
		}
	}
	return nil
}

func templatesShowCmd() *cobra.Command {
	var render bool
	cmd := &cobra.Command{
		Use:   "show <agent> [name]",
		Short: "Print a template body (the active one by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			engine, err := loadEngine(root)
			if err != nil {
				return err
			}
			agent := args[0]
			name := prompt.DefaultTemplate
			if len(args) == 2 {
				name = args[1]
			} else if cfg, err := loadConfig(root); err == nil {
				if s, err := cfg.Resolve(agent); err == nil {
					name = s.Template
				}
			}
			body, err := engine.Lookup(agent, name)
			if err != nil {
				return err
			}
			if render {
				body = prompt.Render(body, sampleVars())
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "fill placeholders with sample values")
	return cmd
}

func templatesAddCmd() *cobra.Command {
	var file string
	var use bool
	cmd := &cobra.Command{
		Use:   "add <agent> <name>",
		Short: "Store a custom template read from --file or stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, name := args[0], args[1]
			var data []byte
			var err error
			if file != "" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			body := strings.TrimRight(string(data), "\n")
			if strings.TrimSpace(body) == "" {
				return fmt.Errorf("template body is empty")
			}
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			return saveTemplate(cmd.OutOrStdout(), root, agent, name, body, use)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the template body from this file")
	cmd.Flags().BoolVar(&use, "use", false, "make the template active for the agent")
	return cmd
}

// saveTemplate persists body to the templates file and optionally selects it.
func saveTemplate(w io.Writer, root, agent, name, body string, use bool) error {
	if !slices.Contains(config.Agents, agent) {
		return &config.UnknownAgentError{Name: agent}
	}
	for _, p := range prompt.UnknownPlaceholders(agent, body, nil) {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("⚠️  {%s} is not a known variable and needs a custom variable", p)))
	}
	path := filepath.Join(root, prompt.DefaultFile)
	if err := prompt.SaveTemplate(path, agent, name, body); err != nil {
		return err
	}
	fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("✅ saved template %q for %s", name, agent)))
	if !use {
		return nil
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := cfg.SetTemplate(agent, name); err != nil {
		return err
	}
	fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("✅ %s now uses the %q template", agent, name)))
	return nil
}

func templatesUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <agent> <name>",
		Short: "Select the template an agent uses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			engine, err := loadEngine(root)
			if err != nil {
				return err
			}
			agent, name := args[0], args[1]
			if _, err := engine.Lookup(agent, name); err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if err := cfg.SetTemplate(agent, name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("✅ %s now uses the %q template", agent, name)))
			return nil
		},
	}
}
