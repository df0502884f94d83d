package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/prompt"
	"github.com/spf13/cobra"
)

type builderStep int

const (
	stepAgent builderStep = iota
	stepName
	stepBody
	stepPreview
)

const previewLimit = 200

// builderModel walks through agent selection, naming, editing and preview of
// a custom template.
type builderModel struct {
	step      builderStep
	agents    []string
	cursor    int
	nameInput textinput.Model
	bodyInput textarea.Model
	status    string

	agent string
	name  string
	body  string
	saved bool
}

func newBuilderModel() builderModel {
	nameInput := textinput.New()
	nameInput.Prompt = "Template name: "
	nameInput.Placeholder = "security-focused"

	bodyInput := textarea.New()
	bodyInput.Placeholder = "Write the template, using {variables}..."
	bodyInput.Prompt = ""
	bodyInput.SetWidth(96)
	bodyInput.SetHeight(12)

	return builderModel{
		step:      stepAgent,
		agents:    config.Agents,
		nameInput: nameInput,
		bodyInput: bodyInput,
	}
}

func (m builderModel) Init() tea.Cmd {
	return nil
}

func (m builderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateInputs(msg)
	}
	if key.String() == "ctrl+c" || (key.String() == "esc" && m.step != stepBody) {
		return m, tea.Quit
	}

	switch m.step {
	case stepAgent:
		switch key.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.agents)-1 {
				m.cursor++
			}
		case "enter":
			m.agent = m.agents[m.cursor]
			m.step = stepName
			return m, m.nameInput.Focus()
		}
		return m, nil
	case stepName:
		if key.String() == "enter" {
			name := strings.TrimSpace(m.nameInput.Value())
			if name == "" {
				m.status = "name must not be empty"
				return m, nil
			}
			m.name, m.status = name, ""
			m.nameInput.Blur()
			m.step = stepBody
			return m, m.bodyInput.Focus()
		}
	case stepBody:
		switch key.String() {
		case "ctrl+s":
			body := strings.TrimSpace(m.bodyInput.Value())
			if body == "" {
				m.status = "template must not be empty"
				return m, nil
			}
			m.body, m.status = body, ""
			m.bodyInput.Blur()
			m.step = stepPreview
			return m, nil
		case "esc":
			m.bodyInput.Blur()
			m.step = stepName
			return m, m.nameInput.Focus()
		}
	case stepPreview:
		switch key.String() {
		case "y":
			m.saved = true
			return m, tea.Quit
		case "n":
			return m, tea.Quit
		case "e":
			m.step = stepBody
			return m, m.bodyInput.Focus()
		}
		return m, nil
	}
	return m.updateInputs(msg)
}

func (m builderModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.step {
	case stepName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case stepBody:
		m.bodyInput, cmd = m.bodyInput.Update(msg)
	}
	return m, cmd
}

func (m builderModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🎨 Custom Template Builder"))
	b.WriteString("\n\n")

	switch m.step {
	case stepAgent:
		b.WriteString("Which agent?\n")
		for i, agent := range m.agents {
			line := "  " + agent
			if i == m.cursor {
				line = okStyle.Render("> " + agent)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(mutedStyle.Render("\nup/down to move, enter to select, esc to quit"))
	case stepName:
		fmt.Fprintf(&b, "Agent: %s\n\n", m.agent)
		b.WriteString(m.nameInput.View())
		b.WriteString(mutedStyle.Render("\n\nenter to continue"))
	case stepBody:
		fmt.Fprintf(&b, "Agent: %s  Template: %s\n", m.agent, m.name)
		b.WriteString(mutedStyle.Render("Available variables: " + availableVariables(m.agent)))
		b.WriteString("\n\n")
		b.WriteString(m.bodyInput.View())
		b.WriteString(mutedStyle.Render("\n\nctrl+s to preview, esc to go back"))
	case stepPreview:
		b.WriteString(m.preview())
		b.WriteString(mutedStyle.Render("\n\nsave and use this template? y/n, e to edit"))
	}
	if m.status != "" {
		b.WriteString("\n" + errStyle.Render(m.status))
	}
	return b.String() + "\n"
}

func (m builderModel) preview() string {
	var b strings.Builder
	b.WriteString(okStyle.Render("✅ Template compiled successfully"))
	b.WriteString("\n📝 Sample output:\n")
	rendered := prompt.Render(m.body, sampleVars())
	if r := []rune(rendered); len(r) > previewLimit {
		rendered = string(r[:previewLimit])
	}
	b.WriteString(rendered + "...\n")
	for _, p := range prompt.UnknownPlaceholders(m.agent, m.body, nil) {
		b.WriteString(warnStyle.Render(fmt.Sprintf("⚠️  {%s} is not a known variable", p)) + "\n")
	}
	return b.String()
}

func availableVariables(agent string) string {
	keys := prompt.KnownKeys(agent)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = "{" + string(k) + "}"
	}
	return strings.Join(names, " ")
}

func templatesBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Interactively build, preview and save a custom template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			final, err := tea.NewProgram(newBuilderModel(), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return fmt.Errorf("run template builder: %w", err)
			}
			m, ok := final.(builderModel)
			if !ok || !m.saved {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("template discarded"))
				return nil
			}
			return saveTemplate(cmd.OutOrStdout(), root, m.agent, m.name, m.body, true)
		},
	}
}
