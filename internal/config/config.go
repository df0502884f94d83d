// Package config provides loading, defaulting and querying of agent configuration.
package config

import (
	"fmt"
	"strings"
)

// Known agent names.
const (
	AgentCodeReviewer        = "codeReviewer"
	AgentBugFixer            = "bugFixer"
	AgentDocumentationWriter = "documentationWriter"
)

// Agents lists the registered agent names in a stable order.
var Agents = []string{AgentCodeReviewer, AgentBugFixer, AgentDocumentationWriter}

// Config is the root configuration stored in .agent-config.json.
type Config struct {
	Global              GlobalConfig            `json:"global"              mapstructure:"global"`
	CodeReviewer        AgentConfig             `json:"codeReviewer"        mapstructure:"codeReviewer"`
	BugFixer            AgentConfig             `json:"bugFixer"            mapstructure:"bugFixer"`
	DocumentationWriter AgentConfig             `json:"documentationWriter" mapstructure:"documentationWriter"`
	Prompts             map[string]PromptConfig `json:"prompts,omitempty"   mapstructure:"prompts"`
}

// GlobalConfig holds fallbacks shared by every agent.
type GlobalConfig struct {
	Model          *string `json:"model"                    mapstructure:"model"`
	MaxTokens      *int    `json:"maxTokens"                mapstructure:"maxTokens"`
	Enabled        *bool   `json:"enabled"                  mapstructure:"enabled"`
	TimeoutSeconds *int    `json:"timeoutSeconds,omitempty" mapstructure:"timeoutSeconds"`
}

// AgentConfig describes one agent. Nil pointers mean "not set" and fall back
// to the defaults during Merge, and to Global for model and maxTokens.
type AgentConfig struct {
	Enabled         *bool    `json:"enabled"         mapstructure:"enabled"`
	Model           *string  `json:"model"           mapstructure:"model"`
	MaxTokens       *int     `json:"maxTokens"       mapstructure:"maxTokens"`
	ExcludePatterns []string `json:"excludePatterns" mapstructure:"excludePatterns"`

	// codeReviewer
	FocusAreas    []string       `json:"focusAreas,omitempty"    mapstructure:"focusAreas"`
	Severity      Level          `json:"severity,omitempty"      mapstructure:"severity"`
	TeamStandards map[string]any `json:"teamStandards,omitempty" mapstructure:"teamStandards"`

	// bugFixer
	SafetyLevel         Level    `json:"safetyLevel,omitempty"         mapstructure:"safetyLevel"`
	MaxAttemptsPerFile  *int     `json:"maxAttemptsPerFile,omitempty"  mapstructure:"maxAttemptsPerFile"`
	AutoCommit          *bool    `json:"autoCommit,omitempty"          mapstructure:"autoCommit"`
	AttemptComplexFixes *bool    `json:"attemptComplexFixes,omitempty" mapstructure:"attemptComplexFixes"`
	TestCommand         []string `json:"testCommand,omitempty"         mapstructure:"testCommand"`

	// documentationWriter
	Style           string `json:"style,omitempty"           mapstructure:"style"`
	VoiceAndTone    string `json:"voiceAndTone,omitempty"    mapstructure:"voiceAndTone"`
	IncludeExamples *bool  `json:"includeExamples,omitempty" mapstructure:"includeExamples"`
	GenerateReadme  *bool  `json:"generateReadme,omitempty"  mapstructure:"generateReadme"`
}

// PromptConfig selects the template and extra variables used by an agent.
type PromptConfig struct {
	Template        string         `json:"template"                  mapstructure:"template"`
	CustomVariables map[string]any `json:"customVariables,omitempty" mapstructure:"customVariables"`
}

// Level is a low/medium/high setting such as safetyLevel or severity.
type Level string

// Known levels.
const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// UnmarshalText accepts known levels case-insensitively.
func (l *Level) UnmarshalText(text []byte) error {
	v := Level(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case "", LevelLow, LevelMedium, LevelHigh:
		*l = v
		return nil
	}
	return fmt.Errorf("invalid level %q (want low, medium or high)", string(text))
}

// Agent returns the configuration block for name.
func (c Config) Agent(name string) (AgentConfig, error) {
	p := c.agentPtr(name)
	if p == nil {
		return AgentConfig{}, &UnknownAgentError{Name: name}
	}
	return *p, nil
}

func (c *Config) agentPtr(name string) *AgentConfig {
	switch name {
	case AgentCodeReviewer:
		return &c.CodeReviewer
	case AgentBugFixer:
		return &c.BugFixer
	case AgentDocumentationWriter:
		return &c.DocumentationWriter
	}
	return nil
}
