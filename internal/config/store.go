package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"
)

// DefaultPath is the config file looked up in the repository root.
const DefaultPath = ".agent-config.json"

const defaultTimeout = 120 * time.Second

// Store holds the effective configuration and answers agent queries.
type Store struct {
	path    string
	cfg     Config
	created bool
}

// NewStore wraps an already merged configuration.
func NewStore(path string, cfg Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Load reads path and merges it over Default. Any read, parse or decode
// failure is recovered by writing Default to path; an unreadable existing
// file is kept next to it with a .bak suffix. The only error returned is a
// failure to persist that default.
func Load(path string) (*Store, error) {
	user, err := readFile(path)
	if err == nil {
		log.Debug().Str("path", path).Msg("config loaded")
		return &Store{path: path, cfg: Merge(user, Default())}, nil
	}

	log.Info().Err(err).Str("path", path).Msg("no usable config, creating default configuration")
	if _, statErr := os.Stat(path); statErr == nil {
		if renameErr := os.Rename(path, path+".bak"); renameErr != nil {
			log.Warn().Err(renameErr).Str("path", path).Msg("failed to back up unreadable config")
		}
	}
	s := &Store{path: path, cfg: Default(), created: true}
	if err := s.Save(); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	return s, nil
}

// readFile keeps keys exactly as written: customVariables and teamStandards
// names reach prompt templates verbatim.
func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		return Config{}, errors.New("parse config: top level must be an object")
	}
	if err := ValidateSettings(raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config does not match schema")
	}
	return Decode(raw)
}

// Decode converts loosely typed settings into a Config without applying defaults.
func Decode(raw map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToSliceHookFunc(" "),
		),
		Result: &cfg,
	})
	if err != nil {
		return Config{}, fmt.Errorf("create config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the store path.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	log.Debug().Str("path", s.path).Msg("config saved")
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Config returns the effective configuration.
func (s *Store) Config() Config { return s.cfg }

// Created reports whether Load had to synthesize the default configuration.
func (s *Store) Created() bool { return s.created }

// IsEnabled reports agent.enabled && global.enabled. Unknown agents are disabled.
func (s *Store) IsEnabled(agent string) bool {
	a, err := s.cfg.Agent(agent)
	if err != nil {
		return false
	}
	return deref(a.Enabled) && deref(s.cfg.Global.Enabled)
}

// ShouldSkip reports whether filename matches one of the agent's exclude patterns.
func (s *Store) ShouldSkip(agent, filename string) bool {
	a, err := s.cfg.Agent(agent)
	if err != nil {
		return false
	}
	for _, pattern := range a.ExcludePatterns {
		if MatchGlob(pattern, filename) {
			return true
		}
	}
	return false
}

// Agent returns the merged block for agent.
func (s *Store) Agent(agent string) (AgentConfig, error) {
	return s.cfg.Agent(agent)
}

// SetTemplate selects the named template for agent and persists the change.
func (s *Store) SetTemplate(agent, name string) error {
	if s.cfg.agentPtr(agent) == nil {
		return &UnknownAgentError{Name: agent}
	}
	if s.cfg.Prompts == nil {
		s.cfg.Prompts = make(map[string]PromptConfig)
	}
	p := s.cfg.Prompts[agent]
	p.Template = name
	s.cfg.Prompts[agent] = p
	return s.Save()
}

// Settings is the fully resolved, pointer-free view of one agent.
type Settings struct {
	Agent               string
	Enabled             bool
	Model               string
	MaxTokens           int
	Timeout             time.Duration
	ExcludePatterns     []string
	FocusAreas          []string
	Severity            Level
	TeamStandards       map[string]any
	SafetyLevel         Level
	MaxAttemptsPerFile  int
	AutoCommit          bool
	AttemptComplexFixes bool
	TestCommand         []string
	Style               string
	VoiceAndTone        string
	IncludeExamples     bool
	GenerateReadme      bool
	Template            string
	CustomVariables     map[string]any
}

// Resolve flattens the agent block, taking model and maxTokens from global
// when the agent leaves them unset.
func (s *Store) Resolve(agent string) (Settings, error) {
	a, err := s.cfg.Agent(agent)
	if err != nil {
		return Settings{}, err
	}
	timeout := defaultTimeout
	if t := deref(s.cfg.Global.TimeoutSeconds); t > 0 {
		timeout = time.Duration(t) * time.Second
	}
	prompt := s.cfg.Prompts[agent]
	template := prompt.Template
	if template == "" {
		template = "default"
	}
	return Settings{
		Agent:               agent,
		Enabled:             s.IsEnabled(agent),
		Model:               deref(pick(a.Model, s.cfg.Global.Model)),
		MaxTokens:           deref(pick(a.MaxTokens, s.cfg.Global.MaxTokens)),
		Timeout:             timeout,
		ExcludePatterns:     a.ExcludePatterns,
		FocusAreas:          a.FocusAreas,
		Severity:            a.Severity,
		TeamStandards:       a.TeamStandards,
		SafetyLevel:         a.SafetyLevel,
		MaxAttemptsPerFile:  deref(a.MaxAttemptsPerFile),
		AutoCommit:          deref(a.AutoCommit),
		AttemptComplexFixes: deref(a.AttemptComplexFixes),
		TestCommand:         a.TestCommand,
		Style:               a.Style,
		VoiceAndTone:        a.VoiceAndTone,
		IncludeExamples:     deref(a.IncludeExamples),
		GenerateReadme:      deref(a.GenerateReadme),
		Template:            template,
		CustomVariables:     prompt.CustomVariables,
	}, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
