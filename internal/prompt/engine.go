// Package prompt holds named prompt templates per agent and renders them with
// {variable} substitution.
package prompt

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultTemplate is the name every agent must provide.
const DefaultTemplate = "default"

// ErrUnknownAgent is returned when no template table exists for an agent.
var ErrUnknownAgent = errors.New("no templates for agent")

// Engine is a registry of templates keyed by agent and template name.
type Engine struct {
	mu        sync.RWMutex
	templates map[string]map[string]string
}

// NewEngine returns an engine preloaded with the built-in templates.
func NewEngine() *Engine {
	e := &Engine{templates: make(map[string]map[string]string)}
	for agent, table := range builtin {
		e.templates[agent] = maps.Clone(table)
	}
	return e
}

// GetTemplate renders the named template of agent. An unknown name falls back
// to the agent's default template.
func (e *Engine) GetTemplate(agent, name string, vars Vars) (string, error) {
	body, err := e.Lookup(agent, name)
	if err != nil {
		return "", err
	}
	return Render(body, vars), nil
}

// Lookup returns the raw body of the named template, falling back to default.
func (e *Engine) Lookup(agent, name string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	table, ok := e.templates[agent]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
	}
	if body, ok := table[name]; ok {
		return body, nil
	}
	if name != DefaultTemplate {
		log.Debug().Str("agent", agent).Str("template", name).Msg("template not found, using default")
	}
	body, ok := table[DefaultTemplate]
	if !ok {
		return "", fmt.Errorf("agent %s has no %s template", agent, DefaultTemplate)
	}
	return body, nil
}

// AddTemplate inserts or replaces a template. The body is not validated.
func (e *Engine) AddTemplate(agent, name, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	table, ok := e.templates[agent]
	if !ok {
		table = make(map[string]string)
		e.templates[agent] = table
	}
	table[name] = body
	log.Debug().Str("agent", agent).Str("template", name).Msg("template added")
}

// ListTemplates returns the sorted template names of agent, or nil when the
// agent is unknown.
func (e *Engine) ListTemplates(agent string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Sorted(maps.Keys(e.templates[agent]))
}

// Agents returns the sorted agent names with a template table.
func (e *Engine) Agents() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Sorted(maps.Keys(e.templates))
}
