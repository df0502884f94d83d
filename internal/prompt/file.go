package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile stores operator-defined templates.
const DefaultFile = ".caretaker/templates.yaml"

type templateFile map[string]map[string]string

// LoadFile adds the templates found in a YAML file of the form
// agent -> name -> body. A missing file is not an error.
func (e *Engine) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read templates: %w", err)
	}
	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return 0, fmt.Errorf("parse templates %s: %w", path, err)
	}
	n := 0
	for agent, table := range tf {
		for name, body := range table {
			e.AddTemplate(agent, name, body)
			n++
		}
	}
	return n, nil
}

// SaveTemplate adds one template to the YAML file at path, keeping the
// templates already stored there.
func SaveTemplate(path, agent, name, body string) error {
	tf := templateFile{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return fmt.Errorf("parse templates %s: %w", path, err)
		}
		if tf == nil {
			tf = templateFile{}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read templates: %w", err)
	}
	if tf[agent] == nil {
		tf[agent] = map[string]string{}
	}
	tf[agent][name] = body

	out, err := yaml.Marshal(tf)
	if err != nil {
		return fmt.Errorf("marshal templates: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create templates dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write templates: %w", err)
	}
	return nil
}
