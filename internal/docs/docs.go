// Package docs runs the documentation writer agent and maintains the
// documentation index in README.md.
package docs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/metalagman/caretaker/internal/config"
	"github.com/metalagman/caretaker/internal/ledger"
	"github.com/metalagman/caretaker/internal/llm"
	"github.com/metalagman/caretaker/internal/prompt"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	// Dir holds generated documentation relative to the repository root.
	Dir = "docs"
	// ReadmeFile receives the documentation index.
	ReadmeFile = "README.md"

	existingDocsLimit = 500
	indexHeading      = "## Documentation"
	defaultReadme     = "# Project Documentation\n\n"
)

// UsageRecorder meters generation calls.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, agent, model string, inputTokens, outputTokens int) (ledger.Usage, error)
}

// Result describes one generated document.
type Result struct {
	Filename      string
	Skipped       bool
	Reason        string
	DocPath       string
	Documentation string
	Template      string
	IndexUpdated  bool
	Cost          decimal.Decimal
	MonthlyTotal  decimal.Decimal
	Warnings      []string
}

// Writer generates markdown documentation for source files.
type Writer struct {
	root      string
	cfg       *config.Store
	engine    *prompt.Engine
	generator llm.Generator
	usage     UsageRecorder
}

// New creates a writer rooted at root. usage may be nil.
func New(root string, cfg *config.Store, engine *prompt.Engine, generator llm.Generator, usage UsageRecorder) *Writer {
	return &Writer{root: root, cfg: cfg, engine: engine, generator: generator, usage: usage}
}

// DocPath maps a source file to its documentation file, e.g. api/users.js
// to docs/api/users.md. Leading ".." segments are dropped so the result
// always stays under docs/.
func DocPath(filename string) string {
	rel := filepath.ToSlash(filepath.Clean(filename))
	rel = strings.TrimPrefix(rel, "./")
	for rel == ".." || strings.HasPrefix(rel, "../") {
		rel = strings.TrimPrefix(strings.TrimPrefix(rel, ".."), "/")
	}
	return filepath.Join(Dir, strings.TrimSuffix(rel, filepath.Ext(rel))+".md")
}

// Generate writes documentation for filename, given relative to the root.
func (w *Writer) Generate(ctx context.Context, filename string) (Result, error) {
	const agent = config.AgentDocumentationWriter
	s, err := w.cfg.Resolve(agent)
	if err != nil {
		return Result{}, err
	}
	res := Result{Filename: filename, Template: s.Template, Cost: decimal.Zero, MonthlyTotal: decimal.Zero}
	if !s.Enabled {
		log.Info().Msg("documentation writer is disabled")
		res.Skipped, res.Reason = true, "disabled"
		return res, nil
	}
	if w.cfg.ShouldSkip(agent, filename) {
		log.Info().Str("file", filename).Msg("file matches exclude pattern, skipping")
		res.Skipped, res.Reason = true, "excluded"
		return res, nil
	}

	code, err := os.ReadFile(w.path(filename))
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", filename, err)
	}
	res.DocPath = DocPath(filename)
	existing, err := w.existingDocs(res.DocPath)
	if err != nil {
		return Result{}, err
	}

	vars := prompt.Vars{}.
		Set(prompt.KeyCode, string(code)).
		Set(prompt.KeyFilename, filename).
		Set(prompt.KeyLanguage, prompt.DetectLanguage(filename)).
		Set(prompt.KeyStyle, s.Style).
		Set(prompt.KeyVoiceAndTone, s.VoiceAndTone).
		Set(prompt.KeyIncludeExamples, s.IncludeExamples).
		Set(prompt.KeyExistingDocs, existing).
		WithCustom(s.CustomVariables)
	body, err := w.engine.GetTemplate(agent, s.Template, vars)
	if err != nil {
		return Result{}, err
	}
	log.Info().Str("file", filename).Str("template", s.Template).Msg("generating documentation")

	genCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	resp, err := w.generator.Generate(genCtx, llm.Request{Model: s.Model, Prompt: body, MaxTokens: s.MaxTokens})
	if err != nil {
		return Result{}, fmt.Errorf("document %s: %w", filename, err)
	}
	w.recordUsage(ctx, s.Model, resp.Usage, &res)

	res.Documentation = strings.TrimSpace(resp.Text)
	docFile := w.path(res.DocPath)
	if err := os.MkdirAll(filepath.Dir(docFile), 0o755); err != nil {
		return res, fmt.Errorf("create docs dir: %w", err)
	}
	if err := os.WriteFile(docFile, []byte(res.Documentation+"\n"), 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", res.DocPath, err)
	}
	log.Info().Str("doc", res.DocPath).Msg("documentation written")

	if s.GenerateReadme {
		updated, err := UpdateIndex(w.path(ReadmeFile), filename, res.DocPath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to update README index")
			res.Warnings = append(res.Warnings, fmt.Sprintf("readme index: %v", err))
		}
		res.IndexUpdated = updated
	}
	return res, nil
}

func (w *Writer) path(rel string) string {
	if filepath.IsAbs(rel) || w.root == "" {
		return rel
	}
	return filepath.Join(w.root, rel)
}

func (w *Writer) existingDocs(docPath string) (string, error) {
	data, err := os.ReadFile(w.path(docPath))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read existing docs: %w", err)
	}
	text := string(data)
	if r := []rune(text); len(r) > existingDocsLimit {
		text = string(r[:existingDocsLimit])
	}
	return "\n\n**Existing documentation:**\n" + text + "...", nil
}

func (w *Writer) recordUsage(ctx context.Context, model string, u llm.Usage, res *Result) {
	if w.usage == nil {
		return
	}
	usage, err := w.usage.RecordUsage(ctx, config.AgentDocumentationWriter, model, u.InputTokens, u.OutputTokens)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record usage")
		res.Warnings = append(res.Warnings, fmt.Sprintf("record usage: %v", err))
		return
	}
	res.Cost, res.MonthlyTotal = usage.Cost, usage.MonthlyTotal
	res.Warnings = append(res.Warnings, usage.Warnings...)
}

// UpdateIndex adds a link to docPath under the README documentation heading.
// It reports whether the file changed; an existing link is left alone.
func UpdateIndex(readmePath, filename, docPath string) (bool, error) {
	data, err := os.ReadFile(readmePath)
	readme := string(data)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		readme = defaultReadme
	case err != nil:
		return false, fmt.Errorf("read readme: %w", err)
	}

	link := fmt.Sprintf("- [%s](%s)", filepath.ToSlash(filename), filepath.ToSlash(docPath))
	if strings.Contains(readme, link) {
		return false, nil
	}
	readme = insertLink(readme, link)
	if err := os.WriteFile(readmePath, []byte(readme), 0o644); err != nil {
		return false, fmt.Errorf("write readme: %w", err)
	}
	return true, nil
}

// insertLink places link at the end of the documentation section, creating
// the section at the end of the document when missing.
func insertLink(readme, link string) string {
	lines := strings.Split(strings.TrimRight(readme, "\n"), "\n")
	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == indexHeading {
			start = i
			break
		}
	}
	if start < 0 {
		return strings.TrimRight(readme, "\n") + "\n\n" + indexHeading + "\n\n" + link + "\n"
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "## ") || strings.HasPrefix(lines[i], "# ") {
			end = i
			break
		}
	}
	at := end
	for at > start+1 && strings.TrimSpace(lines[at-1]) == "" {
		at--
	}
	out := make([]string, 0, len(lines)+3)
	out = append(out, lines[:at]...)
	if at == start+1 {
		out = append(out, "")
	}
	out = append(out, link)
	if at < len(lines) && strings.TrimSpace(lines[at]) != "" {
		out = append(out, "")
	}
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n") + "\n"
}
