package docs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// APIDirs are the path fragments that mark a file as part of the API surface.
var APIDirs = []string{"api/", "server/api/", "routes/", "endpoints/"}

// ChangeLister lists files changed between two revisions.
type ChangeLister interface {
	ChangedFiles(ctx context.Context, from, to string) ([]string, error)
}

// Committer records documentation changes.
type Committer interface {
	Commit(ctx context.Context, msg string, paths ...string) error
}

// Pusher publishes commits.
type Pusher interface {
	Push(ctx context.Context) error
}

// Commenter posts to a pull request thread.
type Commenter interface {
	Comment(ctx context.Context, threadID int, body string) error
}

// CIOptions wires the best-effort side effects of RunCI. Any field may be
// left empty.
type CIOptions struct {
	Committer Committer
	Pusher    Pusher
	Commenter Commenter
	PRNumber  int
	// Footer is appended to the pull request comment.
	Footer func(cost, monthlyTotal decimal.Decimal) string
}

// CIReport summarizes a documentation CI run.
type CIReport struct {
	Files     []string
	Results   []Result
	Committed bool
	Pushed    bool
	Commented bool
	Cost      decimal.Decimal
	Warnings  []string
}

// IsAPIFile reports whether name is a JavaScript or TypeScript file under
// one of APIDirs.
func IsAPIFile(name string) bool {
	name = filepath.ToSlash(name)
	if !strings.HasSuffix(name, ".js") && !strings.HasSuffix(name, ".ts") {
		return false
	}
	for _, dir := range APIDirs {
		if strings.Contains(name, dir) {
			return true
		}
	}
	return false
}

// ChangedAPIFiles returns the API files changed in the last commit that still
// exist. When the diff is unavailable every API file under root is returned.
func (w *Writer) ChangedAPIFiles(ctx context.Context, changes ChangeLister) ([]string, error) {
	names, err := changes.ChangedFiles(ctx, "HEAD~1", "HEAD")
	if err != nil {
		log.Warn().Err(err).Msg("cannot diff last commit, scanning api directories")
		return w.allAPIFiles()
	}
	var out []string
	for _, name := range names {
		if !IsAPIFile(name) {
			continue
		}
		if _, err := os.Stat(w.path(name)); err != nil {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (w *Writer) allAPIFiles() ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, dir := range APIDirs {
		base := w.path(strings.TrimSuffix(dir, "/"))
		if _, err := os.Stat(base); err != nil {
			continue
		}
		err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel := p
			if w.root != "" {
				if r, err := filepath.Rel(w.root, p); err == nil {
					rel = r
				}
			}
			rel = filepath.ToSlash(rel)
			if IsAPIFile(rel) && !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
	}
	return out, nil
}

// RunCI documents the API files changed in the last commit, commits the docs
// and comments on the pull request.
func (w *Writer) RunCI(ctx context.Context, changes ChangeLister, opts CIOptions) (CIReport, error) {
	report := CIReport{Cost: decimal.Zero}
	files, err := w.ChangedAPIFiles(ctx, changes)
	if err != nil {
		return report, err
	}
	report.Files = files
	if len(files) == 0 {
		log.Info().Msg("no api changes detected")
		return report, nil
	}
	log.Info().Int("files", len(files)).Msg("documenting changed api files")

	monthly := decimal.Zero
	readme := false
	var documented []string
	for _, file := range files {
		res, err := w.Generate(ctx, file)
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("documentation failed")
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		report.Results = append(report.Results, res)
		report.Cost = report.Cost.Add(res.Cost)
		report.Warnings = append(report.Warnings, res.Warnings...)
		if res.MonthlyTotal.GreaterThan(monthly) {
			monthly = res.MonthlyTotal
		}
		if res.Skipped {
			continue
		}
		documented = append(documented, file)
		readme = readme || res.IndexUpdated
	}
	if len(documented) == 0 {
		return report, nil
	}

	if opts.Committer != nil {
		paths := []string{Dir}
		if readme {
			paths = append(paths, ReadmeFile)
		}
		if err := opts.Committer.Commit(ctx, CommitMessage(documented), paths...); err != nil {
			log.Warn().Err(err).Msg("failed to commit documentation")
			report.Warnings = append(report.Warnings, fmt.Sprintf("commit: %v", err))
		} else {
			report.Committed = true
		}
	}
	if report.Committed && opts.Pusher != nil {
		if err := opts.Pusher.Push(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to push documentation")
			report.Warnings = append(report.Warnings, fmt.Sprintf("push: %v", err))
		} else {
			report.Pushed = true
		}
	}
	if opts.Commenter != nil && opts.PRNumber > 0 {
		body := ciComment(report, opts.Footer, monthly)
		if err := opts.Commenter.Comment(ctx, opts.PRNumber, body); err != nil {
			log.Warn().Err(err).Int("pr", opts.PRNumber).Msg("failed to post pull request comment")
			report.Warnings = append(report.Warnings, fmt.Sprintf("comment: %v", err))
		} else {
			report.Commented = true
		}
	}
	return report, nil
}

// CommitMessage names the documented files by base name.
func CommitMessage(files []string) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	return "📚 Auto-update docs for: " + strings.Join(names, ", ")
}

func ciComment(report CIReport, footer func(cost, monthly decimal.Decimal) string, monthly decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("## 📚 Automated Documentation Update\n\n")
	fmt.Fprintf(&b, "**API files changed:** %d\n", len(report.Files))
	b.WriteString("**Documentation generated for:**\n\n")
	for _, res := range report.Results {
		if res.Skipped {
			continue
		}
		fmt.Fprintf(&b, "- 📄 `%s` → [Documentation](%s)\n", res.Filename, filepath.ToSlash(res.DocPath))
	}
	if report.Committed {
		b.WriteString("\nThe documentation has been automatically generated and committed to this branch.\n")
	}
	if footer != nil {
		b.WriteString(footer(report.Cost, monthly))
		b.WriteString("\n")
	}
	b.WriteString("\n---\n*Documentation automatically updated when API code changes* 🤖\n")
	return b.String()
}
