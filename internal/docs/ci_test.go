package docs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/metalagman/caretaker/internal/prompt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeList struct {
	files []string
	err   error
}

func (c changeList) ChangedFiles(context.Context, string, string) ([]string, error) {
	return c.files, c.err
}

type recorder struct {
	msg      string
	paths    []string
	pushed   bool
	thread   int
	comment  string
	failPush bool
}

func (r *recorder) Commit(_ context.Context, msg string, paths ...string) error {
	r.msg, r.paths = msg, paths
	return nil
}

func (r *recorder) Push(context.Context) error {
	if r.failPush {
		return errors.New("rejected")
	}
	r.pushed = true
	return nil
}

func (r *recorder) Comment(_ context.Context, thread int, body string) error {
	r.thread, r.comment = thread, body
	return nil
}

func TestIsAPIFile(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAPIFile("api/users.js"))
	assert.True(t, IsAPIFile("server/api/auth/login.ts"))
	assert.True(t, IsAPIFile("src/routes/index.js"))
	assert.False(t, IsAPIFile("api/users.md"))
	assert.False(t, IsAPIFile("lib/cart.js"))
}

func TestRunCI_DocumentsChangedAPIFiles(t *testing.T) {
	t.Parallel()

	root, store := setup(t, nil)
	w := New(root, store, prompt.NewEngine(), staticGenerator("# Users", nil), nil)
	rec := &recorder{}

	report, err := w.RunCI(context.Background(), changeList{files: []string{"api/users.js", "lib/cart.js", "api/gone.js"}}, CIOptions{
		Committer: rec,
		Pusher:    rec,
		Commenter: rec,
		PRNumber:  7,
		Footer: func(cost, monthly decimal.Decimal) string {
			return "\nfooter " + cost.String()
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"api/users.js"}, report.Files)
	assert.True(t, report.Committed)
	assert.True(t, report.Pushed)
	assert.True(t, report.Commented)
	assert.Equal(t, "📚 Auto-update docs for: users.js", rec.msg)
	assert.Equal(t, []string{Dir, ReadmeFile}, rec.paths)
	assert.Equal(t, 7, rec.thread)
	assert.Contains(t, rec.comment, "**API files changed:** 1")
	assert.Contains(t, rec.comment, "- 📄 `api/users.js` → [Documentation](docs/api/users.md)")
	assert.Contains(t, rec.comment, "footer 0")
}

func TestRunCI_NoChanges(t *testing.T) {
	t.Parallel()

	root, store := setup(t, nil)
	w := New(root, store, prompt.NewEngine(), staticGenerator("docs", nil), nil)
	rec := &recorder{}

	report, err := w.RunCI(context.Background(), changeList{files: []string{"README.md"}}, CIOptions{Committer: rec})
	require.NoError(t, err)
	assert.Empty(t, report.Files)
	assert.False(t, report.Committed)
	assert.Empty(t, rec.msg)
}

func TestRunCI_ScansWhenDiffUnavailable(t *testing.T) {
	t.Parallel()

	root, store := setup(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "routes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "routes", "index.ts"), []byte("export {}"), 0o644))
	w := New(root, store, prompt.NewEngine(), staticGenerator("docs", nil), nil)

	files, err := w.ChangedAPIFiles(context.Background(), changeList{err: errors.New("no parent")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"api/users.js", "routes/index.ts"}, files)
}

func TestRunCI_PushFailureIsWarning(t *testing.T) {
	t.Parallel()

	root, store := setup(t, nil)
	w := New(root, store, prompt.NewEngine(), staticGenerator("docs", nil), nil)
	rec := &recorder{failPush: true}

	report, err := w.RunCI(context.Background(), changeList{files: []string{"api/users.js"}}, CIOptions{Committer: rec, Pusher: rec})
	require.NoError(t, err)
	assert.True(t, report.Committed)
	assert.False(t, report.Pushed)
	assert.Contains(t, report.Warnings, "push: rejected")
}
