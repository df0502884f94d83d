package git

import (
	"context"
	"fmt"
	"strings"
)

// Identity is the author used for automated commits. Each field applies only
// when git has no value configured for it.
type Identity struct {
	Name  string
	Email string
}

// DefaultIdentity signs commits made by the agents.
var DefaultIdentity = Identity{Name: "caretaker[bot]", Email: "caretaker[bot]@users.noreply.github.com"}

// Committer stages, commits and pushes files of one work tree.
type Committer struct {
	Dir      string
	Identity Identity
}

// NewCommitter creates a committer for dir.
func NewCommitter(dir string) *Committer {
	return &Committer{Dir: dir, Identity: DefaultIdentity}
}

// Commit stages paths and records a commit with msg. Nothing is committed
// when the staged paths carry no changes.
func (c *Committer) Commit(ctx context.Context, msg string, paths ...string) error {
	if len(paths) == 0 {
		return fmt.Errorf("commit: no paths given")
	}
	if !Available(ctx, c.Dir) {
		return fmt.Errorf("not a git repository: %s", c.Dir)
	}
	addArgs := append([]string{"add", "--"}, paths...)
	if err := RunCmdErr(ctx, c.Dir, "git", addArgs...); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	// diff --cached --quiet exits 0 when nothing is staged.
	diffArgs := append([]string{"diff", "--cached", "--quiet", "--"}, paths...)
	if RunCmdErr(ctx, c.Dir, "git", diffArgs...) == nil {
		return nil
	}
	args := append(c.identityArgs(ctx), "commit", "-m", msg, "--")
	if err := RunCmdErr(ctx, c.Dir, "git", append(args, paths...)...); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

func (c *Committer) identityArgs(ctx context.Context) []string {
	var args []string
	for _, kv := range [][2]string{{"user.name", c.Identity.Name}, {"user.email", c.Identity.Email}} {
		if kv[1] == "" {
			continue
		}
		// git config --get exits 1 when the key is unset.
		if out, err := RunCmdOutput(ctx, c.Dir, "git", "config", "--get", kv[0]); err == nil && strings.TrimSpace(out) != "" {
			continue
		}
		args = append(args, "-c", kv[0]+"="+kv[1])
	}
	return args
}

// Push publishes the current branch to its upstream.
func (c *Committer) Push(ctx context.Context) error {
	if err := RunCmdErr(ctx, c.Dir, "git", "push"); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

// ChangedFiles lists the files that differ between two revisions.
func (c *Committer) ChangedFiles(ctx context.Context, from, to string) ([]string, error) {
	out, err := RunCmdOutput(ctx, c.Dir, "git", "diff", "--name-only", from, to)
	if err != nil {
		return nil, fmt.Errorf("git diff %s %s: %w", from, to, err)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
