// Package git runs the git commands caretaker needs to commit and publish
// agent changes.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Available checks if the given directory is inside a git work tree.
func Available(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// RunCmdOutput runs a command in dir and returns its combined output.
func RunCmdOutput(ctx context.Context, dir string, name string, args ...string) (string, error) {
	log.Debug().Str("dir", dir).Str("cmd", name).Strs("args", args).Msg("running git command")
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// RunCmdErr runs a command in dir, discarding output unless it fails.
func RunCmdErr(ctx context.Context, dir string, name string, args ...string) error {
	_, err := RunCmdOutput(ctx, dir, name, args...)
	return err
}

// CurrentBranch resolves the checked out branch of dir.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	if !Available(ctx, dir) {
		return "", fmt.Errorf("not a git repository: %s", dir)
	}
	out, err := RunCmdOutput(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve branch: %w", err)
	}
	branch := strings.TrimSpace(out)
	if branch == "" {
		return "", fmt.Errorf("resolve branch: empty branch name")
	}
	if branch == "HEAD" {
		return "", fmt.Errorf("resolve branch: detached HEAD")
	}
	return branch, nil
}
