// Package tracker keeps external, human readable records (issues and pull
// request comments) for the usage ledger and CI runs.
package tracker

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Recorder creates and maintains records in an external tracker.
type Recorder interface {
	Create(ctx context.Context, title, body string, labels []string) (int, error)
	// Update replaces the whole body of record id.
	Update(ctx context.Context, id int, body string) error
	Comment(ctx context.Context, threadID int, body string) error
}

// FromEnv returns a GitHub recorder when GITHUB_TOKEN and GITHUB_REPOSITORY
// are set and a Nop recorder otherwise.
func FromEnv() Recorder {
	token := os.Getenv("GITHUB_TOKEN")
	repo := os.Getenv("GITHUB_REPOSITORY")
	owner, name, ok := strings.Cut(repo, "/")
	if token == "" || !ok || owner == "" || name == "" {
		log.Debug().Msg("github token or repository not configured, external records disabled")
		return Nop{}
	}
	if envOwner := os.Getenv("GITHUB_REPOSITORY_OWNER"); envOwner != "" {
		owner = envOwner
	}
	return NewGitHub(GitHubConfig{
		Token:          token,
		Owner:          owner,
		Repo:           name,
		AlertAssignees: []string{owner},
	})
}

// Nop discards every record.
type Nop struct{}

func (Nop) Create(_ context.Context, title, _ string, _ []string) (int, error) {
	log.Debug().Str("title", title).Msg("skipping external record creation")
	return 0, ErrDisabled
}

func (Nop) Update(_ context.Context, id int, _ string) error {
	log.Debug().Int("id", id).Msg("skipping external record update")
	return nil
}

func (Nop) Comment(_ context.Context, threadID int, _ string) error {
	log.Debug().Int("thread", threadID).Msg("skipping external comment")
	return nil
}

// Enabled reports whether r writes to a real tracker.
func Enabled(r Recorder) bool {
	_, nop := r.(Nop)
	return r != nil && !nop
}
