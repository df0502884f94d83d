package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func newGitHubServer(t *testing.T) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/repos/acme/shop/issues":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"number": 42}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/repos/acme/shop/issues/42":
			_, _ = w.Write([]byte(`{"number": 42}`))
		case r.Method == http.MethodPost && r.URL.Path == "/repos/acme/shop/issues/7/comments":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "Not Found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestGitHub_CreateUpdateComment(t *testing.T) {
	t.Parallel()

	srv, reqs := newGitHubServer(t)
	g := NewGitHub(GitHubConfig{Token: "tok", Owner: "acme", Repo: "shop", BaseURL: srv.URL, AlertAssignees: []string{"acme"}})
	ctx := context.Background()

	id, err := g.Create(ctx, "usage", "body", []string{"ai-usage", "automated"})
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	require.NoError(t, g.Update(ctx, id, "new body"))
	require.NoError(t, g.Comment(ctx, 7, "hello"))

	require.Len(t, *reqs, 3)
	create := (*reqs)[0]
	assert.Equal(t, "Bearer tok", create.Auth)
	assert.Equal(t, "usage", create.Body["title"])
	assert.Equal(t, []any{"ai-usage", "automated"}, create.Body["labels"])
	assert.NotContains(t, create.Body, "assignees")

	update := (*reqs)[1]
	assert.Equal(t, http.MethodPatch, update.Method)
	assert.Equal(t, map[string]any{"body": "new body"}, update.Body)

	assert.Equal(t, "hello", (*reqs)[2].Body["body"])
}

func TestGitHub_UrgentRecordsAreAssigned(t *testing.T) {
	t.Parallel()

	srv, reqs := newGitHubServer(t)
	g := NewGitHub(GitHubConfig{Owner: "acme", Repo: "shop", BaseURL: srv.URL, AlertAssignees: []string{"acme"}})

	_, err := g.Create(context.Background(), "alert", "body", []string{"ai-budget-alert", UrgentLabel})
	require.NoError(t, err)
	require.Len(t, *reqs, 1)
	assert.Equal(t, []any{"acme"}, (*reqs)[0].Body["assignees"])
	assert.Empty(t, (*reqs)[0].Auth)
}

func TestGitHub_ErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	srv, _ := newGitHubServer(t)
	g := NewGitHub(GitHubConfig{Owner: "acme", Repo: "shop", BaseURL: srv.URL})

	err := g.Update(context.Background(), 99, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update issue 99")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY_OWNER", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_REPOSITORY", "acme/shop")
	assert.False(t, Enabled(FromEnv()))

	t.Setenv("GITHUB_TOKEN", "tok")
	t.Setenv("GITHUB_REPOSITORY", "invalid")
	assert.False(t, Enabled(FromEnv()))

	t.Setenv("GITHUB_REPOSITORY", "acme/shop")
	rec := FromEnv()
	require.True(t, Enabled(rec))
	gh, ok := rec.(*GitHub)
	require.True(t, ok)
	assert.Equal(t, "acme", gh.owner)
	assert.Equal(t, "shop", gh.repo)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var n Nop
	_, err := n.Create(context.Background(), "t", "b", nil)
	require.ErrorIs(t, err, ErrDisabled)
	require.NoError(t, n.Update(context.Background(), 1, "b"))
	require.NoError(t, n.Comment(context.Background(), 1, "b"))
	assert.False(t, Enabled(nil))
}
