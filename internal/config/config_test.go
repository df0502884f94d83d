package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_KeepsSiblingDefaultsWhenUserSetsOneField(t *testing.T) {
	t.Parallel()

	user := Config{CodeReviewer: AgentConfig{Severity: LevelHigh}}
	got := Merge(user, Default())

	assert.Equal(t, LevelHigh, got.CodeReviewer.Severity)
	assert.Equal(t, []string{"bugs", "security", "performance"}, got.CodeReviewer.FocusAreas)
	assert.Equal(t, []string{"*.test.js", "*.spec.js", "node_modules/**"}, got.CodeReviewer.ExcludePatterns)
	require.NotNil(t, got.CodeReviewer.Enabled)
	assert.True(t, *got.CodeReviewer.Enabled)
	require.NotNil(t, got.BugFixer.MaxAttemptsPerFile)
	assert.Equal(t, 3, *got.BugFixer.MaxAttemptsPerFile)
	assert.Equal(t, "gpt-4o-mini", *got.Global.Model)
}

func TestMerge_MergesNestedMapsRecursively(t *testing.T) {
	t.Parallel()

	user := Config{
		CodeReviewer: AgentConfig{TeamStandards: map[string]any{"requireJSDoc": true}},
		Prompts: map[string]PromptConfig{
			AgentBugFixer: {CustomVariables: map[string]any{"team": "payments"}},
		},
	}
	got := Merge(user, Default())

	assert.Equal(t, true, got.CodeReviewer.TeamStandards["requireJSDoc"])
	assert.Equal(t, 50, got.CodeReviewer.TeamStandards["maxFunctionLength"])
	assert.Equal(t, true, got.CodeReviewer.TeamStandards["enforceCamelCase"])
	assert.Equal(t, "default", got.Prompts[AgentBugFixer].Template)
	assert.Equal(t, "payments", got.Prompts[AgentBugFixer].CustomVariables["team"])
	assert.Equal(t, "comprehensive", got.Prompts[AgentDocumentationWriter].Template)
}

func TestMerge_DoesNotAliasDefaultMaps(t *testing.T) {
	t.Parallel()

	defaults := Default()
	got := Merge(Config{}, defaults)
	got.CodeReviewer.TeamStandards["maxFunctionLength"] = 10

	assert.Equal(t, 50, defaults.CodeReviewer.TeamStandards["maxFunctionLength"])
}

func TestMerge_UserSliceReplacesDefault(t *testing.T) {
	t.Parallel()

	got := Merge(Config{BugFixer: AgentConfig{ExcludePatterns: []string{}}}, Default())
	assert.Empty(t, got.BugFixer.ExcludePatterns)
}

func TestStore_IsEnabled(t *testing.T) {
	t.Parallel()

	cfg := Default()
	s := NewStore("unused.json", cfg)
	assert.True(t, s.IsEnabled(AgentBugFixer))
	assert.False(t, s.IsEnabled("releaseManager"))

	cfg.BugFixer.Enabled = ptr(false)
	assert.False(t, NewStore("unused.json", cfg).IsEnabled(AgentBugFixer))

	cfg = Default()
	cfg.Global.Enabled = ptr(false)
	s = NewStore("unused.json", cfg)
	for _, agent := range Agents {
		assert.False(t, s.IsEnabled(agent), agent)
	}
}

func TestStore_ShouldSkip(t *testing.T) {
	t.Parallel()

	s := NewStore("unused.json", Default())
	assert.True(t, s.ShouldSkip(AgentCodeReviewer, "foo.test.js"))
	assert.True(t, s.ShouldSkip(AgentCodeReviewer, "src/lib/foo.spec.js"))
	assert.True(t, s.ShouldSkip(AgentCodeReviewer, "web/node_modules/pkg/index.js"))
	assert.False(t, s.ShouldSkip(AgentCodeReviewer, "foo.js"))
	assert.True(t, s.ShouldSkip(AgentBugFixer, "db/migrations/001_init.js"))
	assert.False(t, s.ShouldSkip(AgentBugFixer, "src/migrations.js"))
	assert.False(t, s.ShouldSkip("releaseManager", "foo.test.js"))
}

func TestMatchGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*.test.js", "foo.test.js", true},
		{"*.test.js", "foo.js", false},
		{"*.test.js", "footestjs", false},
		{"file?.js", "file1.js", true},
		{"file?.js", "file.js", false},
		{"src/*", "src/a/b/c.go", true},
		{"a+b.js", "a+b.js", true},
		{"a+b.js", "aab.js", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchGlob(tt.pattern, tt.name), "%s ~ %s", tt.pattern, tt.name)
	}
}

func TestStore_ResolveFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	s := NewStore("unused.json", Default())

	reviewer, err := s.Resolve(AgentCodeReviewer)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", reviewer.Model)
	assert.Equal(t, 2000, reviewer.MaxTokens)
	assert.Equal(t, "default", reviewer.Template)

	fixer, err := s.Resolve(AgentBugFixer)
	require.NoError(t, err)
	assert.Equal(t, 1500, fixer.MaxTokens)
	assert.Equal(t, 3, fixer.MaxAttemptsPerFile)
	assert.True(t, fixer.AutoCommit)
	assert.Equal(t, []string{"npm", "test"}, fixer.TestCommand)

	docs, err := s.Resolve(AgentDocumentationWriter)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", docs.Model)
	assert.Equal(t, "comprehensive", docs.Template)
}

func TestStore_UnknownAgent(t *testing.T) {
	t.Parallel()

	s := NewStore("unused.json", Default())
	_, err := s.Resolve("releaseManager")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAgent))

	var unknown *UnknownAgentError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "releaseManager", unknown.Name)
}

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultPath)
	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.Created())
	assert.True(t, s.IsEnabled(AgentBugFixer))

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.False(t, reloaded.Created())
	assert.Equal(t, s.Config().BugFixer.ExcludePatterns, reloaded.Config().BugFixer.ExcludePatterns)
	assert.Nil(t, reloaded.Config().CodeReviewer.Model)
}

func TestLoad_RecoversFromCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.Created())

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))
}

func TestLoad_MergesPartialUserFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "global": {"model": "gpt-4o"},
  "bugFixer": {"model": null, "maxAttemptsPerFile": 5, "safetyLevel": "HIGH", "testCommand": "go test ./..."},
  "codeReviewer": {"teamStandards": {"requireJSDoc": true}},
  "prompts": {"bugFixer": {"template": "security", "customVariables": {"teamName": "core"}}}
}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.False(t, s.Created())

	fixer, err := s.Resolve(AgentBugFixer)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", fixer.Model, "null model falls back to the bugFixer default")
	assert.Equal(t, 5, fixer.MaxAttemptsPerFile)
	assert.Equal(t, LevelHigh, fixer.SafetyLevel)
	assert.Equal(t, []string{"go", "test", "./..."}, fixer.TestCommand)
	assert.Equal(t, "security", fixer.Template)
	assert.Equal(t, "core", fixer.CustomVariables["teamName"])
	assert.True(t, fixer.AutoCommit)

	reviewer, err := s.Resolve(AgentCodeReviewer)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", reviewer.Model)
	assert.Equal(t, true, reviewer.TeamStandards["requireJSDoc"])
	assert.Equal(t, true, reviewer.TeamStandards["enforceCamelCase"])
}

func TestLoad_PreservesUserKeyCase(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "codeReviewer": {"teamStandards": {"maxFunctionLines": 40}},
  "prompts": {"documentationWriter": {"customVariables": {"apiBaseURL": "https://api.example.com", "TeamName": "Docs"}}}
}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	writer, err := s.Resolve(AgentDocumentationWriter)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"apiBaseURL": "https://api.example.com", "TeamName": "Docs"}, writer.CustomVariables)

	reviewer, err := s.Resolve(AgentCodeReviewer)
	require.NoError(t, err)
	assert.Equal(t, float64(40), reviewer.TeamStandards["maxFunctionLines"])
	assert.NotContains(t, reviewer.TeamStandards, "maxfunctionlines")
}

func TestLoad_InvalidLevelFallsBackToDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(`{"bugFixer": {"safetyLevel": "reckless"}}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.Created())
	assert.Equal(t, LevelMedium, s.Config().BugFixer.SafetyLevel)
}

func TestStore_SetTemplatePersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultPath)
	s, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, s.SetTemplate(AgentCodeReviewer, "startup"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	settings, err := reloaded.Resolve(AgentCodeReviewer)
	require.NoError(t, err)
	assert.Equal(t, "startup", settings.Template)

	require.ErrorIs(t, s.SetTemplate("releaseManager", "x"), ErrUnknownAgent)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(map[string]any{
		"global":   map[string]any{"model": "gpt-4o", "maxTokens": float64(100)},
		"bugFixer": map[string]any{"model": nil, "maxAttemptsPerFile": float64(2)},
	}))

	err := ValidateSettings(map[string]any{
		"bugFixer": map[string]any{"maxAttemptsPerFile": "three"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxAttemptsPerFile")
}
