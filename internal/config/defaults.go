package config

// Default returns the built-in configuration written when no usable config file exists.
func Default() Config {
	return Config{
		Global: GlobalConfig{
			Model:          ptr("gpt-4o-mini"),
			MaxTokens:      ptr(2000),
			Enabled:        ptr(true),
			TimeoutSeconds: ptr(120),
		},
		CodeReviewer: AgentConfig{
			Enabled:         ptr(true),
			FocusAreas:      []string{"bugs", "security", "performance"},
			Severity:        LevelMedium,
			ExcludePatterns: []string{"*.test.js", "*.spec.js", "node_modules/**"},
			TeamStandards: map[string]any{
				"maxFunctionLength": 50,
				"requireJSDoc":      false,
				"enforceCamelCase":  true,
			},
		},
		BugFixer: AgentConfig{
			Enabled:             ptr(true),
			Model:               ptr("gpt-4o-mini"),
			MaxTokens:           ptr(1500),
			AttemptComplexFixes: ptr(false),
			MaxAttemptsPerFile:  ptr(3),
			ExcludePatterns:     []string{"**/migrations/**", "**/seeds/**", "**/fixtures/**"},
			SafetyLevel:         LevelMedium,
			AutoCommit:          ptr(true),
			TestCommand:         []string{"npm", "test"},
		},
		DocumentationWriter: AgentConfig{
			Enabled:         ptr(true),
			Model:           ptr("gpt-4o"),
			MaxTokens:       ptr(3000),
			ExcludePatterns: []string{},
			Style:           "standard",
			IncludeExamples: ptr(true),
			VoiceAndTone:    "professional",
			GenerateReadme:  ptr(true),
		},
		Prompts: map[string]PromptConfig{
			AgentCodeReviewer:        {Template: "default", CustomVariables: map[string]any{}},
			AgentBugFixer:            {Template: "default", CustomVariables: map[string]any{}},
			AgentDocumentationWriter: {Template: "comprehensive", CustomVariables: map[string]any{}},
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
