package config

// Merge overlays user on top of defaults. Unset leaves in user take the default
// value; nested structs and maps merge key by key instead of being replaced.
// Slices are treated as leaves.
func Merge(user, defaults Config) Config {
	return Config{
		Global: GlobalConfig{
			Model:          pick(user.Global.Model, defaults.Global.Model),
			MaxTokens:      pick(user.Global.MaxTokens, defaults.Global.MaxTokens),
			Enabled:        pick(user.Global.Enabled, defaults.Global.Enabled),
			TimeoutSeconds: pick(user.Global.TimeoutSeconds, defaults.Global.TimeoutSeconds),
		},
		CodeReviewer:        mergeAgent(user.CodeReviewer, defaults.CodeReviewer),
		BugFixer:            mergeAgent(user.BugFixer, defaults.BugFixer),
		DocumentationWriter: mergeAgent(user.DocumentationWriter, defaults.DocumentationWriter),
		Prompts:             mergePrompts(user.Prompts, defaults.Prompts),
	}
}

func mergeAgent(user, defaults AgentConfig) AgentConfig {
	return AgentConfig{
		Enabled:             pick(user.Enabled, defaults.Enabled),
		Model:               pick(user.Model, defaults.Model),
		MaxTokens:           pick(user.MaxTokens, defaults.MaxTokens),
		ExcludePatterns:     pickSlice(user.ExcludePatterns, defaults.ExcludePatterns),
		FocusAreas:          pickSlice(user.FocusAreas, defaults.FocusAreas),
		Severity:            pickString(user.Severity, defaults.Severity),
		TeamStandards:       mergeMaps(user.TeamStandards, defaults.TeamStandards),
		SafetyLevel:         pickString(user.SafetyLevel, defaults.SafetyLevel),
		MaxAttemptsPerFile:  pick(user.MaxAttemptsPerFile, defaults.MaxAttemptsPerFile),
		AutoCommit:          pick(user.AutoCommit, defaults.AutoCommit),
		AttemptComplexFixes: pick(user.AttemptComplexFixes, defaults.AttemptComplexFixes),
		TestCommand:         pickSlice(user.TestCommand, defaults.TestCommand),
		Style:               pickString(user.Style, defaults.Style),
		VoiceAndTone:        pickString(user.VoiceAndTone, defaults.VoiceAndTone),
		IncludeExamples:     pick(user.IncludeExamples, defaults.IncludeExamples),
		GenerateReadme:      pick(user.GenerateReadme, defaults.GenerateReadme),
	}
}

func mergePrompts(user, defaults map[string]PromptConfig) map[string]PromptConfig {
	if user == nil && defaults == nil {
		return nil
	}
	out := make(map[string]PromptConfig, len(defaults)+len(user))
	for name, d := range defaults {
		out[name] = PromptConfig{
			Template:        d.Template,
			CustomVariables: mergeMaps(nil, d.CustomVariables),
		}
	}
	for name, u := range user {
		d := out[name]
		out[name] = PromptConfig{
			Template:        pickString(u.Template, d.Template),
			CustomVariables: mergeMaps(u.CustomVariables, d.CustomVariables),
		}
	}
	return out
}

// mergeMaps returns a fresh map; nested map values are merged recursively.
func mergeMaps(user, defaults map[string]any) map[string]any {
	if user == nil && defaults == nil {
		return nil
	}
	out := make(map[string]any, len(defaults)+len(user))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range user {
		if v == nil {
			continue
		}
		um, uok := v.(map[string]any)
		dm, dok := out[k].(map[string]any)
		if uok && dok {
			out[k] = mergeMaps(um, dm)
			continue
		}
		out[k] = v
	}
	return out
}

func pick[T any](user, defaults *T) *T {
	if user != nil {
		return user
	}
	return defaults
}

func pickString[T ~string](user, defaults T) T {
	if user != "" {
		return user
	}
	return defaults
}

func pickSlice[T any](user, defaults []T) []T {
	if user != nil {
		return user
	}
	return defaults
}
