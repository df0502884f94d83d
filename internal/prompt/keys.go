package prompt

import "slices"

// Key is a placeholder name filled in by the agents themselves.
type Key string

// Known placeholder keys.
const (
	KeyCode            Key = "code"
	KeyFilename        Key = "filename"
	KeyLanguage        Key = "language"
	KeyErrorMessage    Key = "errorMessage"
	KeySafetyLevel     Key = "safetyLevel"
	KeyFocusAreas      Key = "focusAreas"
	KeySeverity        Key = "severity"
	KeyTeamStandards   Key = "teamStandards"
	KeyStyle           Key = "style"
	KeyVoiceAndTone    Key = "voiceAndTone"
	KeyIncludeExamples Key = "includeExamples"
	KeyExistingDocs    Key = "existingDocs"
)

var commonKeys = []Key{KeyCode, KeyFilename, KeyLanguage}

var agentKeys = map[string][]Key{
	"codeReviewer":        {KeyFocusAreas, KeySeverity, KeyTeamStandards},
	"bugFixer":            {KeyErrorMessage, KeySafetyLevel},
	"documentationWriter": {KeyStyle, KeyVoiceAndTone, KeyIncludeExamples, KeyExistingDocs},
}

// KnownKeys lists the placeholders an agent fills in. Unknown agents only get
// the common keys.
func KnownKeys(agent string) []Key {
	return append(slices.Clone(commonKeys), agentKeys[agent]...)
}

// Vars is a variable bag. Known keys and free-form custom variables share one
// namespace; custom entries win on conflict.
type Vars map[string]any

// Set stores a known key.
func (v Vars) Set(k Key, val any) Vars {
	v[string(k)] = val
	return v
}

// WithCustom copies custom variables into the bag.
func (v Vars) WithCustom(custom map[string]any) Vars {
	for k, val := range custom {
		v[k] = val
	}
	return v
}
