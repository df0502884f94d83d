package prompt

import (
	"path/filepath"
	"strings"
)

// FallbackLanguage is assumed for unrecognized extensions.
const FallbackLanguage = "javascript"

var languages = map[string]string{
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
	".py":  "python",
	".go":  "go",
}

// DetectLanguage maps a file extension to the language name used in prompts.
func DetectLanguage(filename string) string {
	if lang, ok := languages[strings.ToLower(filepath.Ext(filename))]; ok {
		return lang
	}
	return FallbackLanguage
}
