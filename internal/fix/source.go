package fix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Failure is one file to fix and the context describing what is wrong.
type Failure struct {
	File  string
	Error string
}

// FailureSource reports what needs fixing.
type FailureSource interface {
	Failures(ctx context.Context) ([]Failure, error)
}

// Local is a single failure supplied by the caller.
type Local struct {
	File  string
	Error string
}

func (l Local) Failures(context.Context) ([]Failure, error) {
	return []Failure{{File: l.File, Error: l.Error}}, nil
}

// TestOutput runs the test command and derives failures from Jest output.
// A passing run yields no failures.
type TestOutput struct {
	Runner *CommandValidator
	// Root resolves relative paths found in the output.
	Root string
}

func (s TestOutput) Failures(ctx context.Context) ([]Failure, error) {
	out, err := s.Runner.Run(ctx)
	if err == nil {
		log.Info().Msg("all tests passing, nothing to fix")
		return nil, nil
	}
	var failed *TestFailedError
	if !errors.As(err, &failed) {
		return nil, fmt.Errorf("run tests: %w", err)
	}
	failures := ParseJestOutput(out, s.exists)
	log.Info().Int("failures", len(failures)).Msg("parsed test failures")
	return failures, nil
}

func (s TestOutput) exists(path string) bool {
	if !filepath.IsAbs(path) && s.Root != "" {
		path = filepath.Join(s.Root, path)
	}
	_, err := os.Stat(path)
	return err == nil
}

var (
	jestFailRe   = regexp.MustCompile(`FAIL\s+(\S+\.[jt]sx?)`)
	stackFrameRe = regexp.MustCompile(`at \S.*\(([^()\s]+\.[jt]sx?):\d+:\d+\)`)
)

const (
	defaultFailureMessage = "Test failure detected"
	issueSeparator        = "\n\n--- NEXT ISSUE ---\n\n"
	maxContextBytes       = 4000
)

func isTestFile(path string) bool {
	return strings.Contains(path, ".test.") || strings.Contains(path, ".spec.") || strings.Contains(path, "__tests__")
}

// ParseJestOutput extracts one failure per file from Jest output. Failing
// test suites are mapped to the first non-test source file in their stack
// traces when one exists; exists may be nil.
func ParseJestOutput(output string, exists func(string) bool) []Failure {
	var sourceFile string
	for _, m := range stackFrameRe.FindAllStringSubmatch(output, -1) {
		candidate := m[1]
		if isTestFile(candidate) || strings.Contains(candidate, "node_modules") {
			continue
		}
		if exists == nil || exists(candidate) {
			sourceFile = candidate
			break
		}
	}

	errContext := defaultFailureMessage
	if trimmed := strings.TrimSpace(output); trimmed != "" {
		errContext = "Jest Test Failures:\n\n" + tail(trimmed, maxContextBytes)
	}

	var (
		order  []string
		byFile = make(map[string][]string)
	)
	for _, m := range jestFailRe.FindAllStringSubmatch(output, -1) {
		file := m[1]
		if isTestFile(file) && sourceFile != "" {
			file = sourceFile
		}
		if _, seen := byFile[file]; !seen {
			order = append(order, file)
		}
		byFile[file] = append(byFile[file], errContext)
	}

	failures := make([]Failure, 0, len(order))
	for _, file := range order {
		failures = append(failures, Failure{File: file, Error: strings.Join(dedupe(byFile[file]), issueSeparator)})
	}
	return failures
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
