package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/metalagman/ainvoke"
	"github.com/rs/zerolog/log"
)

const execSystemPrompt = `You are a code maintenance agent.
- Read the request from input.json: "prompt" holds the task, "model" is a model hint.
- Do not modify any files except output.json.
- Write output.json with "text" set to your answer and "usage" set to the tokens you consumed, if known.
`

const execInputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "model": { "type": "string" },
    "prompt": { "type": "string" },
    "max_tokens": { "type": "integer" }
  },
  "required": ["prompt"]
}`

const execOutputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "text": { "type": "string" },
    "usage": {
      "type": "object",
      "properties": {
        "input_tokens": { "type": "integer" },
        "output_tokens": { "type": "integer" }
      }
    }
  },
  "required": ["text"]
}`

type execInput struct {
	Model     string `json:"model,omitempty"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type execOutput struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// ExecConfig configures a generator backed by an external CLI agent.
type ExecConfig struct {
	Cmd    []string
	UseTTY bool
	// WorkDir hosts per-call run directories. The system temp dir is used when empty.
	WorkDir string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Exec delegates generation to a CLI agent that answers through output.json.
type Exec struct {
	runner  ainvoke.Runner
	cmd     []string
	workDir string
	stdout  io.Writer
	stderr  io.Writer
}

// NewExec constructs the provider.
func NewExec(cfg ExecConfig) (*Exec, error) {
	if len(cfg.Cmd) == 0 {
		return nil, fmt.Errorf("exec generator requires cmd")
	}
	r, err := ainvoke.NewRunner(ainvoke.AgentConfig{
		Cmd:    cfg.Cmd,
		UseTTY: cfg.UseTTY,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec runner: %w", err)
	}
	return &Exec{
		runner:  r,
		cmd:     cfg.Cmd,
		workDir: cfg.WorkDir,
		stdout:  writerOrDiscard(cfg.Stdout),
		stderr:  writerOrDiscard(cfg.Stderr),
	}, nil
}

// Generate runs the agent once in a fresh directory.
func (e *Exec) Generate(ctx context.Context, req Request) (Response, error) {
	runDir, err := os.MkdirTemp(e.workDir, "caretaker-exec-*")
	if err != nil {
		return Response{}, generationError("exec", req.Model, fmt.Errorf("create run dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			log.Warn().Err(err).Str("dir", runDir).Msg("failed to remove exec run dir")
		}
	}()

	inv := ainvoke.Invocation{
		RunDir:       runDir,
		SystemPrompt: execSystemPrompt,
		Input:        execInput{Model: req.Model, Prompt: req.Prompt, MaxTokens: req.MaxTokens},
		InputSchema:  execInputSchema,
		OutputSchema: execOutputSchema,
	}
	stdout, _, exitCode, runErr := e.runner.Run(ctx, inv, ainvoke.WithStdout(e.stdout), ainvoke.WithStderr(e.stderr))
	log.Debug().Strs("cmd", e.cmd).Int("exit_code", exitCode).Msg("exec agent finished")
	if runErr != nil {
		return Response{}, generationError("exec", req.Model, runErr)
	}
	if exitCode != 0 {
		return Response{}, generationError("exec", req.Model, fmt.Errorf("agent exited with code %d", exitCode))
	}

	out, err := readExecOutput(runDir, stdout)
	if err != nil {
		return Response{}, generationError("exec", req.Model, err)
	}
	return Response{Text: out.Text, Model: req.Model, Usage: out.Usage}, nil
}

// readExecOutput prefers output.json in the run dir and falls back to stdout.
func readExecOutput(runDir string, stdout []byte) (execOutput, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "output.json"))
	if errors.Is(err, os.ErrNotExist) {
		data = bytes.TrimSpace(stdout)
	} else if err != nil {
		return execOutput{}, fmt.Errorf("read agent output: %w", err)
	}
	var out execOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return execOutput{}, fmt.Errorf("decode agent output: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return execOutput{}, fmt.Errorf("agent output did not contain text")
	}
	return out, nil
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
