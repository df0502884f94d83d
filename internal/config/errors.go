package config

import (
	"errors"
	"fmt"
)

// ErrUnknownAgent is returned for agent names that are not registered.
var ErrUnknownAgent = errors.New("unknown agent")

// UnknownAgentError carries the offending agent name.
type UnknownAgentError struct {
	Name string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q", e.Name)
}

// Unwrap makes errors.Is(err, ErrUnknownAgent) work.
func (e *UnknownAgentError) Unwrap() error {
	return ErrUnknownAgent
}
