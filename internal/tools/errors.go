package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolAlreadyRegistered is returned when registering a duplicate.
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// MissingArgError reports a required argument absent from a call.
type MissingArgError struct {
	Tool string
	Arg  string
}

func (e *MissingArgError) Error() string {
	return fmt.Sprintf("tool %s: missing required argument %q", e.Tool, e.Arg)
}
