package loka

import "fmt"

// ParseError reports malformed source text.
type ParseError struct {
	Message string
	Pos     Position
}

func (e *ParseError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
	}
	return "parse error: " + e.Message
}

// ValidationError reports malformed or missing command input, detected in
// ParseInput or Validate. Validation errors always surface to the caller.
type ValidationError struct {
	Command string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func validationErrorf(command, format string, args ...any) error {
	return &ValidationError{Command: command, Message: fmt.Sprintf(format, args...)}
}

// RuntimeError reports a failure during command execution. In direct
// invocation these propagate to the caller; inside event-handler bodies they
// are contained per command and reported via a loka:error event.
type RuntimeError struct {
	Command string
	Message string
	Pos     Position
}

func (e *RuntimeError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", e.Command, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func runtimeErrorf(command string, pos Position, format string, args ...any) error {
	return &RuntimeError{Command: command, Message: fmt.Sprintf(format, args...), Pos: pos}
}
