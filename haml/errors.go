package haml

import (
	"errors"
	"fmt"
)

// Error categories, to be matched with errors.Is
var (
	ErrNotAvailable   = errors.New("not available")
	ErrNoSuchFilter   = errors.New("no such filter")
	ErrFilterDisabled = errors.New("filter disabled")
	ErrMaxDepth       = errors.New("maximum nesting depth exceeded")
)

// ParseError is the only error type returned by the compiler.
// Line and Column are 1-based and refer to the whole template, also for errors inside
// Haml blocks nested in attribute values.
type ParseError struct {
	Filename string
	Msg      string
	Context  string
	Line     int
	Column   int
	Err      error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if len(e.Context) > 0 {
		msg = fmt.Sprintf("%s @ \"%s\" <-", e.Msg, e.Context)
	}
	if len(e.Filename) > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, msg)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
