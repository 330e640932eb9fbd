package apperrors

import (
	"errors"
	"fmt"
)

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrOutOfPeriod indicates a value date outside the configured accounting period.
var ErrOutOfPeriod = errors.New("date outside accounting period")

// ErrConfiguration indicates a fatal configuration problem; the run aborts
// before any output is written.
var ErrConfiguration = errors.New("configuration error")

// ConfigError is a fatal configuration failure carrying the offending
// source file and line where determinable.
type ConfigError struct {
	File string
	Line int
	Msg  string
}

func (e *ConfigError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s(%d): %s", e.File, e.Line, e.Msg)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	default:
		return e.Msg
	}
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// NewConfigError builds a ConfigError without source location.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// NewConfigErrorAt builds a ConfigError pointing at a file and line.
func NewConfigErrorAt(file string, line int, format string, args ...any) *ConfigError {
	return &ConfigError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}
