package polyrender

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMaxDepthExceeded is returned when nested partials or repeat bodies recurse
	// deeper than Config.MaxRenderDepth.
	ErrMaxDepthExceeded = errors.New("maximum render depth exceeded")

	// ErrNotCallable is returned when a filter or call expression resolves to a value
	// that is not a function.
	ErrNotCallable = errors.New("value is not callable")

	// ErrNoTemplate is returned in strict mode when a component root has no template child.
	ErrNoTemplate = errors.New("component root has no template element")
)

// ParseError represents an error while parsing markup or a binding expression
type ParseError struct {
	Message string
	Token   string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Token != "" {
		return fmt.Sprintf("parse error near '%s': %s", e.Token, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(message, token string, cause error) error {
	return &ParseError{
		Message: message,
		Token:   token,
		Cause:   cause,
	}
}

// EvaluationError represents an error during expression evaluation, such as a
// callback that returned an error.
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error for expression '%s': %v", e.Expression, e.Cause)
	}
	return fmt.Sprintf("evaluation error for expression '%s'", e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new evaluation error
func NewEvaluationError(expression string, cause error) error {
	return &EvaluationError{
		Expression: expression,
		Cause:      cause,
	}
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	var contextParts []string
	for _, k := range sortedKeys(e.Context) {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// IsParseError checks if an error is or wraps a parse error
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsEvaluationError checks if an error is or wraps an evaluation error
func IsEvaluationError(err error) bool {
	var target *EvaluationError
	return errors.As(err, &target)
}

// CompileError wraps a failure of one compile stage (parse, generate, partial).
type CompileError struct {
	Stage  string
	Source string
	Cause  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s failed: %v", e.Stage, e.Cause)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// IsCompileError checks if an error is or wraps a compile error
func IsCompileError(err error) bool {
	var target *CompileError
	return errors.As(err, &target)
}
