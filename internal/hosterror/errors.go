// Package hosterror defines an error taxonomy for the host: a *HostError
// carries a Kind drawn from this package's constants and wraps whatever
// underlying error caused it. The other host packages return plain Go
// errors and do not construct HostError values.
package hosterror

import (
	"errors"
	"fmt"
)

// Kind classifies a HostError for callers that need to branch on failure
// category (e.g. deciding whether a ReAct iteration should retry).
type Kind string

const (
	// KindToolNotFound means the requested tool name has no registered
	// server, or the server that registered it went down.
	KindToolNotFound Kind = "tool_not_found"

	// KindToolTimeout means a tools/call request exceeded its deadline.
	KindToolTimeout Kind = "tool_timeout"

	// KindToolExecution means the tool ran and returned isError=true, or
	// the subprocess returned a JSON-RPC error for the call.
	KindToolExecution Kind = "tool_execution"

	// KindSubprocessDown means the server process backing a tool has
	// exited or its transport is disconnected.
	KindSubprocessDown Kind = "subprocess_down"

	// KindArgumentCoercion means the coercer could not turn the LLM's
	// raw tool-call text into arguments matching the tool's schema.
	KindArgumentCoercion Kind = "argument_coercion"

	// KindProvider means the LLM backend returned an error or an
	// unexpected response shape.
	KindProvider Kind = "provider"

	// KindSession means a session-store operation failed (unknown
	// session id, store closed, etc).
	KindSession Kind = "session"

	// KindConfig means configuration failed to load or validate.
	KindConfig Kind = "config"

	// KindInventory means the server inventory descriptor failed to
	// load, parse, or validate.
	KindInventory Kind = "inventory"

	// KindInternal is a catch-all for invariant violations that should
	// not occur in correct operation.
	KindInternal Kind = "internal"
)

// IsRetryable reports whether a ReAct iteration may reasonably retry
// after an error of this kind, rather than treating it as terminal for
// the current tool call.
func (k Kind) IsRetryable() bool {
	switch k {
	case KindToolTimeout, KindToolExecution, KindArgumentCoercion:
		return true
	default:
		return false
	}
}

// HostError is the error type of this package's taxonomy. Kind lets
// callers branch without string matching;
// Cause preserves the underlying error for logging and errors.Is/As.
type HostError struct {
	Kind    Kind
	Op      string // the operation that failed, e.g. "mcp.CallTool"
	Message string
	Cause   error
}

func (e *HostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *HostError) Unwrap() error {
	return e.Cause
}

// New constructs a HostError with no underlying cause.
func New(kind Kind, op, message string) *HostError {
	return &HostError{Kind: kind, Op: op, Message: message}
}

// Wrap constructs a HostError around an underlying error.
func Wrap(kind Kind, op string, cause error) *HostError {
	if cause == nil {
		return nil
	}
	return &HostError{Kind: kind, Op: op, Message: cause.Error(), Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) a *HostError,
// otherwise returns KindInternal.
func KindOf(err error) Kind {
	var he *HostError
	if errors.As(err, &he) {
		return he.Kind
	}
	return KindInternal
}
