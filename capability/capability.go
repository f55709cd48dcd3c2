// Package capability implements the function calling subsystem that lets
// roles invoke structured capabilities (APIs, computations, side effects)
// with schema validated arguments and consistent error handling.
package capability

import (
	"fmt"

	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/internal/util"
)

// Capability defines the interface for extending role behavior with external
// functions.
//
// Capabilities are registered with roles to enable action execution beyond
// planning: API calls, calculations, database queries, or any other
// programmatic operation. All capabilities receive the TaskContext of the
// invoking role, giving access to the event log, request-scoped values and
// logging.
//
// Capability implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe; roles execute batches concurrently
type Capability interface {
	// Name returns the unique identifier for this capability.
	Name() string

	// Description returns a human-readable description of what this
	// capability does, provided to planning strategies.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments,
	// used for validation and for model-backed planning.
	Parameters() map[string]any

	// Invoke executes the capability with validated arguments.
	Invoke(tc *core.TaskContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed
// information.
type ValidationError = util.ValidationError

// Error represents a failure during capability execution.
type Error struct {
	Capability string `json:"capability"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Details    any    `json:"details,omitempty"`
}

// Error codes used by the built-in implementations.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("capability error [%s] in %s: %s", e.Code, e.Capability, e.Message)
	}
	return fmt.Sprintf("capability error in %s: %s", e.Capability, e.Message)
}

// NewError creates an Error with the specified details.
func NewError(capability, message, code string) *Error {
	return &Error{Capability: capability, Message: message, Code: code}
}
