package capability

import (
	"fmt"
	"time"

	"github.com/rolemesh/rolemesh/core"
	"github.com/rolemesh/rolemesh/internal/util"
)

// FunctionCapability adapts a plain Go function into a Capability.
//
// It holds a lightweight JSON-Schema-like parameter specification, validates
// supplied arguments against it before execution, and normalizes failures so
// callers receive *Error with consistent codes: CodeValidation for schema
// mismatches, CodeExecution for function errors, with custom codes preserved
// when the function returns *Error directly.
//
// A FunctionCapability has no mutable state after construction and is safe
// for concurrent use.
type FunctionCapability struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(tc *core.TaskContext, args map[string]any) (any, error)
}

// NewFunction constructs a FunctionCapability from an explicit schema and
// function.
//
// Example:
//
//	sum := capability.NewFunction(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *core.TaskContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunction(
	name, description string,
	parameters map[string]any,
	fn func(tc *core.TaskContext, args map[string]any) (any, error),
) *FunctionCapability {
	return &FunctionCapability{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionFromStruct derives the parameter schema from a struct using
// reflection, equivalent to util.CreateSchema(structType).
func NewFunctionFromStruct(
	name, description string,
	structType any,
	fn func(tc *core.TaskContext, args map[string]any) (any, error),
) *FunctionCapability {
	return NewFunction(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique capability name used in action routing.
func (c *FunctionCapability) Name() string { return c.name }

// Description returns the description exposed to planning strategies.
func (c *FunctionCapability) Description() string { return c.description }

// Parameters returns the JSON schema describing expected arguments.
func (c *FunctionCapability) Parameters() map[string]any { return c.parameters }

// Invoke validates args against the declared schema then runs the wrapped
// function. Failures are wrapped (or passed through) as *Error.
func (c *FunctionCapability) Invoke(tc *core.TaskContext, args map[string]any) (any, error) {
	logger := tc.Logger
	start := time.Now()

	logger.Debug("capability.call.start", "capability", c.name, "namespace", tc.Namespace)

	if err := util.ValidateParameters(args, c.parameters); err != nil {
		logger.Warn("capability.call.validation_failed", "capability", c.name, "error", err.Error())

		return nil, &Error{
			Capability: c.name,
			Message:    fmt.Sprintf("parameter validation failed: %v", err),
			Code:       CodeValidation,
			Details:    err,
		}
	}

	result, err := c.fn(tc, args)
	if err != nil {
		if capErr, ok := err.(*Error); ok { // Already an Error -> log and forward
			logger.Error("capability.call.error", "capability", c.name, "error", capErr.Message)

			return nil, capErr
		}

		logger.Error("capability.call.error", "capability", c.name, "error", err.Error())

		return nil, &Error{
			Capability: c.name,
			Message:    err.Error(),
			Code:       CodeExecution,
		}
	}

	logger.Info("capability.call.success", "capability", c.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
