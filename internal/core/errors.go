package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors: recovered per symbol, never pipeline-fatal on their own
	ErrDataUnavailable  = &Error{Code: "DATA_UNAVAILABLE", Message: "market data unavailable"}
	ErrFetchTimeout     = &Error{Code: "FETCH_TIMEOUT", Message: "market data fetch timed out"}
	ErrValidationFailed = &Error{Code: "VALIDATION_FAILED", Message: "price series validation failed"}
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no usable data for any symbol"}

	// Strategy errors: fatal to the run
	ErrStrategyNotFound = &Error{Code: "STRATEGY_NOT_FOUND", Message: "strategy not found"}

	// Run lifecycle errors
	ErrRunNotFound     = &Error{Code: "RUN_NOT_FOUND", Message: "backtest run not found"}
	ErrRunActive       = &Error{Code: "RUN_ACTIVE", Message: "backtest run already executing"}
	ErrRunTerminal     = &Error{Code: "RUN_TERMINAL", Message: "backtest run already finished"}
	ErrExecutionFailed = &Error{Code: "EXECUTION_FAILED", Message: "backtest execution failed"}

	// Runner errors
	ErrQueueFull = &Error{Code: "QUEUE_FULL", Message: "run queue is full"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
