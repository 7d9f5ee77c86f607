package apperrors

import "errors"

// Standardized hedge sync errors
var (
	ErrMalformedRequest  = errors.New("malformed request")
	ErrUnknownBaseID     = errors.New("unknown base id")
	ErrInconsistentState = errors.New("inconsistent stored state")
	ErrDirectionMismatch = errors.New("direction mismatch")
	ErrOrderSubmission   = errors.New("order submission failed")
	ErrOrderNotFound     = errors.New("order not found")
	ErrQueueFull         = errors.New("execution queue full")
	ErrExecutorStopped   = errors.New("executor stopped")
	ErrListenerStopped   = errors.New("listener stopped")
	ErrBridgeUnhealthy   = errors.New("bridge unhealthy")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
