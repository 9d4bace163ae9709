package app

import "errors"

// Sentinel errors raised by the business services. Handlers map these to
// HTTP statuses; nothing here is ever fatal to the process.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrInvariantViolation = errors.New("breakdown total does not match payment amount")
	ErrNothingSelected    = errors.New("nothing selected for payment")
)
