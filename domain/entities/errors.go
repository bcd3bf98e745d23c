package entities

import "errors"

var (
	// ErrTimeout is returned by the browser capability when an operation exceeds its timeout
	ErrTimeout = errors.New("operation timed out")

	// ErrDriverUnavailable means the browser, context or page is gone; runs cannot continue
	ErrDriverUnavailable = errors.New("browser driver unavailable")

	// ErrUnknownAction is returned when a plan contains an action outside the step vocabulary
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidStep is returned when a step is missing required fields
	ErrInvalidStep = errors.New("invalid step")
)
