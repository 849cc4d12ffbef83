package toygrep

import "errors"

// Sentinel errors for common error conditions
var (
	// Configuration errors
	ErrNoWorkers    = errors.New("at least one worker is required")
	ErrEmptyPattern = errors.New("pattern must not be empty")
	ErrUnknownOp    = errors.New("unknown operation")

	// Protocol errors
	ErrTransport           = errors.New("transport failure")
	ErrIncompatibleVersion = errors.New("incompatible version")
	ErrUnexpectedMessage   = errors.New("unexpected message")

	// Run errors
	ErrTaskFailed        = errors.New("one or more tasks failed")
	ErrNotDone           = errors.New("work queue not drained")
	ErrAlreadyTerminated = errors.New("worker already terminated")
	ErrUnknownWorker     = errors.New("unknown worker")
	ErrWorkerBusy        = errors.New("worker busy")
)
