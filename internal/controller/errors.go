package controller

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

// ControllerErrorCause classifies a Controller-level failure.
type ControllerErrorCause string

const (
	ErrCauseAlreadyRunning ControllerErrorCause = "already running"
	ErrCauseSeedFailure    ControllerErrorCause = "failed to seed frontier"
	ErrCauseInvalidBaseURL ControllerErrorCause = "invalid base url"
)

// ControllerError is this package's failure.ClassifiedError implementation.
type ControllerError struct {
	Message string
	Cause   ControllerErrorCause
}

func (e *ControllerError) Error() string {
	return fmt.Sprintf("controller error: %s: %s", e.Cause, e.Message)
}

func (e *ControllerError) Severity() failure.Severity {
	return failure.SeverityFatal
}

var _ failure.ClassifiedError = (*ControllerError)(nil)
