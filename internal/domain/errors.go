package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrMalformedCase      = errors.New("malformed case")
	ErrTransform          = errors.New("transform failed")
	ErrMissingExpected    = errors.New("missing expected artifact")
	ErrArtifactMismatch   = errors.New("output mismatch")
	ErrUnreadableOutput   = errors.New("unreadable produced artifact")
	ErrSessionClosed      = errors.New("service session closed")
)

// ServiceUnavailableError means no session could be established.
// It aborts the whole run before any case executes.
type ServiceUnavailableError struct {
	Service string
	Err     error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service %s unavailable: %v", e.Service, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

func (e *ServiceUnavailableError) Is(target error) bool { return target == ErrServiceUnavailable }

// MalformedCaseError is returned for a descriptor that cannot be used.
type MalformedCaseError struct {
	Path string
	Err  error
}

func (e *MalformedCaseError) Error() string {
	return fmt.Sprintf("malformed case %s: %v", e.Path, e.Err)
}

func (e *MalformedCaseError) Unwrap() error { return e.Err }

func (e *MalformedCaseError) Is(target error) bool { return target == ErrMalformedCase }

// TransformError is an error answer from the service for one request.
// The session stays usable.
type TransformError struct {
	Code    string
	Message string
}

func (e *TransformError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("transform failed: %s", e.Message)
	}
	return fmt.Sprintf("transform failed: %s: %s", e.Code, e.Message)
}

func (e *TransformError) Is(target error) bool { return target == ErrTransform }

// MissingExpectedArtifactError is a test authoring defect: the golden file
// for a case does not exist.
type MissingExpectedArtifactError struct {
	Path string
}

func (e *MissingExpectedArtifactError) Error() string {
	return fmt.Sprintf("no output file for test: %s", e.Path)
}

func (e *MissingExpectedArtifactError) Is(target error) bool { return target == ErrMissingExpected }

// ArtifactMismatchError describes a produced artifact that differs from
// the golden one. Offset is the first differing byte.
type ArtifactMismatchError struct {
	ProducedSize int
	ExpectedSize int
	Offset       int
}

func (e *ArtifactMismatchError) Error() string {
	return fmt.Sprintf("output mismatch (got %d bytes, want %d, first difference at byte %d)",
		e.ProducedSize, e.ExpectedSize, e.Offset)
}

func (e *ArtifactMismatchError) Is(target error) bool { return target == ErrArtifactMismatch }

// FailureKind classifies a failure for storage and reporting.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedCase):
		return "malformed_case"
	case errors.Is(err, ErrTransform):
		return "transform"
	case errors.Is(err, ErrMissingExpected):
		return "missing_expected"
	case errors.Is(err, ErrArtifactMismatch):
		return "mismatch"
	case errors.Is(err, ErrUnreadableOutput):
		return "unreadable_output"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	default:
		return "error"
	}
}
