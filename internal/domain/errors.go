package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrInvalidMedia          = errors.New("invalid media")
	ErrConflict              = errors.New("operation already in progress")
	ErrKeyRequired           = errors.New("api key selection required")
	ErrCapabilityUnavailable = errors.New("api key selection module is not available")
	ErrTimeout               = errors.New("video generation timed out")
	ErrGeneration            = errors.New("generation failed")
	ErrJobFailed             = errors.New("video job failed")
)

// CredentialSignature is the upstream message fragment returned when the
// selected API key cannot see the requested model.
const CredentialSignature = "Requested entity was not found"

// TimeoutMessage is shown when a video job exceeds its polling bound.
const TimeoutMessage = "Video generation took too long and was stopped. Please try again."

// NoVideoMessage is shown when a finished job carries no video.
const NoVideoMessage = "Video generation completed, but no video was returned."

// ValidationError carries a short instruction for the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(message string) error {
	return &ValidationError{Message: message}
}

// GenerationError wraps an upstream failure of a one-shot image call. Message
// is the upstream text, kept verbatim for display.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string { return e.Message }

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.Err}
}

// JobFailedError reports a terminal failure of a video job.
type JobFailedError struct {
	JobID   string
	Message string
	Err     error
}

func (e *JobFailedError) Error() string { return e.Message }

func (e *JobFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrJobFailed}
	}
	return []error{ErrJobFailed, e.Err}
}

// CredentialError is a JobFailedError whose upstream message matches the
// credential mismatch signature. Callers must re-run key selection.
type CredentialError struct {
	JobFailedError
}

func (e *CredentialError) Error() string {
	return "API Key error. Please re-select your API key."
}

func (e *CredentialError) Unwrap() []error {
	return []error{&e.JobFailedError, ErrKeyRequired}
}

// IsCredentialMessage reports whether an upstream message indicates that the
// selected key does not match the requested resource.
func IsCredentialMessage(msg string) bool {
	return strings.Contains(msg, CredentialSignature)
}

// UserMessage returns the text that should be shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var cred *CredentialError
	if errors.As(err, &cred) {
		return cred.Error()
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	var gen *GenerationError
	if errors.As(err, &gen) && gen.Message != "" {
		return gen.Message
	}
	var job *JobFailedError
	if errors.As(err, &job) && job.Message != "" {
		return job.Message
	}
	switch {
	case errors.Is(err, ErrInvalidMedia):
		return "Please select a valid image file (PNG, JPG, etc.)."
	case errors.Is(err, ErrTimeout):
		return TimeoutMessage
	case errors.Is(err, ErrKeyRequired):
		return "Please select an API key to generate videos."
	case errors.Is(err, ErrConflict):
		return "A request is already in progress. Please wait for it to finish."
	}
	msg := err.Error()
	if msg == "" {
		return "An unknown error occurred."
	}
	return msg
}
