package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAdmissionDenied   = errors.New("admission denied")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrLicenseInactive   = errors.New("license not active")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrCancelled         = errors.New("job cancelled")
	ErrProviderFailure   = errors.New("provider failure")
)

// ExtractionError reports that structured output could not be obtained from
// the model after all escalation tiers. Context identifies the logical
// request for diagnostics only.
type ExtractionError struct {
	Context string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("json extraction failed for %s: %v", e.Context, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StageError marks a pipeline stage failure. Fatal to the job unless the
// stage declares otherwise.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
