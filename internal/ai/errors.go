package ai

import (
	"errors"
	"fmt"

	"github.com/kiranshivaraju/artscan/pkg/models"
)

var (
	ErrProviderUnavailable = models.ErrProviderUnavailable
	ErrProviderRejected    = models.ErrProviderRejected
	ErrInferenceTimeout    = models.ErrInferenceTimeout
	ErrInvalidResponse     = models.ErrInvalidResponse
)

// ErrExtractionStep identifies which prompt of the extraction stage failed.
var ErrExtractionStep = errors.New("extraction step failed")

// StepError wraps a provider failure with the prompt that caused it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrExtractionStep, e.Step, e.Err)
}

func (e *StepError) Unwrap() []error { return []error{ErrExtractionStep, e.Err} }
