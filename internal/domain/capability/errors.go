package capability

import (
	"context"
	"errors"
	"fmt"
)

// Adapter failure classes. Every adapter error wraps exactly one of these.
var (
	ErrConfiguration     = errors.New("provider configuration error")
	ErrTransientProvider = errors.New("transient provider error")
	ErrEmptyResult       = errors.New("provider returned no usable result")
)

var (
	// ErrAllProvidersExhausted means every adapter, including local, failed.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	// ErrInvalidInput marks a request rejected before orchestration.
	ErrInvalidInput = errors.New("invalid input")
)

// AdapterError is a classified failure from one provider.
type AdapterError struct {
	Provider string
	Kind     error
	Err      error
}

func (e *AdapterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AdapterError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ConfigurationError classifies err as a credential or setup problem.
func ConfigurationError(provider string, err error) error {
	return &AdapterError{Provider: provider, Kind: ErrConfiguration, Err: err}
}

// TransientError classifies err as a recoverable provider failure.
func TransientError(provider string, err error) error {
	return &AdapterError{Provider: provider, Kind: ErrTransientProvider, Err: err}
}

// EmptyResultError reports a successful call without usable content.
func EmptyResultError(provider, detail string) error {
	var cause error
	if detail != "" {
		cause = errors.New(detail)
	}
	return &AdapterError{Provider: provider, Kind: ErrEmptyResult, Err: cause}
}

// InvalidInput builds an ErrInvalidInput error with a caller facing message.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Outcome labels an attempt for logs and metrics.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeConfiguration Outcome = "configuration_error"
	OutcomeTransient     Outcome = "transient_error"
	OutcomeEmpty         Outcome = "empty_result"
	OutcomeCanceled      Outcome = "canceled"
)

// Classify maps an adapter error to an outcome. Unclassified errors count as
// transient so they still fall through to the next adapter.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrConfiguration):
		return OutcomeConfiguration
	case errors.Is(err, ErrEmptyResult):
		return OutcomeEmpty
	case errors.Is(err, ErrTransientProvider):
		return OutcomeTransient
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeTransient
	}
}
