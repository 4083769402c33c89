package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation marks malformed or missing input the caller can correct.
	ErrValidation = errors.New("validation error")
	// ErrEncoding marks malformed base64 or UTF-8 payloads.
	ErrEncoding = errors.New("encoding error")
	// ErrAuthentication marks a token that decrypted but matched no identity,
	// or a decryption failure on the verification token itself.
	ErrAuthentication = errors.New("authentication error")
	// ErrStageExecution marks an analyzer stage failure inside the pipeline.
	ErrStageExecution = errors.New("stage execution error")
	// ErrResource marks filesystem or cleanup failures.
	ErrResource = errors.New("resource error")
	// ErrUpstream marks failures from the key-management or AI providers.
	ErrUpstream = errors.New("upstream service error")
	// ErrTimeout marks a stage that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &serviceError{
		marker:     marker,
		detail:     buildDetail(stage, operation, message),
		message:    strings.TrimSpace(message),
		underlying: err,
	}
}

type serviceError struct {
	marker     error
	detail     string
	message    string
	underlying error
}

func (e *serviceError) Error() string {
	if e.underlying != nil {
		return fmt.Sprintf("%s: %s: %s", e.marker.Error(), e.detail, e.underlying.Error())
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), e.detail)
}

func (e *serviceError) Unwrap() []error {
	if e.underlying != nil {
		return []error{e.marker, e.underlying}
	}
	return []error{e.marker}
}

// HTTPStatus maps an error to the status code the API boundary should return.
// Validation, encoding, and authentication failures are user-correctable and
// surface as 400; everything else is an opaque 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrEncoding),
		errors.Is(err, ErrAuthentication):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message extracts the human-readable portion of a wrapped error, dropping
// the sentinel prefix and stage context so responses stay terse.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *serviceError
	if errors.As(err, &svcErr) && svcErr.message != "" {
		return svcErr.message
	}
	text := err.Error()
	for _, marker := range []error{
		ErrValidation, ErrEncoding, ErrAuthentication, ErrStageExecution,
		ErrResource, ErrUpstream, ErrTimeout, ErrTransient,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
