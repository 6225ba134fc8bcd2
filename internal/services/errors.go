package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for error classification. Every error a stage or store
// returns is tagged with exactly one of these so callers can route on
// errors.Is without string matching.
var (
	ErrValidation  = errors.New("validation error")
	ErrDuplicate   = errors.New("duplicate task")
	ErrExtraction  = errors.New("extraction error")
	ErrTransform   = errors.New("transform error")
	ErrSynthesis   = errors.New("synthesis error")
	ErrTransient   = errors.New("transient failure")
	ErrCancelled   = errors.New("cancelled")
	ErrPersistence = errors.New("persistence error")
	ErrNotFound    = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps a classified error to its wire-visible kind string.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrDuplicate):
		return "DuplicateError"
	case errors.Is(err, ErrExtraction):
		return "ExtractionError"
	case errors.Is(err, ErrTransform):
		return "TransformError"
	case errors.Is(err, ErrSynthesis):
		return "SynthesisError"
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return "Cancelled"
	case errors.Is(err, ErrPersistence):
		return "PersistenceError"
	case errors.Is(err, ErrNotFound):
		return "NotFoundError"
	default:
		return "TransientIOError"
	}
}

// IsRetryable reports whether the error class permits another attempt of the
// same stage. Permanent classifications and cancellation never retry.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrExtraction), errors.Is(err, ErrPersistence):
		return false
	case errors.Is(err, ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, ErrTransform), errors.Is(err, ErrSynthesis):
		return true
	default:
		return false
	}
}

// Message returns the human-readable portion of a classified error with the
// sentinel prefix trimmed, suitable for API consumers.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{
		ErrValidation, ErrDuplicate, ErrExtraction, ErrTransform,
		ErrSynthesis, ErrTransient, ErrCancelled, ErrPersistence, ErrNotFound,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
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
