package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying (network, timeout, rate limit).
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures that will not succeed on retry.
	ErrPermanent = errors.New("permanent failure")
	// ErrValidation marks malformed input that cannot be processed.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or invalid configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnavailable marks a required device or service that cannot be reached.
	ErrUnavailable = errors.New("unavailable")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether the error should be retried with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
