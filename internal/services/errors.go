package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")

	// ErrMissingResolution marks a coordinate mapping attempted before both
	// the canvas and source resolutions are known.
	ErrMissingResolution = errors.New("resolution not known")

	// ErrEngineInit marks a failed initialization of the transcode engine.
	ErrEngineInit = errors.New("engine initialization failed")

	// Extraction failures surfaced by the transcode engine.
	ErrInvalidDuration = errors.New("invalid clip duration")
	ErrOutputMissing   = errors.New("engine produced no output")
	ErrEmptyOutput     = errors.New("engine produced empty output")
	ErrSubsystem       = errors.New("engine subsystem fault")

	// ErrUnauthenticated marks a remote delivery attempted without a valid
	// bearer credential.
	ErrUnauthenticated = errors.New("not authenticated")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification via errors.Is. The
// marker should be one of the exported sentinel errors above.
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
