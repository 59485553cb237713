package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrProbeFailed       = errors.New("probe failed")
	ErrConfigParse       = errors.New("config parse error")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProbeFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// RunFatal reports whether err must abort the whole run rather than a single
// combination. Probe failures and cancellation of a single unit are not fatal.
func RunFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrOracleUnavailable), errors.Is(err, ErrConfigParse), errors.Is(err, ErrConfiguration):
		return true
	default:
		return false
	}
}

// Hint returns a short operator-facing hint for a classified error.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrOracleUnavailable):
		return "install segmentation-fold or point oracle.binary at it"
	case errors.Is(err, ErrConfigParse):
		return "fix the segment XML or FASTA input"
	case errors.Is(err, ErrConfiguration):
		return "check energysplit config values"
	case errors.Is(err, ErrProbeFailed):
		return "inspect oracle stderr for this combination"
	default:
		return ""
	}
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
