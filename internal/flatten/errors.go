package flatten

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errors.New("flatten: invalid configuration")

	// ErrMalformedPayload marks a record that yields no output. It never
	// leaves Apply or Process.
	ErrMalformedPayload = errors.New("flatten: malformed payload")
)

// ConfigError is returned by New. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("flatten: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// malformed carries the metrics reason of a dropped record.
type malformed struct {
	reason string
	err    error
}

func (m *malformed) Error() string {
	if m.err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedPayload, m.reason, m.err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedPayload, m.reason)
}

func (m *malformed) Unwrap() []error {
	if m.err != nil {
		return []error{ErrMalformedPayload, m.err}
	}
	return []error{ErrMalformedPayload}
}

// DropReason returns the reason label of a malformed-payload error, or "".
func DropReason(err error) string {
	var m *malformed
	if errors.As(err, &m) {
		return m.reason
	}
	return ""
}
