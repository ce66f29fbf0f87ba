package traccar

import (
	"errors"
	"fmt"
)

// ErrNoData indicates the provider answered but reported no position fix.
var ErrNoData = errors.New("no position data available")

// ConfigError indicates an incomplete client configuration. It is returned
// before any network call is attempted so callers can show a setup prompt.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("traccar not configured: missing %s", e.Field)
}

// TransportError wraps network-level failures (DNS, refused, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("traccar request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError carries a non-2xx status or an unparseable body, with enough
// of the raw response kept for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("traccar responded %d: %s", e.Status, e.Body)
}
