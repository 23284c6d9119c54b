package agent

import (
	"github.com/cockroachdb/errors"
)

// Run failure classes. Callers inspect them with errors.Is to decide
// how a failed run is reported.
var (
	// ErrLoopLimit is returned when the reason/act cycle exceeds the
	// configured iteration cap.
	ErrLoopLimit = errors.New("agent: iteration limit exceeded")

	// ErrModelService marks failures of the reasoning call itself:
	// timeouts, rate limits, malformed responses. Fatal to the run.
	ErrModelService = errors.New("agent: model service failure")

	// ErrConnectivity marks tool endpoint failures. Not fatal on its
	// own, a run only fails with it when no tools could be resolved.
	ErrConnectivity = errors.New("agent: tool endpoint unreachable")
)

// FailureReason names the taxonomy member of a run failure, for
// structured responses and metrics.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLoopLimit):
		return "loop_limit_exceeded"
	case errors.Is(err, ErrModelService):
		return "model_service_error"
	case errors.Is(err, ErrConnectivity):
		return "connectivity_error"
	default:
		return "internal_error"
	}
}
