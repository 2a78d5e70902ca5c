package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewSampler builds the probability sampler from a single configured
// probability in [0.0, 1.0]. Out-of-range values are a configuration error
// raised at startup, never clamped.
//
// The ratio sampler decides from the trace id, so all services sharing a
// trace make the same decision, and it is wrapped in ParentBased so child
// spans always follow their parent's decision:
//   - probability 0.0 never samples a root trace
//   - probability 1.0 always samples
//   - otherwise roughly that fraction of root traces is sampled
func NewSampler(probability float64) (sdktrace.Sampler, error) {
	if probability < 0.0 || probability > 1.0 {
		return nil, fmt.Errorf("sampling probability must be between 0.0 and 1.0, got %g", probability)
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(probability)), nil
}
