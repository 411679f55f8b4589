package telemetry

import (
	"context"
	"sort"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelMode      = "mode"
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelTenantID  = "tenant_id"
)

// Allocation operations used as profiling labels.
const (
	OperationAutoAllocate  = "auto_allocate"
	OperationManualEdit    = "manual_edit"
	OperationSubmitPayment = "submit_payment"
	OperationArchive       = "archive_receipt"
)

// maxLabelValueLength caps label values to keep profile cardinality sane.
const maxLabelValueLength = 128

// WithProfilingLabels runs fn with pprof labels attached, so CPU samples taken
// inside fn can be filtered by label in Pyroscope. Empty keys and values are
// skipped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// AllocationLabels labels an allocation operation.
func AllocationLabels(operation, mode string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation: operation,
		ProfilingLabelMode:      mode,
	}
}

func labelPairs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		if k != "" && v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := labels[k]
		if len(v) > maxLabelValueLength {
			v = v[:maxLabelValueLength]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
