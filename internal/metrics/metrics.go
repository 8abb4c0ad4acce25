package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deviceBytes atomic.Int64

var (
	DeviceMemoryAllocated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "device_memory_allocated_bytes",
		Help: "Current bytes allocated on the accelerator device",
	})

	ConstantsLoadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "constants_loaded_bytes_total",
		Help: "Total constant payload bytes materialized into tensors",
	})

	ConstantLoadDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "constant_load_duration_seconds",
		Help: "Duration of full constant loading passes",
	})

	RunsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runs_dispatched_total",
		Help: "Model runs dispatched, by device",
	}, []string{"device"})

	RunDispatchDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "run_dispatch_duration_seconds",
		Help: "Time from run entry to dispatch return (not completion)",
	})

	CompletionPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "completion_polls_total",
		Help: "is_finished polls, by result",
	}, []string{"result"})

	ABIFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abi_failures_total",
		Help: "Non-success statuses observed at the ABI boundary",
	}, []string{"call"})

	BlobBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "constant_blob_bytes",
		Help: "Size of the aligned constant blob allocation",
	})
)

// RecordDeviceMemory adds delta to the tracked device allocation total and
// updates the gauge.
func RecordDeviceMemory(delta int64) {
	DeviceMemoryAllocated.Set(float64(deviceBytes.Add(delta)))
}

// DeviceMemoryBytes returns the tracked device allocation total.
func DeviceMemoryBytes() int64 {
	return deviceBytes.Load()
}

func RecordConstantsLoaded(n int64, d time.Duration) {
	ConstantsLoadedBytes.Add(float64(n))
	ConstantLoadDuration.Observe(d.Seconds())
}

func RecordRunDispatch(device string, d time.Duration) {
	RunsDispatched.WithLabelValues(device).Inc()
	RunDispatchDuration.Observe(d.Seconds())
}

func RecordCompletionPoll(result string) {
	CompletionPolls.WithLabelValues(result).Inc()
}

func RecordABIFailure(call string) {
	ABIFailures.WithLabelValues(call).Inc()
}
