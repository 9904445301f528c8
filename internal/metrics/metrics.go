package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, path, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptdeck_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// InvokeDuration tracks Bedrock inference latency per model.
	InvokeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptdeck_invoke_duration_seconds",
		Help:    "Time spent on model invocation.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"model"})

	// InvokeErrors counts failed invocations per model.
	InvokeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptdeck_invoke_errors_total",
		Help: "Model invocations that returned an error.",
	}, []string{"model"})

	// InputChars tracks the distribution of prompt lengths.
	InputChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promptdeck_input_chars",
		Help:    "Number of characters in submitted prompts.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	// RecordsWritten counts invocation records persisted.
	RecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promptdeck_records_written_total",
		Help: "Invocation records written to the store.",
	})

	// StoreErrors counts record store failures by operation.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptdeck_store_errors_total",
		Help: "Record store operations that returned an error.",
	}, []string{"op"})
)
