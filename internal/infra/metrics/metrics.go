package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultd_operations_total",
		Help: "Vault operations, labelled by operation and outcome.",
	}, []string{"operation", "outcome"})

	TransferredAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultd_transferred_amount_total",
		Help: "Sum of amounts moved by successful operations, labelled by event kind.",
	}, []string{"kind"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultd_operation_duration_ms",
		Help:    "Operation latency including the database transaction, in milliseconds.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"operation"})
)
