// Package metrics exposes Prometheus collectors for backup operations,
// routed database operations and the admin API.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mwantia/ideascube/pkg/backup"
)

var (
	// Backup Metrics
	BackupOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideascube_backup_operations_total",
			Help: "Total number of backup repository operations",
		},
		[]string{"operation", "result"},
	)

	BackupOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ideascube_backup_operation_duration_seconds",
			Help:    "Backup repository operation duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"operation"},
	)

	BackupArchiveBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ideascube_backup_archive_bytes",
			Help: "Size of the last archive written by each operation",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DBOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideascube_db_operations_total",
			Help: "Total number of routed database operations",
		},
		[]string{"backend", "operation", "result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideascube_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ideascube_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// BackupObserver feeds backup.Repository events into the collectors above.
type BackupObserver struct{}

var _ backup.Observer = BackupObserver{}

func (BackupObserver) ObserveOperation(operation string, duration time.Duration, err error) {
	BackupOperationsTotal.WithLabelValues(operation, backupResult(err)).Inc()
	BackupOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (BackupObserver) ObserveArchiveSize(operation string, size int64) {
	BackupArchiveBytes.WithLabelValues(operation).Set(float64(size))
}

func backupResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, backup.ErrInvalidArchiveName):
		return "invalid_name"
	case errors.Is(err, backup.ErrInvalidArchiveFormat):
		return "invalid_format"
	case errors.Is(err, backup.ErrArchiveNotFound):
		return "not_found"
	case errors.Is(err, backup.ErrArchiveExists):
		return "exists"
	case errors.Is(err, backup.ErrCorruptArchive):
		return "corrupt"
	default:
		return "error"
	}
}

// RecordDBOperation counts one operation against a backend.
func RecordDBOperation(backend, operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	DBOperationsTotal.WithLabelValues(backend, operation, result).Inc()
}

// RecordAPIRequest records API request metrics
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
