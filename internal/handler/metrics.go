package handler

import (
	"fmt"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// rejectReasons fixes the output order of the rejection counters.
var rejectReasons = []string{
	metrics.RejectMissing,
	metrics.RejectInvalid,
	metrics.RejectExpired,
	metrics.RejectRevoked,
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "taskdeck_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "taskdeck_logins_total{status=%q} %d\n", metrics.LoginSuccess, snap.LoginsSucceeded)
	writeMetric(w, "taskdeck_logins_total{status=%q} %d\n", metrics.LoginFailed, snap.LoginsFailed)
	writeMetric(w, "taskdeck_logouts_total %d\n", snap.Logouts)
	for _, reason := range rejectReasons {
		writeMetric(w, "taskdeck_sessions_rejected_total{reason=%q} %d\n", reason, snap.SessionsRejected[reason])
	}
	writeMetric(w, "taskdeck_auth_rate_limited_total %d\n", snap.AuthRateLimited)

	writeMetric(w, "taskdeck_tasks_created_total %d\n", snap.TasksCreated)
	writeMetric(w, "taskdeck_tasks_updated_total %d\n", snap.TasksUpdated)
	writeMetric(w, "taskdeck_tasks_deleted_total %d\n", snap.TasksDeleted)

	writeMetric(w, "taskdeck_http_request_duration_seconds_count %d\n", snap.RequestDurationCount)
	writeMetric(w, "taskdeck_http_request_duration_seconds_sum %.6f\n", float64(snap.RequestDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
