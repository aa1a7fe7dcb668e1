// prometheus.go - Prometheus text-format exporter over the internal counters.
package server

import (
	"fmt"
	"net/http"
	"strings"
)

// metricsHandler serves GET /metrics in Prometheus exposition format.
func metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap := GetMetrics().Snapshot()

		var out strings.Builder
		writeCounter := func(name, help string, value int64) {
			fmt.Fprintf(&out, "# HELP %s %s\n", name, help)
			fmt.Fprintf(&out, "# TYPE %s counter\n", name)
			fmt.Fprintf(&out, "%s %d\n", name, value)
		}

		writeCounter("afd_uploads_total", "Files stored", snap.UploadsTotal)
		writeCounter("afd_upload_bytes_total", "Bytes stored", snap.UploadBytesTotal)
		writeCounter("afd_downloads_total", "Files served", snap.DownloadsTotal)
		writeCounter("afd_download_bytes_total", "Bytes served", snap.DownloadBytesTotal)
		writeCounter("afd_deletes_total", "Files deleted by private key", snap.DeletesTotal)
		writeCounter("afd_quota_rejections_total", "Requests rejected by quota", snap.QuotaRejectionsTotal)
		writeCounter("afd_sweeps_total", "Retention sweeps executed", snap.SweepsTotal)
		writeCounter("afd_files_swept_total", "Files removed by sweeps", snap.FilesSweptTotal)
		writeCounter("afd_requests_total", "HTTP requests", snap.RequestsTotal)
		writeCounter("afd_request_errors_4xx", "HTTP 4xx responses", snap.RequestErrors4xx)
		writeCounter("afd_request_errors_5xx", "HTTP 5xx responses", snap.RequestErrors5xx)

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(out.String()))
	}
}
