// metrics.go - In-process counters for transfers, sweeps, and requests.
package server

import "sync"

// Metrics holds application metrics.
type Metrics struct {
	mu sync.RWMutex

	uploadsTotal       int64
	uploadBytesTotal   int64
	downloadsTotal     int64
	downloadBytesTotal int64
	deletesTotal       int64

	quotaRejectionsTotal int64

	sweepsTotal     int64
	filesSweptTotal int64

	requestsTotal    int64
	requestErrors4xx int64
	requestErrors5xx int64
}

var globalMetrics = &Metrics{}

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordUpload records a stored upload.
func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
}

// RecordDownload records a served download.
func (m *Metrics) RecordDownload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
	m.downloadBytesTotal += bytes
}

// RecordDelete records a successful delete.
func (m *Metrics) RecordDelete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletesTotal++
}

// RecordQuotaRejection records a request rejected by quota enforcement.
func (m *Metrics) RecordQuotaRejection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotaRejectionsTotal++
}

// RecordSweep records one retention sweep and the files it removed.
func (m *Metrics) RecordSweep(filesDeleted int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepsTotal++
	m.filesSweptTotal += filesDeleted
}

// RecordRequest records an HTTP request by response class.
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++
	switch {
	case statusCode >= 500:
		m.requestErrors5xx++
	case statusCode >= 400:
		m.requestErrors4xx++
	}
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		UploadsTotal:         m.uploadsTotal,
		UploadBytesTotal:     m.uploadBytesTotal,
		DownloadsTotal:       m.downloadsTotal,
		DownloadBytesTotal:   m.downloadBytesTotal,
		DeletesTotal:         m.deletesTotal,
		QuotaRejectionsTotal: m.quotaRejectionsTotal,
		SweepsTotal:          m.sweepsTotal,
		FilesSweptTotal:      m.filesSweptTotal,
		RequestsTotal:        m.requestsTotal,
		RequestErrors4xx:     m.requestErrors4xx,
		RequestErrors5xx:     m.requestErrors5xx,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	UploadsTotal         int64 `json:"uploads_total"`
	UploadBytesTotal     int64 `json:"upload_bytes_total"`
	DownloadsTotal       int64 `json:"downloads_total"`
	DownloadBytesTotal   int64 `json:"download_bytes_total"`
	DeletesTotal         int64 `json:"deletes_total"`
	QuotaRejectionsTotal int64 `json:"quota_rejections_total"`
	SweepsTotal          int64 `json:"sweeps_total"`
	FilesSweptTotal      int64 `json:"files_swept_total"`
	RequestsTotal        int64 `json:"requests_total"`
	RequestErrors4xx     int64 `json:"request_errors_4xx"`
	RequestErrors5xx     int64 `json:"request_errors_5xx"`
}
