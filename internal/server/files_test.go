package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a fully wired server over temp-dir stores.
type testEnv struct {
	handler  http.Handler
	quota    *QuotaStore
	index    *FileIndex
	activity *ActivityTracker
}

func newTestEnv(t *testing.T, limitMB int64) *testEnv {
	t.Helper()

	persist, err := NewFileQuotaPersistence(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	quota := NewQuotaStore(persist)

	store, err := NewDirBlobStore(t.TempDir())
	require.NoError(t, err)
	index := NewFileIndex(store, testSecret)

	activity := NewActivityTracker()

	cfg := Config{
		Addr:           ":0",
		SecretKey:      testSecret,
		DailyLimitMB:   limitMB,
		MaxUploadBytes: limitMB * bytesPerMB,
	}
	srv := New(cfg, quota, index, activity)

	return &testEnv{
		handler:  srv.Handler(),
		quota:    quota,
		index:    index,
		activity: activity,
	}
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/files/", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) uploadOK(t *testing.T, filename string, content []byte) uploadResp {
	t.Helper()
	rr := e.upload(t, filename, content)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp uploadResp
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func (e *testEnv) delete(path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, path, nil))
	return rr
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	env := newTestEnv(t, 100)
	content := []byte("the quick brown fox")

	resp := env.uploadOK(t, "notes.txt", content)
	require.True(t, isHexKey(resp.PublicKey))
	require.True(t, isHexKey(resp.PrivateKey))
	assert.Equal(t, DerivePublicKey(content), resp.PublicKey)
	assert.Equal(t, DerivePrivateKey(resp.PublicKey, testSecret), resp.PrivateKey)

	rr := env.get("/files/" + resp.PublicKey)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, content, rr.Body.Bytes())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="notes.txt"`)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
}

func TestUpload_UnknownExtensionServedAsOctetStream(t *testing.T) {
	env := newTestEnv(t, 100)

	resp := env.uploadOK(t, "blob.weirdext123", []byte{0x00, 0x01, 0x02})

	rr := env.get("/files/" + resp.PublicKey)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/octet-stream", rr.Header().Get("Content-Type"))
}

func TestUpload_IdenticalContentSameKeys(t *testing.T) {
	env := newTestEnv(t, 100)
	content := []byte("same bytes")

	first := env.uploadOK(t, "a.txt", content)
	second := env.uploadOK(t, "a.txt", content)

	assert.Equal(t, first.PublicKey, second.PublicKey)
	assert.Equal(t, first.PrivateKey, second.PrivateKey)
}

func TestUpload_NotMultipart(t *testing.T) {
	env := newTestEnv(t, 100)

	req := httptest.NewRequest(http.MethodPost, "/files/", strings.NewReader("raw body"))
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpload_MissingFileField(t *testing.T) {
	env := newTestEnv(t, 100)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("comment", "no file here"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/files/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDownload_MalformedKeyIsNotFound(t *testing.T) {
	env := newTestEnv(t, 100)

	tests := []struct {
		name string
		key  string
	}{
		{"too short", "abc123"},
		{"63 chars", strings.Repeat("a", 63)},
		{"65 chars", strings.Repeat("a", 65)},
		{"non-hex", strings.Repeat("z", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.get("/files/" + tt.key)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.Contains(t, rr.Body.String(), "Not Found")
		})
	}
}

func TestDownload_UnknownKey(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.get("/files/" + DerivePublicKey([]byte("never uploaded")))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDownload_AfterSweepIsNotFound(t *testing.T) {
	env := newTestEnv(t, 100)
	resp := env.uploadOK(t, "gone.txt", []byte("to be swept"))

	_, err := env.index.ClearAll(t.Context())
	require.NoError(t, err)

	rr := env.get("/files/" + resp.PublicKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDelete_Success(t *testing.T) {
	env := newTestEnv(t, 100)
	resp := env.uploadOK(t, "doomed.txt", []byte("delete me"))

	rr := env.delete("/files/" + resp.PrivateKey)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"detail": "Delete successful"}`, rr.Body.String())

	// The file is really gone.
	rr = env.get("/files/" + resp.PublicKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDelete_RepeatedDeleteIsNotFound(t *testing.T) {
	env := newTestEnv(t, 100)
	resp := env.uploadOK(t, "doomed.txt", []byte("delete me"))

	rr := env.delete("/files/" + resp.PrivateKey)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.delete("/files/" + resp.PrivateKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDelete_ForgedPrivateKeyRejected(t *testing.T) {
	env := newTestEnv(t, 100)
	resp := env.uploadOK(t, "safe.txt", []byte("protected"))

	forged := DerivePrivateKey(resp.PublicKey, "not-the-server-secret")
	rr := env.delete("/files/" + forged)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Still retrievable.
	rr = env.get("/files/" + resp.PublicKey)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDelete_MalformedKeyIsNotFound(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.delete("/files/short")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpload_FilenameSanitized(t *testing.T) {
	env := newTestEnv(t, 100)

	resp := env.uploadOK(t, "../../etc/passwd", []byte("not really"))

	rr := env.get("/files/" + resp.PublicKey)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="passwd"`)
}

func TestFilesRoutesTouchActivity(t *testing.T) {
	env := newTestEnv(t, 100)

	stale := env.activity.now().Add(-90 * time.Minute)
	env.activity.last = stale

	env.uploadOK(t, "a.txt", []byte("activity"))

	assert.Equal(t, 0, env.activity.MinutesSinceLastActivity())
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.get("/health")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, 100)
	env.uploadOK(t, "m.txt", []byte("count me"))

	rr := env.get("/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "afd_uploads_total")
	assert.Contains(t, rr.Body.String(), "afd_requests_total")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"unix path", "/etc/passwd", "passwd"},
		{"relative path", "../../x.txt", "x.txt"},
		{"windows path", `C:\temp\x.txt`, "x.txt"},
		{"empty", "", "file"},
		{"dot", ".", "file"},
		{"dotdot", "..", "file"},
		{"spaces kept", "my file.txt", "my file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}
