package httpserver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackwithabx/CDAC-Dependency-check/internal/application"
	appauth "github.com/hackwithabx/CDAC-Dependency-check/internal/application/auth"
	appscans "github.com/hackwithabx/CDAC-Dependency-check/internal/application/scans"
	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/infra/db/memory"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/infra/storage"
)

const testEngineKey = "engine-secret"

type stubEngine struct {
	mu   sync.Mutex
	reqs []domain.ScanRequest
	ch   chan domain.ScanRequest
}

func (e *stubEngine) Submit(ctx context.Context, req domain.ScanRequest) error {
	e.mu.Lock()
	e.reqs = append(e.reqs, req)
	e.mu.Unlock()
	e.ch <- req
	return nil
}

type env struct {
	srv    *httptest.Server
	engine *stubEngine
	store  *storage.MemoryStore
}

func newEnv(t *testing.T) *env {
	t.Helper()

	engine := &stubEngine{ch: make(chan domain.ScanRequest, 8)}
	store := storage.NewMemoryStore()

	authSvc := &appauth.Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionRepository(),
		Audit:      memory.NewAuditRepository(),
		Clock:      application.SystemClock{},
		SessionTTL: time.Hour,
		ResetTTL:   15 * time.Minute,
	}
	scanSvc := appscans.NewService(
		memory.NewScanRepository(),
		store,
		engine,
		memory.NewAuditRepository(),
		application.SystemClock{},
		10<<20,
	)

	handler := NewRouter(scanSvc, authSvc, Options{
		EngineKey:      testEngineKey,
		UploadMaxBytes: 10 << 20,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &env{srv: srv, engine: engine, store: store}
}

func (e *env) postJSON(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (e *env) do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (e *env) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.postJSON(t, "/register", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = e.postJSON(t, "/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func (e *env) upload(t *testing.T, token string) string {
	t.Helper()

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	w, err := zw.Create("package.json")
	require.NoError(t, err)
	_, err = w.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("file", "app.zip")
	require.NoError(t, err)
	_, err = fw.Write(archive.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("pci_dss", "true"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/scan", &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body struct {
		ScanID string `json:"scan_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "pending", body.Status)
	require.NotEmpty(t, body.ScanID)

	select {
	case <-e.engine.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("engine never received the scan request")
	}
	return body.ScanID
}

func (e *env) reportProgress(t *testing.T, scanID, status, risk string) *http.Response {
	t.Helper()
	return e.postJSON(t, "/internal/scans/"+scanID+"/progress", testEngineKey,
		map[string]string{"status": status, "risk_level": risk})
}

func TestScanLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")
	scanID := e.upload(t, token)

	resp := e.reportProgress(t, scanID, "processing", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = e.reportProgress(t, scanID, "completed", "high")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/scans/"+scanID, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var job domain.ScanJob
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	resp.Body.Close()
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, domain.RiskHigh, job.RiskLevel)
	assert.True(t, job.PCIDSS)
}

func TestReportDownloadOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")
	scanID := e.upload(t, token)

	// before completion the report is not available
	resp := e.do(t, http.MethodGet, "/report/"+scanID, token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	e.reportProgress(t, scanID, "processing", "").Body.Close()
	e.reportProgress(t, scanID, "completed", "low").Body.Close()

	doc := []byte(`{"scan_id":"` + scanID + `"}`)
	require.NoError(t, e.store.PutReport(context.Background(), domain.ScanID(scanID),
		bytes.NewReader(doc), int64(len(doc)), "application/json"))

	resp = e.do(t, http.MethodGet, "/report/"+scanID, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestDeleteSourceOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")
	scanID := e.upload(t, token)

	resp := e.do(t, http.MethodDelete, "/delete_source/"+scanID, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// second delete: the archive is already gone
	resp = e.do(t, http.MethodDelete, "/delete_source/"+scanID, token)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	resp.Body.Close()
}

func TestAuthorizationOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	alice := e.login(t, "alice", "pw-alice")
	bob := e.login(t, "bob", "pw-bob")
	scanID := e.upload(t, alice)

	resp := e.do(t, http.MethodGet, "/scans/"+scanID, bob)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/scans/"+scanID, "bogus-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/scans/"+scanID, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProgressEndpointRequiresEngineKey(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")
	scanID := e.upload(t, token)

	resp := e.postJSON(t, "/internal/scans/"+scanID+"/progress", "wrong-key",
		map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// a user session credential is not an engine key
	resp = e.postJSON(t, "/internal/scans/"+scanID+"/progress", token,
		map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProgressRejectsIllegalTransitionOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")
	scanID := e.upload(t, token)

	// skipping processing is a conflict
	resp := e.reportProgress(t, scanID, "completed", "low")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = e.reportProgress(t, scanID, "bogus", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestScanHistoryOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")
	e.upload(t, token)
	e.upload(t, token)

	resp := e.do(t, http.MethodGet, "/scan_history", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jobs []domain.ScanJob
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	resp.Body.Close()
	assert.Len(t, jobs, 2)

	resp = e.do(t, http.MethodGet, "/scan_history?page=1&page_size=1", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page domain.PaginatedResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	resp.Body.Close()
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(2), page.Total)
}

func TestDashboardStatsOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")
	scanID := e.upload(t, token)
	e.reportProgress(t, scanID, "processing", "").Body.Close()
	e.reportProgress(t, scanID, "completed", "medium").Body.Close()

	resp := e.do(t, http.MethodGet, "/dashboard-stats", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats domain.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.TotalScans)
	assert.Equal(t, 1, stats.RiskCounts[domain.RiskMedium])
}

func TestUploadRejectsNonZip(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/scan", &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")

	resp := e.postJSON(t, "/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/scan_history", token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPasswordResetOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login(t, "alice", "old-pw")

	resp := e.postJSON(t, "/forgot-password", "", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, fmt.Sprintf("User %s exists. Proceed with reset.", "alice"), body["detail"])

	// unknown usernames are reported on this endpoint
	resp = e.postJSON(t, "/forgot-password", "", map[string]string{"username": "nobody"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = e.postJSON(t, "/reset-password", "", map[string]string{"username": "alice", "new_password": "new-pw"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.postJSON(t, "/login", "", map[string]string{"username": "alice", "password": "new-pw"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownScanIDOverHTTP(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	token := e.login(t, "alice", "s3cret")

	// well-formed but unknown
	resp := e.do(t, http.MethodGet, "/scans/6a0f2a1e-9d7b-4f5e-8c3d-1b2a3c4d5e6f", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// malformed ids never reach storage
	resp = e.do(t, http.MethodGet, "/scans/"+strings.Repeat("x", 20), token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	resp.Body.Close()
	assert.Contains(t, m, "requests_total")
}
