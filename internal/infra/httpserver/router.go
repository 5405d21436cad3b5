package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appauth "github.com/hackwithabx/CDAC-Dependency-check/internal/application/auth"
	appscans "github.com/hackwithabx/CDAC-Dependency-check/internal/application/scans"
	domauth "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/middleware"
)

type Router struct {
	scansSvc  *appscans.Service
	authSvc   *appauth.Service
	uploadMax int64
}

// Options tunes the HTTP surface.
type Options struct {
	EngineKey      string
	UploadMaxBytes int64
	CORSOrigins    []string
	Health         map[string]middleware.HealthChecker
}

func NewRouter(scansSvc *appscans.Service, authSvc *appauth.Service, opts Options) http.Handler {
	r := &Router{
		scansSvc:  scansSvc,
		authSvc:   authSvc,
		uploadMax: opts.UploadMaxBytes,
	}
	mux := chi.NewRouter()

	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/metrics", middleware.MetricsHandler)

	// Credential endpoints: public, brute-force limited.
	mux.Group(func(pub chi.Router) {
		pub.Use(middleware.RateLimitMiddleware(10, 1))
		pub.Post("/register", r.wrap(r.handleRegister))
		pub.Post("/login", r.wrap(r.handleLogin))
		pub.Post("/forgot-password", r.wrap(r.handleForgotPassword))
		pub.Post("/reset-password", r.wrap(r.handleResetPassword))
	})

	// Everything touching jobs requires a valid session.
	mux.Group(func(priv chi.Router) {
		priv.Use(middleware.SessionAuth(authSvc))
		priv.Post("/logout", r.wrap(r.handleLogout))
		priv.Post("/scan", r.wrap(r.handleSubmitScan))
		priv.Get("/scan_history", r.wrap(r.handleHistory))
		priv.Get("/scans/{scanId}", r.wrap(r.handleGetJob))
		priv.Get("/report/{scanId}", r.wrap(r.handleReport))
		priv.Delete("/delete_source/{scanId}", r.wrap(r.handleDeleteSource))
		priv.Get("/dashboard-stats", r.wrap(r.handleStats))
	})

	// Progress callbacks from an out-of-process engine.
	mux.Group(func(eng chi.Router) {
		eng.Use(middleware.EngineKeyAuth(opts.EngineKey))
		eng.Post("/internal/scans/{scanId}/progress", r.wrap(r.handleProgress))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			http.Error(w, err.Error(), statusFor(err))
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domauth.ErrInvalidCredentials),
		errors.Is(err, domauth.ErrExpired),
		errors.Is(err, domauth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domauth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domauth.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, domauth.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, domauth.ErrUserExists),
		errors.Is(err, domauth.ErrNoResetRequested),
		errors.Is(err, domain.ErrBadArchive),
		errors.Is(err, domain.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrArchiveTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSourceDeleted):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func identity(req *http.Request) (domauth.Identity, error) {
	id, ok := middleware.GetIdentity(req.Context())
	if !ok {
		return domauth.Identity{}, domauth.ErrInvalidToken
	}
	return id, nil
}

// POST /register
func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: body", domain.ErrMissingField)
	}
	if err := middleware.ValidateUsername(body.Username); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMissingField, err)
	}
	if err := r.authSvc.Register(req.Context(), body.Username, body.Password); err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]string{"detail": "Registration successful."})
}

// POST /login
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: body", domain.ErrMissingField)
	}
	res, err := r.authSvc.Login(req.Context(), body.Username, body.Password)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// POST /logout
func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) error {
	credential := strings.TrimSpace(strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer "))
	if err := r.authSvc.Logout(req.Context(), credential); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"detail": "Logged out."})
}

// POST /forgot-password
func (r *Router) handleForgotPassword(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: body", domain.ErrMissingField)
	}
	if err := r.authSvc.RequestPasswordReset(req.Context(), body.Username); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{
		"detail": fmt.Sprintf("User %s exists. Proceed with reset.", body.Username),
	})
}

// POST /reset-password
func (r *Router) handleResetPassword(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Username    string `json:"username"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: body", domain.ErrMissingField)
	}
	if err := r.authSvc.CompletePasswordReset(req.Context(), body.Username, body.NewPassword); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"detail": "Password reset successfully."})
}

// POST /scan, multipart upload: file, pci_dss
func (r *Router) handleSubmitScan(w http.ResponseWriter, req *http.Request) error {
	id, err := identity(req)
	if err != nil {
		return err
	}

	// Cap the whole request a little above the archive bound so the
	// multipart framing itself doesn't trip the limit.
	if r.uploadMax > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.uploadMax+(1<<20))
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.ErrArchiveTooLarge
		}
		return fmt.Errorf("%w: file", domain.ErrMissingField)
	}
	defer file.Close()

	if err := middleware.ValidateArchiveFilename(header.Filename); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadArchive, err)
	}

	archive, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.ErrArchiveTooLarge
		}
		return err
	}

	pciDSS := false
	switch strings.ToLower(req.FormValue("pci_dss")) {
	case "true", "1", "on", "yes":
		pciDSS = true
	}

	scanID, err := r.scansSvc.Submit(req.Context(), appscans.SubmitCommand{
		Identity: id,
		Archive:  archive,
		Filename: header.Filename,
		PCIDSS:   pciDSS,
	})
	if err != nil {
		return err
	}
	middleware.IncrementUploads()

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"scan_id": scanID,
		"status":  domain.StatusPending,
	})
}

// GET /scan_history?target_user=&page=&page_size=&limit=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	id, err := identity(req)
	if err != nil {
		return err
	}
	targetUser := req.URL.Query().Get("target_user")

	if pageStr := req.URL.Query().Get("page"); pageStr != "" {
		page, _ := strconv.Atoi(pageStr)
		size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
		result, err := r.scansSvc.HistoryPage(req.Context(), id, targetUser, page, middleware.ValidatePageSize(size))
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, result)
	}

	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	jobs, err := r.scansSvc.History(req.Context(), id, targetUser, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []*domain.ScanJob{}
	}
	return writeJSON(w, http.StatusOK, jobs)
}

// GET /scans/{scanId}
func (r *Router) handleGetJob(w http.ResponseWriter, req *http.Request) error {
	id, err := identity(req)
	if err != nil {
		return err
	}
	scanID, err := scanIDParam(req)
	if err != nil {
		return err
	}
	job, err := r.scansSvc.Get(req.Context(), id, scanID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, job)
}

// GET /report/{scanId}
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	id, err := identity(req)
	if err != nil {
		return err
	}
	scanID, err := scanIDParam(req)
	if err != nil {
		return err
	}
	rc, err := r.scansSvc.Report(req.Context(), id, scanID)
	if err != nil {
		return err
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(scanID)+"-report.json"))
	_, err = io.Copy(w, rc)
	return err
}

// DELETE /delete_source/{scanId}
func (r *Router) handleDeleteSource(w http.ResponseWriter, req *http.Request) error {
	id, err := identity(req)
	if err != nil {
		return err
	}
	scanID, err := scanIDParam(req)
	if err != nil {
		return err
	}
	if err := r.scansSvc.DeleteSource(req.Context(), id, scanID); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{
		"detail": fmt.Sprintf("Source code for scan %s deleted.", scanID),
	})
}

// GET /dashboard-stats
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	id, err := identity(req)
	if err != nil {
		return err
	}
	stats, err := r.scansSvc.Stats(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, stats)
}

// POST /internal/scans/{scanId}/progress
func (r *Router) handleProgress(w http.ResponseWriter, req *http.Request) error {
	scanID, err := scanIDParam(req)
	if err != nil {
		return err
	}
	var body struct {
		Status    string `json:"status"`
		RiskLevel string `json:"risk_level"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: body", domain.ErrMissingField)
	}
	status, err := domain.ParseStatus(body.Status)
	if err != nil {
		return err
	}
	risk, err := domain.ParseRiskLevel(body.RiskLevel)
	if err != nil {
		return err
	}
	if err := r.scansSvc.ReportProgress(req.Context(), scanID, status, risk); err != nil {
		return err
	}
	switch status {
	case domain.StatusCompleted:
		middleware.IncrementScansCompleted()
	case domain.StatusFailed:
		middleware.IncrementScansFailed()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"detail": "ok"})
}

func scanIDParam(req *http.Request) (domain.ScanID, error) {
	raw := chi.URLParam(req, "scanId")
	if err := middleware.ValidateScanID(raw); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return domain.ScanID(raw), nil
}
