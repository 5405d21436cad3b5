package scans

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/hackwithabx/CDAC-Dependency-check/internal/application"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/domain/audit"
	"github.com/hackwithabx/CDAC-Dependency-check/internal/domain/auth"
	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
)

// Service implements use-cases for scan jobs: dispatching uploads,
// history queries, report access, source deletion, and the progress
// sink the engine reports into. Safe for concurrent use.
type Service struct {
	Repo      domain.Repository
	Artifacts domain.ArtifactStore
	Engine    domain.Engine
	Audit     audit.Repository
	Clock     application.Clock

	// MaxArchiveBytes bounds uploads; zero means no bound.
	MaxArchiveBytes int64

	locks *jobLocks
}

func NewService(repo domain.Repository, artifacts domain.ArtifactStore, engine domain.Engine, auditRepo audit.Repository, clock application.Clock, maxArchiveBytes int64) *Service {
	return &Service{
		Repo:            repo,
		Artifacts:       artifacts,
		Engine:          engine,
		Audit:           auditRepo,
		Clock:           clock,
		MaxArchiveBytes: maxArchiveBytes,
		locks:           newJobLocks(),
	}
}

//
// ==== USE CASES ====
//

// SubmitCommand carries one upload.
type SubmitCommand struct {
	Identity auth.Identity
	Archive  []byte
	Filename string
	PCIDSS   bool
}

// Submit validates the archive, persists the job in pending state, and
// hands it to the engine. The job row and the stored archive are both
// durable before Submit returns, so the job shows up in history
// immediately; the scan itself runs asynchronously.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (domain.ScanID, error) {
	if strings.TrimSpace(cmd.Filename) == "" {
		return "", fmt.Errorf("%w: filename", domain.ErrMissingField)
	}
	if len(cmd.Archive) == 0 {
		return "", fmt.Errorf("%w: file", domain.ErrMissingField)
	}
	if s.MaxArchiveBytes > 0 && int64(len(cmd.Archive)) > s.MaxArchiveBytes {
		return "", domain.ErrArchiveTooLarge
	}
	if _, err := zip.NewReader(bytes.NewReader(cmd.Archive), int64(len(cmd.Archive))); err != nil {
		return "", domain.ErrBadArchive
	}

	id := domain.ScanID(uuid.NewString())
	if err := s.Artifacts.PutSource(ctx, id, cmd.Filename, bytes.NewReader(cmd.Archive), int64(len(cmd.Archive))); err != nil {
		return "", fmt.Errorf("storing source archive: %w", err)
	}

	job := &domain.ScanJob{
		ScanID:        id,
		Owner:         cmd.Identity.Username,
		Filename:      cmd.Filename,
		UploadedAt:    s.Clock.Now(),
		PCIDSS:        cmd.PCIDSS,
		Status:        domain.StatusPending,
		SourcePresent: true,
	}
	if err := s.Repo.Save(ctx, job); err != nil {
		return "", err
	}

	s.record(ctx, fmt.Sprintf("Scan submitted: %s (%s)", id, cmd.Filename), cmd.Identity.Username, "scan")

	// Hand off with a detached context so the scan survives the request.
	go func() {
		req := domain.ScanRequest{ScanID: id, Filename: cmd.Filename, PCIDSS: cmd.PCIDSS}
		if err := s.Engine.Submit(context.Background(), req); err != nil {
			log.Printf("engine submit failed for scan=%s: %v", id, err)
			if perr := s.ReportProgress(context.Background(), id, domain.StatusProcessing, domain.RiskNone); perr == nil {
				_ = s.ReportProgress(context.Background(), id, domain.StatusFailed, domain.RiskNone)
			}
		}
	}()

	return id, nil
}

// Get loads one job, enforcing owner-or-admin access.
func (s *Service) Get(ctx context.Context, identity auth.Identity, id domain.ScanID) (*domain.ScanJob, error) {
	job, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccess(job.Owner) {
		return nil, auth.ErrForbidden
	}
	return job, nil
}

// History lists jobs newest first. Admins may pass targetUser="" for
// everything or name a user; non-admins only ever see their own jobs.
func (s *Service) History(ctx context.Context, identity auth.Identity, targetUser string, limit int) ([]*domain.ScanJob, error) {
	owner, err := resolveScope(identity, targetUser)
	if err != nil {
		return nil, err
	}
	return s.Repo.List(ctx, owner, limit)
}

// HistoryPage is History with offset pagination metadata.
func (s *Service) HistoryPage(ctx context.Context, identity auth.Identity, targetUser string, page, pageSize int) (domain.PaginatedResult, error) {
	owner, err := resolveScope(identity, targetUser)
	if err != nil {
		return domain.PaginatedResult{}, err
	}
	return s.Repo.Paginate(ctx, owner, page, pageSize)
}

func resolveScope(identity auth.Identity, targetUser string) (string, error) {
	if identity.Role == auth.RoleAdmin {
		return targetUser, nil // "" = all owners
	}
	if targetUser != "" && targetUser != identity.Username {
		return "", auth.ErrForbidden
	}
	return identity.Username, nil
}

// Report streams the report artifact of a completed job. Reading the
// report never mutates state and is unaffected by source deletion.
func (s *Service) Report(ctx context.Context, identity auth.Identity, id domain.ScanID) (io.ReadCloser, error) {
	job, err := s.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.StatusCompleted {
		return nil, domain.ErrNotReady
	}
	rc, err := s.Artifacts.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, fmt.Sprintf("Report downloaded: %s", id), identity.Username, "report_download")
	return rc, nil
}

// DeleteSource irreversibly removes the uploaded archive. The first call
// succeeds; any further call reports ErrSourceDeleted so the client can
// tell "deleted now" from "already gone". The report is untouched.
func (s *Service) DeleteSource(ctx context.Context, identity auth.Identity, id domain.ScanID) error {
	unlock := s.locks.acquire(id)
	defer unlock()

	job, err := s.Get(ctx, identity, id)
	if err != nil {
		return err
	}
	if !job.SourcePresent {
		return domain.ErrSourceDeleted
	}
	if err := s.Artifacts.DeleteSource(ctx, id); err != nil {
		return fmt.Errorf("removing source archive: %w", err)
	}
	if err := s.Repo.MarkSourceDeleted(ctx, id); err != nil {
		return err
	}
	s.record(ctx, fmt.Sprintf("Source deleted: %s", id), identity.Username, "source_delete")
	return nil
}

// Stats computes the dashboard aggregate over the caller's scope.
func (s *Service) Stats(ctx context.Context, identity auth.Identity) (domain.Stats, error) {
	owner := identity.Username
	if identity.Role == auth.RoleAdmin {
		owner = ""
	}
	return s.Repo.Stats(ctx, owner)
}

// ReportProgress applies one engine-reported transition under the job's
// lock. Illegal transitions are rejected and leave the stored state
// unchanged; re-reporting the current terminal state is a no-op.
func (s *Service) ReportProgress(ctx context.Context, id domain.ScanID, status domain.Status, risk domain.RiskLevel) error {
	unlock := s.locks.acquire(id)
	defer unlock()

	job, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	prev := job.Status
	if err := job.TransitionTo(status, risk); err != nil {
		return err
	}
	if job.Status == prev {
		// idempotent terminal re-report
		return nil
	}
	return s.Repo.UpdateStatus(ctx, id, job.Status, job.RiskLevel)
}

func (s *Service) record(ctx context.Context, event, username, actionType string) {
	if s.Audit == nil {
		return
	}
	e := &audit.Entry{
		Event:      event,
		Username:   username,
		ActionType: actionType,
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.Audit.Save(ctx, e); err != nil {
		log.Printf("audit log write failed: %v", err)
	}
}
