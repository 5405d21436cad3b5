// Package depcheck runs OWASP dependency-check over uploaded source
// archives and reports progress back into the job state machine.
package depcheck

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
)

// Runner executes one scan per Submit call: fetch the archive, extract
// it, run the dependency-check command, parse its JSON report, store the
// report artifact, and drive the pending → processing → terminal
// transitions through the sink.
type Runner struct {
	store domain.ArtifactStore
	sink  domain.ProgressSink

	command string
	dataDir string
	workDir string
	pciArgs []string
	timeout time.Duration
}

func NewRunner(store domain.ArtifactStore, command, dataDir, workDir string, pciArgs []string, timeout time.Duration) *Runner {
	if workDir == "" {
		workDir = filepath.Join(".", "temp")
	}
	return &Runner{
		store:   store,
		command: command,
		dataDir: dataDir,
		workDir: workDir,
		pciArgs: pciArgs,
		timeout: timeout,
	}
}

// SetSink binds the progress sink. The sink is the scan service itself,
// which is constructed after the runner; main wires the two together.
func (r *Runner) SetSink(sink domain.ProgressSink) { r.sink = sink }

// Submit runs the scan synchronously; the caller decides whether to
// detach it onto a goroutine. Once the processing transition has been
// reported the runner also reports the terminal state itself and
// returns nil; an error return means the scan never started.
func (r *Runner) Submit(ctx context.Context, req domain.ScanRequest) error {
	if err := r.sink.ReportProgress(ctx, req.ScanID, domain.StatusProcessing, domain.RiskNone); err != nil {
		return fmt.Errorf("marking scan %s processing: %w", req.ScanID, err)
	}

	outcome, err := r.run(ctx, req)
	if err != nil {
		log.Printf("scan %s failed: %v", req.ScanID, err)
		if perr := r.sink.ReportProgress(ctx, req.ScanID, domain.StatusFailed, domain.RiskNone); perr != nil {
			log.Printf("marking scan %s failed: %v", req.ScanID, perr)
		}
		return nil
	}

	if err := r.sink.ReportProgress(ctx, req.ScanID, domain.StatusCompleted, outcome.Risk); err != nil {
		log.Printf("marking scan %s completed: %v", req.ScanID, err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, req domain.ScanRequest) (domain.ScanOutcome, error) {
	start := time.Now()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return domain.ScanOutcome{}, err
	}
	tmpDir, err := os.MkdirTemp(r.workDir, string(req.ScanID)+"-")
	if err != nil {
		return domain.ScanOutcome{}, err
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, "source.zip")
	if err := r.fetchArchive(ctx, req.ScanID, archivePath); err != nil {
		return domain.ScanOutcome{}, err
	}

	srcDir := filepath.Join(tmpDir, "src")
	if err := extractZip(archivePath, srcDir); err != nil {
		return domain.ScanOutcome{}, fmt.Errorf("extracting archive: %w", err)
	}

	outDir := filepath.Join(tmpDir, "depcheck-report")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return domain.ScanOutcome{}, err
	}

	args := []string{
		"--project", string(req.ScanID),
		"--scan", srcDir,
		"--format", "JSON",
		"--out", outDir,
		"--disableAssembly",
		"--noupdate",
	}
	if r.dataDir != "" {
		args = append(args, "--data", r.dataDir)
	}
	if req.PCIDSS {
		args = append(args, r.pciArgs...)
	}

	cmd := exec.CommandContext(ctx, r.command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return domain.ScanOutcome{}, fmt.Errorf("running %s: %v, output=%s", r.command, err, truncate(out, 2048))
	}

	reportPath := filepath.Join(outDir, "dependency-check-report.json")
	findings, counts, err := ParseReport(reportPath)
	if err != nil {
		return domain.ScanOutcome{}, fmt.Errorf("parsing report: %w", err)
	}

	if err := r.storeReport(ctx, req, findings, counts); err != nil {
		return domain.ScanOutcome{}, err
	}

	return domain.ScanOutcome{
		Risk:       counts.Risk(),
		Findings:   counts,
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

func (r *Runner) fetchArchive(ctx context.Context, id domain.ScanID, dst string) error {
	rc, err := r.store.GetSource(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching source %s: %w", id, err)
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, rc)
	return err
}

// storeReport serializes the findings into the immutable report
// artifact for the job.
func (r *Runner) storeReport(ctx context.Context, req domain.ScanRequest, findings []Finding, counts domain.SeverityCounts) error {
	doc := struct {
		ScanID   domain.ScanID         `json:"scan_id"`
		Filename string                `json:"filename"`
		PCIDSS   bool                  `json:"pci_dss"`
		Counts   domain.SeverityCounts `json:"counts"`
		Findings []Finding             `json:"findings"`
	}{req.ScanID, req.Filename, req.PCIDSS, counts, findings}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return r.store.PutReport(ctx, req.ScanID, bytes.NewReader(data), int64(len(data)), "application/json")
}

// extractZip unpacks the archive, rejecting entries that would escape
// the destination directory.
func extractZip(archivePath, dstDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(dstDir, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dstDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := copyEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func copyEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = io.Copy(w, rc)
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ domain.Engine = (*Runner)(nil)
