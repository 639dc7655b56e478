// Package logsink captures a per-center run's log output to a file and
// deposits it on the platform as an artifact when the run completes,
// grounded on the teacher's internal/logging for the structured-logging
// half and on a plain os.File sink for the capture mechanism itself (the
// original attaches a Python logging.FileHandler for the run's duration and
// syn.store()s it afterward; Go's slog.Handler plays the same role here).
package logsink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
)

// Sink captures one center's run log to a temp file and can upload it
// through an ObjectGateway once the run finishes.
type Sink struct {
	center string
	file   *os.File
	logger *slog.Logger
}

// New opens a fresh log file under dir for center and returns a Sink whose
// Logger writes both to that file and wraps the fields the rest of the
// pipeline expects (run_id, center).
func New(dir, center, runID string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.log", center))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler).With("center", center, "run_id", runID)

	return &Sink{center: center, file: f, logger: logger}, nil
}

// Logger returns the center-scoped logger writing into this sink's file.
func (s *Sink) Logger() *slog.Logger {
	return s.logger
}

// Path is the local path of the captured log file.
func (s *Sink) Path() string {
	return s.file.Name()
}

// Close flushes and closes the underlying file. Callers must call Upload (or
// discard the sink) before Close if the artifact is still needed.
func (s *Sink) Close() error {
	return s.file.Close()
}

// Upload closes the sink and deposits the captured log under logFolderID via
// gateway, returning the new artifact's id.
func (s *Sink) Upload(ctx context.Context, gateway platform.ObjectGateway, logFolderID string) (string, error) {
	if err := s.file.Sync(); err != nil {
		return "", fmt.Errorf("sync log file: %w", err)
	}
	if err := s.Close(); err != nil {
		return "", fmt.Errorf("close log file: %w", err)
	}
	id, err := gateway.UploadArtifact(ctx, logFolderID, s.Path())
	if err != nil {
		return "", err
	}
	return id, nil
}
