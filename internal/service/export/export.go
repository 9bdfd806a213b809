package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"queryd/internal/domain"
	"queryd/internal/session"
)

// DefaultURLTTL is how long presigned download URLs stay valid.
const DefaultURLTTL = 15 * time.Minute

// Execer runs a statement on the data engine. Implemented by engine.Engine.
type Execer interface {
	Exec(ctx context.Context, sqlText string) error
}

// Result describes a finished export. Exactly one of URL (object store) or
// File (local spool, served by the API) is set.
type Result struct {
	Format    string     `json:"format"`
	URL       string     `json:"url,omitempty"`
	File      string     `json:"file,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Config holds export destinations and limits.
type Config struct {
	// SpoolDir receives local export files when no Destination is set.
	SpoolDir string
	// Destination is an optional object-store base URI (s3://, az://,
	// abfss://, gs://). Empty means local spool.
	Destination string
	// URLTTL is the validity window for presigned URLs.
	URLTTL time.Duration
}

// Service exports a session's current query results by re-running the
// source SQL wrapped in a COPY statement.
type Service struct {
	engine     Execer
	translator domain.QueryTranslator
	presigners PresignerDirectory
	cfg        Config
	logger     *slog.Logger
}

// NewService constructs an export service. presigners may be nil when only
// local spool exports are configured.
func NewService(eng Execer, tr domain.QueryTranslator, presigners PresignerDirectory, cfg Config, logger *slog.Logger) *Service {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultURLTTL
	}
	return &Service{
		engine:     eng,
		translator: tr,
		presigners: presigners,
		cfg:        cfg,
		logger:     logger.With("component", "export"),
	}
}

// Export re-runs the session's current query and writes the full result set
// to the configured destination in the requested format ("csv" or
// "parquet").
func (s *Service) Export(ctx context.Context, sess *session.Session, format string) (*Result, error) {
	copyOpts, err := copyOptions(format)
	if err != nil {
		return nil, err
	}

	def, ok := sess.CurrentQuery()
	if !ok {
		return nil, domain.ErrValidation("no query to export; run a query first")
	}
	sqlText, err := s.translator.Translate(def)
	if err != nil {
		return nil, fmt.Errorf("translate query: %w", err)
	}

	filename := fmt.Sprintf("export-%s.%s", domain.NewID(), format)

	if s.cfg.Destination != "" {
		return s.exportToObjectStore(ctx, sqlText, filename, format, copyOpts)
	}
	return s.exportToSpool(ctx, sqlText, filename, format, copyOpts)
}

func (s *Service) exportToObjectStore(ctx context.Context, sqlText, filename, format, copyOpts string) (*Result, error) {
	if s.presigners == nil {
		return nil, fmt.Errorf("destination %q configured without presigner credentials", s.cfg.Destination)
	}
	target := strings.TrimSuffix(s.cfg.Destination, "/") + "/" + filename

	presigner, err := s.presigners.ForPath(target)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Exec(ctx, copyStatement(sqlText, target, copyOpts)); err != nil {
		return nil, fmt.Errorf("copy results to %q: %w", target, err)
	}

	url, err := presigner.PresignGetObject(ctx, target, s.cfg.URLTTL)
	if err != nil {
		return nil, err
	}

	expires := time.Now().Add(s.cfg.URLTTL)
	s.logger.Info("results exported", "target", target, "format", format)
	return &Result{Format: format, URL: url, ExpiresAt: &expires}, nil
}

func (s *Service) exportToSpool(ctx context.Context, sqlText, filename, format, copyOpts string) (*Result, error) {
	if err := os.MkdirAll(s.cfg.SpoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir %q: %w", s.cfg.SpoolDir, err)
	}
	path := filepath.Join(s.cfg.SpoolDir, filename)

	if err := s.engine.Exec(ctx, copyStatement(sqlText, path, copyOpts)); err != nil {
		return nil, fmt.Errorf("copy results to %q: %w", path, err)
	}

	s.logger.Info("results exported", "file", filename, "format", format)
	return &Result{Format: format, File: filename}, nil
}

// SpoolPath resolves a file name from a Result back to its on-disk path,
// rejecting names that escape the spool directory.
func (s *Service) SpoolPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", domain.ErrValidation("invalid export file name %q", filename)
	}
	path := filepath.Join(s.cfg.SpoolDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", domain.ErrNotFound("export %q not found", filename)
	}
	return path, nil
}

func copyStatement(sqlText, target, copyOpts string) string {
	// Escape single quotes in the target path for the SQL string literal.
	escaped := strings.ReplaceAll(target, "'", "''")
	return fmt.Sprintf("COPY (%s) TO '%s' (%s)", sqlText, escaped, copyOpts)
}

func copyOptions(format string) (string, error) {
	switch format {
	case "csv":
		return "FORMAT csv, HEADER", nil
	case "parquet":
		return "FORMAT parquet", nil
	default:
		return "", domain.ErrValidation("unsupported export format %q; use csv or parquet", format)
	}
}
