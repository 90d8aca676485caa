package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "go-text-extractor/internal/errors"
	"go-text-extractor/pkg/models"
)

// Stager holds uploaded images on local disk while they are being recognized
type Stager interface {
	// Stage writes at most maxBytes from r into a new file derived from
	// originalName. Nothing is left on disk when it returns an error.
	Stage(originalName string, r io.Reader, maxBytes int64) (*models.UploadedFile, error)

	// Release removes a staged file. Releasing a file that is already gone is not an error.
	Release(file *models.UploadedFile) error
}

// LocalStaging implements Stager on a single local directory
type LocalStaging struct {
	dir string
	now func() time.Time
}

// NewLocalStaging ensures dir exists and returns a stager rooted there
func NewLocalStaging(dir string) (*LocalStaging, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return &LocalStaging{dir: dir, now: time.Now}, nil
}

// Dir returns the staging directory
func (s *LocalStaging) Dir() string {
	return s.dir
}

func (s *LocalStaging) Stage(originalName string, r io.Reader, maxBytes int64) (*models.UploadedFile, error) {
	createdAt := s.now()
	f, path, err := s.create(createdAt, originalName)
	if err != nil {
		return nil, err
	}

	// one extra byte tells "exactly maxBytes" apart from "more than maxBytes"
	n, copyErr := io.Copy(f, io.LimitReader(r, maxBytes+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		os.Remove(path)
		return nil, fmt.Errorf("writing staged file: %w", copyErr)
	case n > maxBytes:
		os.Remove(path)
		return nil, apperrors.ErrFileTooLarge
	case closeErr != nil:
		os.Remove(path)
		return nil, fmt.Errorf("closing staged file: %w", closeErr)
	}

	return &models.UploadedFile{
		OriginalName: originalName,
		StoredPath:   path,
		SizeBytes:    n,
		CreatedAt:    createdAt,
	}, nil
}

func (s *LocalStaging) Release(file *models.UploadedFile) error {
	if file == nil || file.StoredPath == "" {
		return nil
	}
	if err := os.Remove(file.StoredPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing staged file: %w", err)
	}
	return nil
}

// create opens a new file named <unix millis>-<original name>. Two uploads of
// the same name in the same millisecond get a random infix instead of sharing
// a file.
func (s *LocalStaging) create(at time.Time, originalName string) (*os.File, string, error) {
	base := sanitizeName(originalName)
	name := fmt.Sprintf("%d-%s", at.UnixMilli(), base)

	for attempt := 0; attempt < 3; attempt++ {
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("creating staged file: %w", err)
		}
		name = fmt.Sprintf("%d-%s-%s", at.UnixMilli(), uuid.NewString()[:8], base)
	}
	return nil, "", fmt.Errorf("creating staged file: no free name for %q", base)
}

// sanitizeName keeps only the final path element of a client supplied name
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "upload"
	}
	return name
}
