package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ScratchService hands out per-call scratch directories for work that has
// to touch disk (OCR page renders). Directories are removed on every exit
// path of the callback, including panics.
type ScratchService interface {
	EnsureBaseDir() error
	WithDir(fn func(dir string) error) error
}

type scratchService struct {
	basePath string
}

func NewScratchService(basePath string) ScratchService {
	return &scratchService{basePath: basePath}
}

func (s *scratchService) EnsureBaseDir() error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}

func (s *scratchService) WithDir(fn func(dir string) error) error {
	dir := filepath.Join(s.basePath, fmt.Sprintf("ocr_%s", uuid.New().String()))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	return fn(dir)
}
