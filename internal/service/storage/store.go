package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"photobooth/internal/logger"
	"photobooth/internal/model"
	"photobooth/internal/repository"
	"sync"

	"github.com/shirou/gopsutil/v3/disk"
)

var (
	ErrStripNotFound = errors.New("strip not found")
	ErrStripExists   = errors.New("strip already exists")
)

// StripStore writes exported strips to disk and records them in the
// repository. A strip is either fully stored and recorded or not at all.
type StripStore struct {
	exportDir string
	repo      repository.StripRepository
	logger    *logger.Logger
	mu        sync.Mutex
}

// NewStripStore creates a store writing into exportDir.
func NewStripStore(exportDir string, repo repository.StripRepository, logger *logger.Logger) *StripStore {
	return &StripStore{
		exportDir: exportDir,
		repo:      repo,
		logger:    logger,
	}
}

// Dir returns the export directory.
func (s *StripStore) Dir() string {
	return s.exportDir
}

// DiskUsage reports the space left on the volume holding the export
// directory.
func (s *StripStore) DiskUsage() (*model.DiskUsage, error) {
	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	usage, err := disk.Usage(s.exportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage: %w", err)
	}
	return &model.DiskUsage{
		TotalBytes:  usage.Total,
		FreeBytes:   usage.Free,
		UsedPercent: usage.UsedPercent,
	}, nil
}

// Save writes data as strip.Filename, then inserts the record. FilePath,
// FileSize and ID are filled in on success. An existing strip is never
// overwritten.
func (s *StripStore) Save(strip *model.Strip, data []byte) error {
	if strip.Filename == "" || filepath.Base(strip.Filename) != strip.Filename {
		return fmt.Errorf("invalid strip filename %q", strip.Filename)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	exists, err := s.repo.Exists(strip.Filename)
	if err != nil {
		return err
	}
	fullpath := filepath.Join(s.exportDir, strip.Filename)
	if _, statErr := os.Stat(fullpath); exists || statErr == nil {
		return fmt.Errorf("%w: %s", ErrStripExists, strip.Filename)
	}

	if err := writeFileAtomic(fullpath, data); err != nil {
		return err
	}

	strip.FilePath = fullpath
	strip.FileSize = int64(len(data))

	id, err := s.repo.Insert(strip)
	if err != nil {
		if rmErr := os.Remove(fullpath); rmErr != nil {
			s.logger.Error("Error removing orphaned strip %s: %v", fullpath, rmErr)
		}
		return err
	}
	strip.ID = id

	s.logger.Info("Saved strip %s (%d bytes)", strip.Filename, strip.FileSize)
	return nil
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".strip-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write strip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close strip: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod strip: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename strip: %w", err)
	}
	return nil
}

// Delete removes a strip file and its record.
func (s *StripStore) Delete(id int64) (*model.Strip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	strip, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if strip == nil {
		return nil, ErrStripNotFound
	}

	if err := os.Remove(s.path(strip)); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file %s: %v", strip.FilePath, err)
	}

	if err := s.repo.Delete(id); err != nil {
		return nil, err
	}

	s.logger.Info("Deleted strip: %s", strip.Filename)
	return strip, nil
}

// Clear deletes every .jpg in the export directory and empties the
// repository.
func (s *StripStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.exportDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read export directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}
		if err := os.Remove(filepath.Join(s.exportDir, file.Name())); err != nil {
			s.logger.Error("Error deleting file %s: %v", file.Name(), err)
		}
	}

	if err := s.repo.DeleteAll(); err != nil {
		return err
	}

	s.logger.Info("All strips cleared from directory: %s", s.exportDir)
	return nil
}

// Path returns where a strip's file lives. Records always resolve inside
// the export directory.
func (s *StripStore) Path(strip *model.Strip) string {
	return s.path(strip)
}

func (s *StripStore) path(strip *model.Strip) string {
	return filepath.Join(s.exportDir, filepath.Base(strip.Filename))
}
