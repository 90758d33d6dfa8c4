package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"photobooth/internal/compose"
	"photobooth/internal/imaging"
	"photobooth/internal/layout"
	"photobooth/internal/model"
)

// IndexResult counts what Reindex did with each file.
type IndexResult struct {
	Inserted int
	Existing int
	Skipped  map[string]error
}

// Reindex records strips that sit in the export directory without a
// database row, for example after restoring a backup without the database.
// Files that are not valid strips are skipped and reported.
func (s *StripStore) Reindex() (*IndexResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.exportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read export directory: %w", err)
	}

	result := &IndexResult{Skipped: make(map[string]error)}
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		strip, err := readStrip(s.exportDir, file)
		if err != nil {
			s.logger.Warning("Skipping %s: %v", file.Name(), err)
			result.Skipped[file.Name()] = err
			continue
		}

		exists, err := s.repo.Exists(strip.Filename)
		if err != nil {
			return result, err
		}
		if exists {
			result.Existing++
			continue
		}

		if _, err := s.repo.Insert(strip); err != nil {
			s.logger.Error("Failed to insert %s: %v", file.Name(), err)
			result.Skipped[file.Name()] = err
			continue
		}
		result.Inserted++
	}

	s.logger.Info("Indexed %d new strips from %s (%d already present, %d skipped)",
		result.Inserted, s.exportDir, result.Existing, len(result.Skipped))
	return result, nil
}

// readStrip builds a record from the file name and the image itself.
func readStrip(dir string, file os.DirEntry) (*model.Strip, error) {
	_, layoutID, at, err := compose.ParseFilename(file.Name())
	if err != nil {
		return nil, err
	}
	spec, err := layout.Lookup(layoutID)
	if err != nil {
		return nil, err
	}

	info, err := file.Info()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, file.Name())
	width, height, err := imaging.Dimensions(path)
	if err != nil {
		return nil, err
	}

	return &model.Strip{
		Filename:  file.Name(),
		Layout:    spec.ID,
		Photos:    spec.Photos,
		Width:     width,
		Height:    height,
		FilePath:  path,
		FileSize:  info.Size(),
		CreatedAt: at,
	}, nil
}
