package repository

import (
	"photobooth/internal/dto"
	"photobooth/internal/model"
)

// StripRepository defines the interface for exported strip records.
type StripRepository interface {
	// Create operations
	Insert(strip *model.Strip) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Strip, error)
	GetByFilename(filename string) (*model.Strip, error)
	GetAll(filter *dto.StripFilters) ([]model.Strip, error)
	GetTotalCount(filter *dto.StripFilters) (int, error)
	GetStats() (*model.StripStats, error)
	GetDirectorySize() (int64, error)
	Exists(filename string) (bool, error)

	// Delete operations
	Delete(id int64) error
	DeleteAll() error
}
