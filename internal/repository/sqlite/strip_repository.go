package sqlite

import (
	"database/sql"
	"fmt"
	"photobooth/internal/dto"
	"photobooth/internal/model"
)

const stripColumns = `id, filename, layout, photos, template, width, height, filepath, filesize, created_at`

// StripRepository implements repository.StripRepository for SQLite.
type StripRepository struct {
	db *DB
}

// NewStripRepository creates a new SQLite strip repository.
func NewStripRepository(db *DB) *StripRepository {
	return &StripRepository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStrip(row scanner) (*model.Strip, error) {
	var s model.Strip
	err := row.Scan(&s.ID, &s.Filename, &s.Layout, &s.Photos, &s.Template,
		&s.Width, &s.Height, &s.FilePath, &s.FileSize, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Insert adds a new strip record to the database.
func (r *StripRepository) Insert(strip *model.Strip) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO strips (filename, layout, photos, template, width, height, filepath, filesize, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, strip.Filename, strip.Layout, strip.Photos, strip.Template, strip.Width, strip.Height,
		strip.FilePath, strip.FileSize, strip.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert strip: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves a strip by its ID. A missing strip returns nil, nil.
func (r *StripRepository) GetByID(id int64) (*model.Strip, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanStrip(r.db.Conn().QueryRow(`SELECT `+stripColumns+` FROM strips WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strip: %w", err)
	}
	return s, nil
}

// GetByFilename retrieves a strip by its filename.
func (r *StripRepository) GetByFilename(filename string) (*model.Strip, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanStrip(r.db.Conn().QueryRow(`SELECT `+stripColumns+` FROM strips WHERE filename = ?`, filename))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strip: %w", err)
	}
	return s, nil
}

// where builds the shared WHERE clause for list and count queries.
func where(filter *dto.StripFilters) (string, []interface{}) {
	clause := ` WHERE 1=1`
	args := []interface{}{}
	if filter == nil {
		return clause, args
	}

	if filter.Layout != "" {
		clause += " AND layout = ?"
		args = append(args, filter.Layout)
	}

	if filter.Template != "" {
		clause += " AND template = ?"
		args = append(args, filter.Template)
	}

	if !filter.DateAfter.IsZero() {
		clause += " AND DATE(created_at) >= DATE(?)"
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}

	if !filter.DateBefore.IsZero() {
		clause += " AND DATE(created_at) <= DATE(?)"
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}

	return clause, args
}

// GetAll retrieves strips based on filter criteria, newest first.
func (r *StripRepository) GetAll(filter *dto.StripFilters) ([]model.Strip, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := where(filter)
	query := `SELECT ` + stripColumns + ` FROM strips` + clause + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query strips: %w", err)
	}
	defer rows.Close()

	var strips []model.Strip
	for rows.Next() {
		s, err := scanStrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strip: %w", err)
		}
		strips = append(strips, *s)
	}

	return strips, rows.Err()
}

// GetTotalCount returns the number of strips matching the filter, ignoring
// pagination.
func (r *StripRepository) GetTotalCount(filter *dto.StripFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := where(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM strips`+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count strips: %w", err)
	}

	return count, nil
}

// Exists checks if a strip with the given filename exists.
func (r *StripRepository) Exists(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM strips WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check strip existence: %w", err)
	}
	return count > 0, nil
}

// GetDirectorySize returns the total size in bytes of all recorded strips.
func (r *StripRepository) GetDirectorySize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM strips`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum strip sizes: %w", err)
	}
	return size, nil
}

// GetStats returns statistics about stored strips.
func (r *StripRepository) GetStats() (*model.StripStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.StripStats{
		PerLayout:   make(map[string]int),
		PerTemplate: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM strips`).Scan(&stats.TotalStrips); err != nil {
		return nil, fmt.Errorf("failed to count strips: %w", err)
	}

	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM strips`).Scan(&stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to sum strip sizes: %w", err)
	}

	if err := r.groupCount(`SELECT layout, COUNT(*) FROM strips GROUP BY layout`, stats.PerLayout); err != nil {
		return nil, err
	}

	// Colour backgrounds are stored with an empty template and left out.
	if err := r.groupCount(`SELECT template, COUNT(*) FROM strips WHERE template != '' GROUP BY template`, stats.PerTemplate); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *StripRepository) groupCount(query string, into map[string]int) error {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return fmt.Errorf("failed to group strips: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan strip group: %w", err)
		}
		into[key] = count
	}
	return rows.Err()
}

// Delete removes a strip record by its ID.
func (r *StripRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM strips WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete strip: %w", err)
	}
	return nil
}

// DeleteAll removes every strip record.
func (r *StripRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM strips`); err != nil {
		return fmt.Errorf("failed to delete strips: %w", err)
	}
	return nil
}
