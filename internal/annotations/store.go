package annotations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cliplab/internal/config"
)

// Store manages the annotation catalog backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "annotations.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the catalog database location.
func (s *Store) Path() string {
	return s.path
}

const annotationColumns = `id, label, pos_tag, side_view, start_seconds, end_seconds,
    crop_x, crop_y, crop_width, crop_height, output_name, created_at`

// Add inserts an annotation, assigning a UUID when the ID is blank and a
// creation timestamp when unset. The stored annotation is returned.
func (s *Store) Add(ctx context.Context, ann Annotation) (Annotation, error) {
	if err := ann.Validate(); err != nil {
		return Annotation{}, fmt.Errorf("annotation rejected: %w", err)
	}
	if strings.TrimSpace(ann.ID) == "" {
		ann.ID = uuid.NewString()
	}
	if ann.CreatedAt.IsZero() {
		ann.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO annotations (`+annotationColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ann.ID,
		ann.Label,
		ann.POSTag,
		boolToInt(ann.SideView),
		ann.Time.Start,
		ann.Time.End,
		ann.Crop.X,
		ann.Crop.Y,
		ann.Crop.Width,
		ann.Crop.Height,
		ann.OutputName,
		ann.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Annotation{}, fmt.Errorf("insert annotation: %w", err)
	}
	return ann, nil
}

// AddAll inserts annotations in one transaction, typically after a CSV import.
func (s *Store) AddAll(ctx context.Context, anns []Annotation) ([]Annotation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := make([]Annotation, 0, len(anns))
	for _, ann := range anns {
		if err := ann.Validate(); err != nil {
			return nil, fmt.Errorf("annotation %q rejected: %w", ann.DisplayName(), err)
		}
		if strings.TrimSpace(ann.ID) == "" {
			ann.ID = uuid.NewString()
		}
		if ann.CreatedAt.IsZero() {
			ann.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO annotations (`+annotationColumns+`)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ann.ID,
			ann.Label,
			ann.POSTag,
			boolToInt(ann.SideView),
			ann.Time.Start,
			ann.Time.End,
			ann.Crop.X,
			ann.Crop.Y,
			ann.Crop.Width,
			ann.Crop.Height,
			ann.OutputName,
			ann.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return nil, fmt.Errorf("insert annotation %q: %w", ann.DisplayName(), err)
		}
		stored = append(stored, ann)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return stored, nil
}

// GetByID fetches one annotation, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Annotation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE id = ?`, id)
	ann, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get annotation: %w", err)
	}
	return &ann, nil
}

// List returns all annotations ordered by creation time.
func (s *Store) List(ctx context.Context) ([]Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var result []Annotation
	for rows.Next() {
		ann, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ann)
	}
	return result, rows.Err()
}

// Remove deletes one annotation and reports whether it existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove annotation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes every annotation and returns the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotations`)
	if err != nil {
		return 0, fmt.Errorf("clear annotations: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row rowScanner) (Annotation, error) {
	var (
		ann       Annotation
		sideView  int
		createdAt string
	)
	err := row.Scan(
		&ann.ID,
		&ann.Label,
		&ann.POSTag,
		&sideView,
		&ann.Time.Start,
		&ann.Time.End,
		&ann.Crop.X,
		&ann.Crop.Y,
		&ann.Crop.Width,
		&ann.Crop.Height,
		&ann.OutputName,
		&createdAt,
	)
	if err != nil {
		return Annotation{}, err
	}
	ann.SideView = sideView != 0
	ann.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Annotation{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return ann, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
