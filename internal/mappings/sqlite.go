package mappings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"LEX-PDFMAP/internal/mappings/migrations"
	"LEX-PDFMAP/internal/models"
)

const sqliteFile = "mappings.db"

// SQLiteStore is the local workspace store used by the pdfmap CLI. It also
// keeps a small registry of template files so that mappings can be listed by
// template without a server.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the workspace database inside dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if dataDir == "" {
		dataDir = ".pdfmap"
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, sqliteFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
	}
	return nil
}

const mappingColumns = `id, template_id, field_key, page_number, x_coordinate, y_coordinate,
	width, height, field_type, font_size, trigger_value, request_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (models.FieldMapping, error) {
	var m models.FieldMapping
	var width, height, fontSize sql.NullFloat64
	var trigger sql.NullString
	var fieldType string
	if err := row.Scan(&m.ID, &m.TemplateID, &m.FieldKey, &m.PageNumber, &m.XCoordinate, &m.YCoordinate,
		&width, &height, &fieldType, &fontSize, &trigger, &m.RequestID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return m, err
	}
	m.FieldType = models.FieldType(fieldType)
	if width.Valid {
		m.Width = models.Float(width.Float64)
	}
	if height.Valid {
		m.Height = models.Float(height.Float64)
	}
	if fontSize.Valid {
		m.FontSize = models.Float(fontSize.Float64)
	}
	if trigger.Valid {
		m.TriggerValue = models.String(trigger.String)
	}
	return m, nil
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// createIn inserts m unless its id or request id is already stored.
func (s *SQLiteStore) createIn(ctx context.Context, q execer, m models.FieldMapping, now time.Time) (string, error) {
	var existing string
	err := q.QueryRowContext(ctx, `
		SELECT id FROM field_mappings
		WHERE id = ? OR (request_id != '' AND request_id = ?)
		LIMIT 1
	`, m.ID, m.RequestID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to check existing mapping: %w", err)
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO field_mappings (`+mappingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.TemplateID, m.FieldKey, m.PageNumber, m.XCoordinate, m.YCoordinate,
		nullable(m.Width), nullable(m.Height), string(m.FieldType), nullable(m.FontSize),
		nullString(m.TriggerValue), m.RequestID, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert mapping: %w", err)
	}
	return m.ID, nil
}

func (s *SQLiteStore) Create(ctx context.Context, templateID string, m models.FieldMapping) (string, error) {
	m = normalize(templateID, m)
	if err := Validate(m); err != nil {
		return "", err
	}
	return s.createIn(ctx, s.db, m, s.now().UTC())
}

func (s *SQLiteStore) CreateBatch(ctx context.Context, templateID string, ms []models.FieldMapping) ([]string, error) {
	prepared := make([]models.FieldMapping, len(ms))
	for i, m := range ms {
		m = normalize(templateID, m)
		if err := Validate(m); err != nil {
			return nil, err
		}
		prepared[i] = m
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	ids := make([]string, len(prepared))
	for i, m := range prepared {
		id, err := s.createIn(ctx, tx, m, now)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mappings: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) List(ctx context.Context, templateID string) ([]models.FieldMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mappingColumns+`
		FROM field_mappings
		WHERE template_id = ?
		ORDER BY page_number, created_at, rowid
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	out := make([]models.FieldMapping, 0)
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.FieldMapping, error) {
	m, err := scanMapping(s.db.QueryRowContext(ctx,
		`SELECT `+mappingColumns+` FROM field_mappings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, req UpdateRequest) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := Validate(req.Apply(*current)); err != nil {
		return err
	}

	cols := req.columns(s.now().UTC())
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		sets[i] = name + " = ?"
		args = append(args, cols[name])
	}
	args = append(args, id)

	_, err = s.db.ExecContext(ctx,
		"UPDATE field_mappings SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM field_mappings WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteByTemplate(ctx context.Context, templateID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM field_mappings WHERE template_id = ?", templateID); err != nil {
		return fmt.Errorf("failed to delete mappings: %w", err)
	}
	return nil
}

// WorkspaceTemplate is a template file registered in the CLI workspace.
type WorkspaceTemplate struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path"`
	PageCount  int       `json:"page_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaveTemplate registers a template file, replacing an entry with the same id.
func (s *SQLiteStore) SaveTemplate(ctx context.Context, t WorkspaceTemplate) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, source_path, page_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source_path = excluded.source_path,
			page_count = excluded.page_count
	`, t.ID, t.Name, t.SourcePath, t.PageCount, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Template(ctx context.Context, id string) (*WorkspaceTemplate, error) {
	var t WorkspaceTemplate
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, source_path, page_count, created_at FROM templates WHERE id = ?", id).
		Scan(&t.ID, &t.Name, &t.SourcePath, &t.PageCount, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

func (s *SQLiteStore) Templates(ctx context.Context) ([]WorkspaceTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, source_path, page_count, created_at FROM templates ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []WorkspaceTemplate
	for rows.Next() {
		var t WorkspaceTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.SourcePath, &t.PageCount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTemplate removes a template entry and its mappings.
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM field_mappings WHERE template_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete mappings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return tx.Commit()
}
