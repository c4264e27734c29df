// Package sqlite provides a SQLite-backed canvas storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/grasshoppermcp/gateway/internal/platform/storage/sqlitemigrate"
	"github.com/grasshoppermcp/gateway/internal/services/canvas/storage"
	"github.com/grasshoppermcp/gateway/internal/services/canvas/storage/sqlite/migrations"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// Store persists canvas state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite canvas store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	memory := path == MemoryPath
	if !memory {
		path = filepath.Clean(path)
	}
	sqlDB, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// PutComponent inserts one component.
func (s *Store) PutComponent(ctx context.Context, component storage.Component) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id := strings.TrimSpace(component.ID)
	if id == "" {
		return fmt.Errorf("component id is required")
	}
	componentType := strings.TrimSpace(component.Type)
	if componentType == "" {
		return fmt.Errorf("component type is required")
	}
	createdAt := component.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := component.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO components (
		   id, type, name, nickname, category, subcategory,
		   x, y, value, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		componentType,
		component.Name,
		component.Nickname,
		component.Category,
		component.Subcategory,
		component.X,
		component.Y,
		component.Value,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put component: %w", err)
	}
	return nil
}

const componentColumns = `id, type, name, nickname, category, subcategory, x, y, value, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComponent(row rowScanner) (storage.Component, error) {
	var component storage.Component
	var createdAt, updatedAt int64
	if err := row.Scan(
		&component.ID,
		&component.Type,
		&component.Name,
		&component.Nickname,
		&component.Category,
		&component.Subcategory,
		&component.X,
		&component.Y,
		&component.Value,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.Component{}, err
	}
	component.CreatedAt = fromMillis(createdAt)
	component.UpdatedAt = fromMillis(updatedAt)
	return component, nil
}

// GetComponent returns one component by id.
func (s *Store) GetComponent(ctx context.Context, id string) (storage.Component, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Component{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Component{}, fmt.Errorf("component id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+componentColumns+` FROM components WHERE id = ?`, id)
	component, err := scanComponent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Component{}, storage.ErrNotFound
		}
		return storage.Component{}, fmt.Errorf("get component: %w", err)
	}
	return component, nil
}

// ListComponents returns every component in placement order.
func (s *Store) ListComponents(ctx context.Context) ([]storage.Component, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+componentColumns+` FROM components ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	components := make([]storage.Component, 0)
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		components = append(components, component)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return components, nil
}

// SetComponentValue replaces the persistent value of one component.
func (s *Store) SetComponentValue(ctx context.Context, id string, value string, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("component id is required")
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE components SET value = ?, updated_at = ? WHERE id = ?`,
		value, toMillis(updatedAt), id,
	)
	if err != nil {
		return fmt.Errorf("set component value: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set component value rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutWire inserts one wire. Both endpoints must exist.
func (s *Store) PutWire(ctx context.Context, wire storage.Wire) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(wire.SourceID) == "" || strings.TrimSpace(wire.TargetID) == "" {
		return fmt.Errorf("wire endpoints are required")
	}
	createdAt := wire.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO wires (source_id, source_param, target_id, target_param, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		wire.SourceID,
		wire.SourceParam,
		wire.TargetID,
		wire.TargetParam,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("put wire: %w", err)
	}
	return nil
}

// ListWires returns every wire in creation order.
func (s *Store) ListWires(ctx context.Context) ([]storage.Wire, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT source_id, source_param, target_id, target_param, created_at
		   FROM wires
		  ORDER BY created_at ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list wires: %w", err)
	}
	defer rows.Close()

	wires := make([]storage.Wire, 0)
	for rows.Next() {
		var wire storage.Wire
		var createdAt int64
		if err := rows.Scan(&wire.SourceID, &wire.SourceParam, &wire.TargetID, &wire.TargetParam, &createdAt); err != nil {
			return nil, fmt.Errorf("scan wire: %w", err)
		}
		wire.CreatedAt = fromMillis(createdAt)
		wires = append(wires, wire)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wires: %w", err)
	}
	return wires, nil
}

// ClearDocument removes every wire and component in one transaction.
func (s *Store) ClearDocument(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clear document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM wires`); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("clear wires: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM components`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("clear components: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("clear components rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clear document: %w", err)
	}
	return int(removed), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
