// Package sqlite реализует kv.Backend поверх файла SQLite (modernc.org/sqlite).
// Все базы живут в одном файле и различаются столбцом db.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"AgileKeeper/internal/cli/kv"
)

// Backend хранилище в файле SQLite.
type Backend struct {
	db   *sql.DB
	path string
	log  *zap.SugaredLogger
}

var _ kv.Backend = (*Backend)(nil)

// Open открывает (и создаёт при необходимости) файл БД и применяет миграции схемы.
func Open(ctx context.Context, path string, log *zap.SugaredLogger) (*Backend, error) {
	if path == "" {
		return nil, errors.New("empty sqlite cache path")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite не любит параллельных писателей
	db.SetMaxOpenConns(1)
	b := &Backend{db: db, path: path, log: log}
	if err := b.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return b, nil
}

// Close закрывает соединение с БД.
func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Path путь к файлу БД.
func (b *Backend) Path() string { return b.path }

func (b *Backend) Open(ctx context.Context, name string, version int, migrate kv.MigrateFunc) (kv.Database, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		// после Commit откат ничего не делает
		_ = tx.Rollback()
	}()

	current := 0
	err = tx.QueryRowContext(ctx, `SELECT version FROM kv_databases WHERE name = ?`, name).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	upgrade, err := kv.NeedsUpgrade(name, current, version)
	if err != nil {
		return nil, err
	}
	if upgrade {
		m := &migrator{ctx: ctx, tx: tx, db: name}
		if err := kv.RunMigration(ctx, m, migrate, current, version); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv_databases(name, version) VALUES(?, ?)
			ON CONFLICT(name) DO UPDATE SET version = excluded.version`, name, version); err != nil {
			return nil, err
		}
		current = version
	}

	rows, err := tx.QueryContext(ctx, `SELECT name FROM kv_stores WHERE db = ?`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stores := make(map[string]bool)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		stores[s] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	if upgrade {
		b.log.Debugw("cache database migrated", "db", name, "version", version)
	}
	return &database{backend: b, name: name, version: current, stores: stores}, nil
}

type migrator struct {
	ctx context.Context
	tx  *sql.Tx
	db  string
}

func (m *migrator) CreateStore(name string) error {
	if err := kv.ValidateStoreName(name); err != nil {
		return err
	}
	_, err := m.tx.ExecContext(m.ctx, `INSERT INTO kv_stores(db, name) VALUES(?, ?) ON CONFLICT DO NOTHING`, m.db, name)
	return err
}

func (m *migrator) DeleteStore(name string) error {
	if _, err := m.tx.ExecContext(m.ctx, `DELETE FROM kv_objects WHERE db = ? AND store = ?`, m.db, name); err != nil {
		return err
	}
	_, err := m.tx.ExecContext(m.ctx, `DELETE FROM kv_stores WHERE db = ? AND name = ?`, m.db, name)
	return err
}

type database struct {
	backend *Backend
	name    string
	version int
	stores  map[string]bool
}

func (d *database) Name() string { return d.name }
func (d *database) Version() int { return d.version }

func (d *database) Store(name string) (kv.ObjectStore, error) {
	if !d.stores[name] {
		return nil, fmt.Errorf("%w: %s", kv.ErrNoSuchStore, name)
	}
	return &objectStore{conn: d.backend.db, db: d.name, store: name}, nil
}

type objectStore struct {
	conn  *sql.DB
	db    string
	store string
}

func (s *objectStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.conn.QueryRowContext(ctx, `SELECT obj_value FROM kv_objects WHERE db = ? AND store = ? AND obj_key = ?`,
		s.db, s.store, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", kv.ErrNotFound, s.store, key)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *objectStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.conn.ExecContext(ctx, `INSERT INTO kv_objects(db, store, obj_key, obj_value) VALUES(?, ?, ?, ?)
		ON CONFLICT(db, store, obj_key) DO UPDATE SET obj_value = excluded.obj_value`,
		s.db, s.store, key, value)
	return err
}

func (s *objectStore) Remove(ctx context.Context, key string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM kv_objects WHERE db = ? AND store = ? AND obj_key = ?`, s.db, s.store, key)
	return err
}

func (s *objectStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT obj_key FROM kv_objects
		WHERE db = ? AND store = ? AND obj_key >= ? ORDER BY obj_key`, s.db, s.store, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(k, prefix) {
			break
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
