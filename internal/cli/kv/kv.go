// Package kv описывает версионируемое key-value хранилище, на котором
// построен локальный кэш: база открывается с номером версии и функцией
// миграции, внутри базы живут именованные хранилища объектов.
package kv

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("kv: key not found")
	ErrNoSuchStore = errors.New("kv: object store does not exist")
	// ErrVersion база на диске новее, чем запрошенная версия.
	ErrVersion = errors.New("kv: database version is newer than requested")
)

// ObjectStore хранилище объектов с ключами-строками.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove удаляет ключ; отсутствие ключа ошибкой не считается.
	Remove(ctx context.Context, key string) error
	// List возвращает отсортированные ключи с заданным префиксом.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Migrator доступен функции миграции во время обновления версии.
type Migrator interface {
	CreateStore(name string) error
	DeleteStore(name string) error
}

// MigrateFunc вызывается при открытии базы, версия которой меньше
// запрошенной. Для новой базы oldVersion равна 0.
type MigrateFunc func(ctx context.Context, m Migrator, oldVersion, newVersion int) error

// Database открытая база.
type Database interface {
	Name() string
	Version() int
	Store(name string) (ObjectStore, error)
}

// Backend открывает базы.
type Backend interface {
	Open(ctx context.Context, name string, version int, migrate MigrateFunc) (Database, error)
}

// NeedsUpgrade проверяет запрошенную версию против текущей и сообщает,
// нужна ли миграция.
func NeedsUpgrade(name string, current, version int) (bool, error) {
	if version < 1 {
		return false, fmt.Errorf("kv: open %s: version must be positive, got %d", name, version)
	}
	if current > version {
		return false, fmt.Errorf("open %s (have %d, want %d): %w", name, current, version, ErrVersion)
	}
	return current < version, nil
}

// RunMigration вызывает migrate, если он задан.
func RunMigration(ctx context.Context, m Migrator, migrate MigrateFunc, current, version int) error {
	if migrate == nil {
		return nil
	}
	if err := migrate(ctx, m, current, version); err != nil {
		return fmt.Errorf("kv: migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

// ValidateStoreName проверяет имя хранилища объектов.
func ValidateStoreName(name string) error {
	if name == "" {
		return errors.New("kv: empty store name")
	}
	return nil
}
