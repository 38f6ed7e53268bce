// Package gormkv реализует kv.Backend через gorm. По DSN выбирается диалект:
// postgres:// и postgresql:// открывают PostgreSQL, всё остальное считается
// путём к файлу SQLite (драйвер modernc.org/sqlite).
package gormkv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"AgileKeeper/internal/cli/kv"
)

type kvDatabase struct {
	Name    string `gorm:"primaryKey"`
	Version int    `gorm:"not null"`
}

func (kvDatabase) TableName() string { return "kv_databases" }

type kvStore struct {
	DB   string `gorm:"primaryKey;column:db"`
	Name string `gorm:"primaryKey"`
}

func (kvStore) TableName() string { return "kv_stores" }

type kvObject struct {
	DB    string `gorm:"primaryKey;column:db"`
	Store string `gorm:"primaryKey"`
	Key   string `gorm:"primaryKey;column:obj_key"`
	Value []byte `gorm:"not null;column:obj_value"`
}

func (kvObject) TableName() string { return "kv_objects" }

// Backend хранилище поверх gorm.DB.
type Backend struct {
	db *gorm.DB
}

var _ kv.Backend = (*Backend)(nil)

// Dialector выбирает диалект gorm по DSN.
func Dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn)
	}
	return gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
}

// Open подключается к БД по DSN и создаёт таблицы.
func Open(ctx context.Context, dsn string) (*Backend, error) {
	if dsn == "" {
		return nil, errors.New("empty gorm cache DSN")
	}
	db, err := gorm.Open(Dialector(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if db.Dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(ctx, db)
}

// New использует готовое подключение gorm.
func New(ctx context.Context, db *gorm.DB) (*Backend, error) {
	if err := db.WithContext(ctx).AutoMigrate(&kvDatabase{}, &kvStore{}, &kvObject{}); err != nil {
		return nil, fmt.Errorf("migrate cache schema: %w", err)
	}
	return &Backend{db: db}, nil
}

// Close закрывает пул соединений.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Backend) Open(ctx context.Context, name string, version int, migrate kv.MigrateFunc) (kv.Database, error) {
	current := 0
	stores := make(map[string]bool)
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec kvDatabase
		err := tx.Where("name = ?", name).Take(&rec).Error
		switch {
		case err == nil:
			current = rec.Version
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		upgrade, err := kv.NeedsUpgrade(name, current, version)
		if err != nil {
			return err
		}
		if upgrade {
			if err := kv.RunMigration(ctx, &migrator{tx: tx, db: name}, migrate, current, version); err != nil {
				return err
			}
			rec = kvDatabase{Name: name, Version: version}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"version"}),
			}).Create(&rec).Error; err != nil {
				return err
			}
			current = version
		}
		var rows []kvStore
		if err := tx.Where("db = ?", name).Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			stores[r.Name] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &database{db: b.db, name: name, version: current, stores: stores}, nil
}

type migrator struct {
	tx *gorm.DB
	db string
}

func (m *migrator) CreateStore(name string) error {
	if err := kv.ValidateStoreName(name); err != nil {
		return err
	}
	return m.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&kvStore{DB: m.db, Name: name}).Error
}

func (m *migrator) DeleteStore(name string) error {
	if err := m.tx.Where("db = ? AND store = ?", m.db, name).Delete(&kvObject{}).Error; err != nil {
		return err
	}
	return m.tx.Where("db = ? AND name = ?", m.db, name).Delete(&kvStore{}).Error
}

type database struct {
	db      *gorm.DB
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
	return &objectStore{db: d.db, dbName: d.name, name: name}, nil
}

type objectStore struct {
	db     *gorm.DB
	dbName string
	name   string
}

func (s *objectStore) scope(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("db = ? AND store = ?", s.dbName, s.name)
}

func (s *objectStore) Get(ctx context.Context, key string) ([]byte, error) {
	var obj kvObject
	err := s.scope(ctx).Where("obj_key = ?", key).Take(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", kv.ErrNotFound, s.name, key)
	}
	if err != nil {
		return nil, err
	}
	return obj.Value, nil
}

func (s *objectStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	obj := kvObject{DB: s.dbName, Store: s.name, Key: key, Value: value}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "db"}, {Name: "store"}, {Name: "obj_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"obj_value"}),
	}).Create(&obj).Error
}

func (s *objectStore) Remove(ctx context.Context, key string) error {
	return s.scope(ctx).Where("obj_key = ?", key).Delete(&kvObject{}).Error
}

func (s *objectStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.scope(ctx).Model(&kvObject{}).Pluck("obj_key", &keys).Error
	if err != nil {
		return nil, err
	}
	// сравнение строк в PostgreSQL зависит от локали, фильтруем и сортируем здесь
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
