// Package bolt реализует kv.Backend поверх bbolt: база это корневой bucket,
// хранилища объектов это вложенные buckets.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"AgileKeeper/internal/cli/kv"
)

// Внутри корневого bucket базы: meta с версией и stores с хранилищами объектов.
var (
	metaBucket   = []byte("meta")
	storesBucket = []byte("stores")
	versionKey   = []byte("version")
)

type Backend struct {
	db *bbolt.DB
}

var _ kv.Backend = (*Backend)(nil)

// Open открывает файл bbolt, создавая каталог при необходимости.
func Open(path string) (*Backend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Backend) Open(ctx context.Context, name string, version int, migrate kv.MigrateFunc) (kv.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current := 0
	err := b.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(name))
		if root != nil {
			if v := root.Bucket(metaBucket).Get(versionKey); len(v) == 8 {
				current = int(binary.BigEndian.Uint64(v))
			}
		}
		upgrade, err := kv.NeedsUpgrade(name, current, version)
		if err != nil || !upgrade {
			return err
		}
		if root == nil {
			if root, err = tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
			if _, err := root.CreateBucket(metaBucket); err != nil {
				return err
			}
			if _, err := root.CreateBucket(storesBucket); err != nil {
				return err
			}
		}
		m := &migrator{stores: root.Bucket(storesBucket)}
		if err := kv.RunMigration(ctx, m, migrate, current, version); err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(version))
		current = version
		return root.Bucket(metaBucket).Put(versionKey, buf[:])
	})
	if err != nil {
		return nil, err
	}
	return &database{db: b.db, name: name, version: current}, nil
}

type migrator struct {
	stores *bbolt.Bucket
}

func (m *migrator) CreateStore(name string) error {
	if err := kv.ValidateStoreName(name); err != nil {
		return err
	}
	_, err := m.stores.CreateBucketIfNotExists([]byte(name))
	return err
}

func (m *migrator) DeleteStore(name string) error {
	err := m.stores.DeleteBucket([]byte(name))
	if errors.Is(err, bbolt.ErrBucketNotFound) {
		return nil
	}
	return err
}

type database struct {
	db      *bbolt.DB
	name    string
	version int
}

func (d *database) Name() string { return d.name }
func (d *database) Version() int { return d.version }

func (d *database) Store(name string) (kv.ObjectStore, error) {
	s := &objectStore{db: d.db, dbName: []byte(d.name), name: []byte(name)}
	err := d.db.View(func(tx *bbolt.Tx) error {
		_, err := s.bucket(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

type objectStore struct {
	db     *bbolt.DB
	dbName []byte
	name   []byte
}

func (s *objectStore) bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	root := tx.Bucket(s.dbName)
	if root == nil {
		return nil, fmt.Errorf("%w: %s", kv.ErrNoSuchStore, s.name)
	}
	b := root.Bucket(storesBucket).Bucket(s.name)
	if b == nil {
		return nil, fmt.Errorf("%w: %s", kv.ErrNoSuchStore, s.name)
	}
	return b, nil
}

func (s *objectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		v := b.Get([]byte(key))
		if v == nil {
			return fmt.Errorf("%w: %s/%s", kv.ErrNotFound, s.name, key)
		}
		// значение валидно только внутри транзакции
		out = append([]byte{}, v...)
		return nil
	})
	return out, err
}

func (s *objectStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		if value == nil {
			value = []byte{}
		}
		return b.Put([]byte(key), value)
	})
}

func (s *objectStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
}

func (s *objectStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx)
		if err != nil {
			return err
		}
		p := []byte(prefix)
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}
