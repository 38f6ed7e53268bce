// Package memory реализует kv.Backend в памяти процесса. Базы живут, пока
// жив Backend, повторное Open видит прежние данные.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	"AgileKeeper/internal/cli/kv"
)

type Backend struct {
	mu  sync.RWMutex
	dbs map[string]*database
}

var _ kv.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{dbs: make(map[string]*database)}
}

type database struct {
	backend *Backend
	name    string
	version int
	stores  map[string]map[string][]byte
}

func (b *Backend) Open(ctx context.Context, name string, version int, migrate kv.MigrateFunc) (kv.Database, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, ok := b.dbs[name]
	current := 0
	if ok {
		current = db.version
	}
	upgrade, err := kv.NeedsUpgrade(name, current, version)
	if err != nil {
		return nil, err
	}
	if !upgrade {
		return db, nil
	}

	// миграция работает на копии набора хранилищ, при ошибке база не меняется
	staged := &migrator{stores: map[string]map[string][]byte{}}
	if ok {
		maps.Copy(staged.stores, db.stores)
	}
	if err := kv.RunMigration(ctx, staged, migrate, current, version); err != nil {
		return nil, err
	}
	if !ok {
		db = &database{backend: b, name: name}
		b.dbs[name] = db
	}
	db.stores = staged.stores
	db.version = version
	return db, nil
}

type migrator struct {
	stores map[string]map[string][]byte
}

func (m *migrator) CreateStore(name string) error {
	if err := kv.ValidateStoreName(name); err != nil {
		return err
	}
	if _, ok := m.stores[name]; !ok {
		m.stores[name] = make(map[string][]byte)
	}
	return nil
}

func (m *migrator) DeleteStore(name string) error {
	delete(m.stores, name)
	return nil
}

func (d *database) Name() string { return d.name }

func (d *database) Version() int {
	d.backend.mu.RLock()
	defer d.backend.mu.RUnlock()
	return d.version
}

func (d *database) Store(name string) (kv.ObjectStore, error) {
	d.backend.mu.RLock()
	defer d.backend.mu.RUnlock()
	if _, ok := d.stores[name]; !ok {
		return nil, fmt.Errorf("%w: %s", kv.ErrNoSuchStore, name)
	}
	return &objectStore{db: d, name: name}, nil
}

type objectStore struct {
	db   *database
	name string
}

// objects возвращает карту хранилища; вызывается под блокировкой Backend.
func (s *objectStore) objects() (map[string][]byte, error) {
	m, ok := s.db.stores[s.name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", kv.ErrNoSuchStore, s.name)
	}
	return m, nil
}

func (s *objectStore) Get(_ context.Context, key string) ([]byte, error) {
	s.db.backend.mu.RLock()
	defer s.db.backend.mu.RUnlock()
	m, err := s.objects()
	if err != nil {
		return nil, err
	}
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", kv.ErrNotFound, s.name, key)
	}
	return append([]byte(nil), v...), nil
}

func (s *objectStore) Set(_ context.Context, key string, value []byte) error {
	s.db.backend.mu.Lock()
	defer s.db.backend.mu.Unlock()
	m, err := s.objects()
	if err != nil {
		return err
	}
	m[key] = append([]byte(nil), value...)
	return nil
}

func (s *objectStore) Remove(_ context.Context, key string) error {
	s.db.backend.mu.Lock()
	defer s.db.backend.mu.Unlock()
	m, err := s.objects()
	if err != nil {
		return err
	}
	delete(m, key)
	return nil
}

func (s *objectStore) List(_ context.Context, prefix string) ([]string, error) {
	s.db.backend.mu.RLock()
	defer s.db.backend.mu.RUnlock()
	m, err := s.objects()
	if err != nil {
		return nil, err
	}
	var keys []string
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
