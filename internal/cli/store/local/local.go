// Package local реализует store.Store поверх версионируемой key-value базы
// (kv): локальный кэш сейфа. Метаданные и содержимое каждой записи
// шифруются отдельно и лежат под ключами overview/<uuid> и content/<uuid>.
package local

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/event"
	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/kv"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
)

const (
	// DBName имя базы кэша.
	DBName    = "agilekeeper-cache"
	dbVersion = 1

	itemsStore = "items"
	keysStore  = "keys"
	syncStore  = "sync"

	overviewPrefix = "overview/"
	contentPrefix  = "content/"

	keyListKey = "list"
	hintKey    = "hint"
)

// ErrNoKeys в кэше нет ключей: хранилище ещё не синхронизировалось.
var ErrNoKeys = errors.New("local store has no keys, sync keys first")

// Options необязательные параметры кэша.
type Options struct {
	Deriver crypto.Deriver
	Logger  *zap.SugaredLogger
}

// Store локальный кэш записей.
type Store struct {
	agent   *keyagent.Agent
	deriver crypto.Deriver
	log     *zap.SugaredLogger

	db    kv.Database
	items kv.ObjectStore
	keys  kv.ObjectStore
	sync  kv.ObjectStore

	updates event.Subject[*model.Item]
}

var (
	_ store.Store          = (*Store)(nil)
	_ store.SyncStateStore = (*Store)(nil)
)

func migrate(_ context.Context, m kv.Migrator, oldVersion, _ int) error {
	if oldVersion < 1 {
		for _, name := range []string{itemsStore, keysStore, syncStore} {
			if err := m.CreateStore(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Open открывает (при необходимости создаёт) базу кэша в backend.
func Open(ctx context.Context, backend kv.Backend, agent *keyagent.Agent, opts Options) (*Store, error) {
	db, err := backend.Open(ctx, DBName, dbVersion, migrate)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	s := &Store{agent: agent, deriver: opts.Deriver, log: opts.Logger, db: db}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	for name, dst := range map[string]*kv.ObjectStore{itemsStore: &s.items, keysStore: &s.keys, syncStore: &s.sync} {
		if *dst, err = db.Store(name); err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
	}
	return s, nil
}

// envelope зашифрованное значение вместе с идентификатором ключа.
type envelope struct {
	KeyID string `json:"keyID"`
	Data  []byte `json:"data"`
}

// overviewEnvelope хранит ревизию и признак удаления открыто, чтобы
// ListItemStates работал без разблокировки.
type overviewEnvelope struct {
	envelope
	Revision       string `json:"revision,omitempty"`
	ParentRevision string `json:"parentRevision,omitempty"`
	Deleted        bool   `json:"deleted,omitempty"`
}

// keyID ключ, которым шифруются новые данные: первый ключ агента.
func (s *Store) keyID() (string, error) {
	ids := s.agent.ListKeyIDs()
	if len(ids) == 0 {
		return "", store.ErrLocked
	}
	return ids[0], nil
}

func (s *Store) seal(plain []byte) (envelope, error) {
	id, err := s.keyID()
	if err != nil {
		return envelope{}, err
	}
	data, err := s.agent.Encrypt(id, plain, keyagent.DefaultParams)
	if err != nil {
		return envelope{}, store.AgentErr(err)
	}
	return envelope{KeyID: id, Data: data}, nil
}

func (s *Store) open(e envelope) ([]byte, error) {
	plain, err := s.agent.Decrypt(e.KeyID, e.Data, keyagent.DefaultParams)
	if err != nil {
		return nil, store.AgentErr(err)
	}
	return plain, nil
}

// revision ревизия записи кэша: хеш зашифрованного содержимого.
func revision(ciphertext []byte) string {
	sum := sha1.Sum(ciphertext)
	return hex.EncodeToString(sum[:])
}

func getJSON(ctx context.Context, objects kv.ObjectStore, key string, v any) error {
	data, err := objects.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func setJSON(ctx context.Context, objects kv.ObjectStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return objects.Set(ctx, key, data)
}

// Clear удаляет из кэша записи, ключи и состояние синхронизации.
func (s *Store) Clear(ctx context.Context) error {
	for _, objects := range []kv.ObjectStore{s.items, s.keys, s.sync} {
		keys, err := objects.List(ctx, "")
		if err != nil {
			return fmt.Errorf("clear local store: %w", err)
		}
		for _, k := range keys {
			if err := objects.Remove(ctx, k); err != nil {
				return fmt.Errorf("clear local store: %w", err)
			}
		}
	}
	s.log.Infow("local store cleared")
	return nil
}

func (s *Store) OnItemUpdated(fn func(*model.Item)) (unsubscribe func()) {
	return s.updates.Subscribe(fn)
}
