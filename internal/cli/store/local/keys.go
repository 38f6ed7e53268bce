package local

import (
	"context"
	"errors"
	"fmt"

	"AgileKeeper/internal/cli/codec"
	"AgileKeeper/internal/cli/kv"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
)

// ListKeys возвращает закэшированный список ключей; пустой кэш даёт nil.
func (s *Store) ListKeys(ctx context.Context) ([]model.EncryptionKey, error) {
	data, err := s.keys.Get(ctx, keyListKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached keys: %w", err)
	}
	return codec.DecodeKeyList(data)
}

// SaveKeys кэширует список ключей в формате encryptionKeys.js и подсказку.
func (s *Store) SaveKeys(ctx context.Context, keys []model.EncryptionKey, hint string) error {
	data, err := codec.EncodeKeyList(keys)
	if err != nil {
		return err
	}
	if err := s.keys.Set(ctx, keyListKey, data); err != nil {
		return fmt.Errorf("cache keys: %w", err)
	}
	if err := s.keys.Set(ctx, hintKey, []byte(hint)); err != nil {
		return fmt.Errorf("cache password hint: %w", err)
	}
	return nil
}

func (s *Store) PasswordHint(ctx context.Context) (string, error) {
	data, err := s.keys.Get(ctx, hintKey)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Unlock расшифровывает закэшированные ключи, сеть для этого не нужна.
func (s *Store) Unlock(ctx context.Context, password string) error {
	gen := s.agent.Generation()
	keys, err := s.ListKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return ErrNoKeys
	}
	return store.UnlockKeys(ctx, s.agent, s.deriver, gen, password, keys)
}

func (s *Store) Lock() {
	s.agent.ForgetKeys()
}

func (s *Store) IsLocked(ctx context.Context) (bool, error) {
	keys, err := s.ListKeys(ctx)
	if err != nil {
		return true, err
	}
	return store.KeysLocked(s.agent, keys), nil
}
