// Package store описывает общий контракт хранилища записей. Его реализуют
// хранилище-сейф (vault) и локальный кэш (local); синхронизация и команды
// CLI работают только через этот интерфейс.
package store

import (
	"context"
	"errors"

	"AgileKeeper/internal/cli/model"
)

var (
	// ErrLocked операция требует разблокированного хранилища.
	ErrLocked   = errors.New("store is locked")
	ErrNotFound = errors.New("item not found")
	// ErrUnsupported операция не поддерживается этим хранилищем.
	ErrUnsupported = errors.New("operation not supported by this store")
)

// ListItemsOptions параметры ListItems.
type ListItemsOptions struct {
	// IncludeTombstones включает в результат маркеры удаления.
	IncludeTombstones bool
}

// Store хранилище записей.
type Store interface {
	model.ItemStore

	// Unlock расшифровывает ключи хранилища паролем и передаёт их агенту.
	Unlock(ctx context.Context, password string) error
	Lock()
	// IsLocked истинно, если хотя бы одного ключа хранилища нет в агенте.
	IsLocked(ctx context.Context) (bool, error)

	ListItemStates(ctx context.Context) ([]model.ItemState, error)
	ListItems(ctx context.Context, opts ListItemsOptions) ([]*model.Item, error)

	ListKeys(ctx context.Context) ([]model.EncryptionKey, error)
	SaveKeys(ctx context.Context, keys []model.EncryptionKey, hint string) error
	PasswordHint(ctx context.Context) (string, error)

	// Clear удаляет все данные хранилища.
	Clear(ctx context.Context) error

	// OnItemUpdated подписывает fn на успешные сохранения записей.
	OnItemUpdated(fn func(*model.Item)) (unsubscribe func())
}

// SyncRecord состояние записи на момент последней успешной синхронизации
// с конкретным удалённым хранилищем.
type SyncRecord struct {
	LocalRevision  string
	RemoteRevision string
	// Base копия записи после синхронизации, база трёхстороннего слияния.
	Base model.ItemAndContent
}

// SyncStateStore хранит SyncRecord по (peer, uuid). Реализуется локальным хранилищем.
type SyncStateStore interface {
	// LastSynced возвращает ErrNotFound, если запись ещё не синхронизировалась.
	LastSynced(ctx context.Context, peer, uuid string) (SyncRecord, error)
	SetLastSynced(ctx context.Context, peer, uuid string, rec SyncRecord) error
	ForgetLastSynced(ctx context.Context, peer, uuid string) error
}
