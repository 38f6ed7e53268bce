package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/kv/memory"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
	"AgileKeeper/internal/cli/store/local"
	"AgileKeeper/internal/cli/store/vault"
	"AgileKeeper/internal/cli/vfs/memfs"
)

const testPassword = "logMEin"

// newStores создаёт разблокированный сейф и пустой кэш, разделяющие одного агента.
func newStores(t *testing.T) (*vault.Vault, *local.Store) {
	t.Helper()
	ctx := context.Background()
	agent := keyagent.New(nil)
	v, err := vault.CreateVault(ctx, memfs.New(), "vault", agent,
		vault.CreateParams{Password: testPassword, Hint: "usual", Iterations: 10}, vault.Options{})
	require.NoError(t, err)
	require.NoError(t, v.Unlock(ctx, testPassword))

	l, err := local.Open(ctx, memory.NewBackend(), agent, local.Options{})
	require.NoError(t, err)
	return v, l
}

// mockStore testify-двойник store.Store.
type mockStore struct{ mock.Mock }

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) LoadItem(ctx context.Context, uuid string) (model.ItemAndContent, error) {
	args := m.Called(ctx, uuid)
	return args.Get(0).(model.ItemAndContent), args.Error(1)
}
func (m *mockStore) SaveItem(ctx context.Context, item *model.Item, source model.ChangeSource) error {
	return m.Called(ctx, item, source).Error(0)
}
func (m *mockStore) Unlock(ctx context.Context, password string) error {
	return m.Called(ctx, password).Error(0)
}
func (m *mockStore) Lock() { m.Called() }
func (m *mockStore) IsLocked(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
func (m *mockStore) ListItemStates(ctx context.Context) ([]model.ItemState, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.ItemState); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) ListItems(ctx context.Context, opts store.ListItemsOptions) ([]*model.Item, error) {
	args := m.Called(ctx, opts)
	if v, ok := args.Get(0).([]*model.Item); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) ListKeys(ctx context.Context) ([]model.EncryptionKey, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.EncryptionKey); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) SaveKeys(ctx context.Context, keys []model.EncryptionKey, hint string) error {
	return m.Called(ctx, keys, hint).Error(0)
}
func (m *mockStore) PasswordHint(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *mockStore) Clear(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) OnItemUpdated(fn func(*model.Item)) (unsubscribe func()) {
	m.Called(fn)
	return func() {}
}
