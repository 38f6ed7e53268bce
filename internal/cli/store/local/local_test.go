package local

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/kv"
	"AgileKeeper/internal/cli/kv/memory"
	"AgileKeeper/internal/cli/kv/sqlite"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
)

const testPassword = "logMEin"

func testKeys(t *testing.T) []model.EncryptionKey {
	t.Helper()
	master, err := crypto.NewMasterKey()
	require.NoError(t, err)
	data, validation, err := crypto.WrapMasterKey(context.Background(), crypto.Deriver{}, testPassword, master, 10)
	require.NoError(t, err)
	return []model.EncryptionKey{{
		Identifier: crypto.NewUUID(),
		Data:       data,
		Validation: validation,
		Iterations: 10,
		Level:      model.SecurityLevel5,
	}}
}

func openStore(t *testing.T, backend kv.Backend) *Store {
	t.Helper()
	s, err := Open(context.Background(), backend, keyagent.New(nil), Options{})
	require.NoError(t, err)
	return s
}

func unlockedStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := openStore(t, memory.NewBackend())
	require.NoError(t, s.SaveKeys(ctx, testKeys(t), "hint"))
	require.NoError(t, s.Unlock(ctx, testPassword))
	return s
}

func TestStore_UnlockFromCachedKeys(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.NewBackend())

	assert.ErrorIs(t, s.Unlock(ctx, testPassword), ErrNoKeys)
	locked, err := s.IsLocked(ctx)
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, s.SaveKeys(ctx, testKeys(t), "cached hint"))
	assert.ErrorIs(t, s.Unlock(ctx, "wrong"), crypto.ErrIncorrectPassword)
	require.NoError(t, s.Unlock(ctx, testPassword))
	locked, err = s.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked)

	hint, err := s.PasswordHint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cached hint", hint)

	s.Lock()
	locked, err = s.IsLocked(ctx)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := unlockedStore(t)

	item := model.NewItem(s, crypto.NewUUID(), model.LoginType)
	item.Title = "Facebook"
	item.OpenContents.Tags = []string{"social"}
	item.SetContent(model.LoginContent("john.doe@gmail.com", "Wwk-ZWc-T9MO", "facebook.com"))
	require.NoError(t, item.Save(ctx))
	first := item.Revision
	require.NotEmpty(t, first)

	item.Title = "Facebook (work)"
	require.NoError(t, item.Save(ctx))
	assert.NotEqual(t, first, item.Revision)
	assert.Equal(t, first, item.ParentRevision)

	loaded, err := s.LoadItem(ctx, item.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Facebook (work)", loaded.Item.Title)
	assert.Equal(t, []string{"social"}, loaded.Item.OpenContents.Tags)
	assert.Equal(t, "facebook.com", loaded.Item.Location)
	assert.Equal(t, item.Revision, loaded.Item.Revision)
	assert.Equal(t, first, loaded.Item.ParentRevision)
	assert.Equal(t, "Wwk-ZWc-T9MO", loaded.Content.Password())
	assert.True(t, item.CreatedAt.Equal(loaded.Item.CreatedAt))

	_, err = s.LoadItem(ctx, crypto.NewUUID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ValuesAreEncrypted(t *testing.T) {
	ctx := context.Background()
	s := unlockedStore(t)
	item := model.NewItem(s, crypto.NewUUID(), model.LoginType)
	item.Title = "Secret title"
	item.SetContent(model.LoginContent("user", "Wwk-ZWc-T9MO", ""))
	require.NoError(t, item.Save(ctx))

	for _, key := range []string{overviewPrefix + item.UUID, contentPrefix + item.UUID} {
		raw, err := s.items.Get(ctx, key)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "Secret title")
		assert.NotContains(t, string(raw), "Wwk-ZWc-T9MO")
	}
}

func TestStore_Tombstones(t *testing.T) {
	ctx := context.Background()
	s := unlockedStore(t)
	keep := model.NewItem(s, crypto.NewUUID(), model.LoginType)
	keep.SetContent(model.LoginContent("a", "b", ""))
	require.NoError(t, keep.Save(ctx))
	gone := model.NewItem(s, crypto.NewUUID(), model.LoginType)
	gone.SetContent(model.LoginContent("c", "d", ""))
	require.NoError(t, gone.Save(ctx))

	require.NoError(t, gone.Remove(ctx))
	_, err := s.items.Get(ctx, contentPrefix+gone.UUID)
	assert.ErrorIs(t, err, kv.ErrNotFound)

	items, err := s.ListItems(ctx, store.ListItemsOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.UUID, items[0].UUID)

	items, err = s.ListItems(ctx, store.ListItemsOptions{IncludeTombstones: true})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	loaded, err := s.LoadItem(ctx, gone.UUID)
	require.NoError(t, err)
	assert.True(t, loaded.Item.IsTombstone())
	assert.Equal(t, "Unnamed", loaded.Item.Title)
	assert.True(t, loaded.Content.Equal(model.ItemContent{}))

	// состояния читаются и без ключей
	s.Lock()
	states, err := s.ListItemStates(ctx)
	require.NoError(t, err)
	byUUID := map[string]model.ItemState{}
	for _, st := range states {
		byUUID[st.UUID] = st
	}
	assert.True(t, byUUID[gone.UUID].Deleted)
	assert.False(t, byUUID[keep.UUID].Deleted)
	assert.Equal(t, keep.Revision, byUUID[keep.UUID].Revision)
}

func TestStore_LockedSaveFails(t *testing.T) {
	ctx := context.Background()
	s := unlockedStore(t)
	s.Lock()
	item := model.NewItem(s, crypto.NewUUID(), model.LoginType)
	item.SetContent(model.LoginContent("a", "b", ""))
	assert.ErrorIs(t, item.Save(ctx), store.ErrLocked)
}

func TestStore_OnItemUpdated(t *testing.T) {
	ctx := context.Background()
	s := unlockedStore(t)
	var titles []string
	unsubscribe := s.OnItemUpdated(func(it *model.Item) { titles = append(titles, it.Title) })
	defer unsubscribe()

	item := model.NewItem(s, crypto.NewUUID(), model.LoginType)
	item.Title = "first"
	item.SetContent(model.LoginContent("a", "b", ""))
	require.NoError(t, item.Save(ctx))
	assert.Equal(t, []string{"first"}, titles)
}

func TestStore_SyncState(t *testing.T) {
	ctx := context.Background()
	s := unlockedStore(t)

	_, err := s.LastSynced(ctx, "remote", "ABC")
	assert.ErrorIs(t, err, store.ErrNotFound)

	base := model.NewItem(nil, crypto.NewUUID(), model.LoginType)
	base.Title = "base"
	content := model.LoginContent("user", "pass", "example.com")
	base.SetContent(content)
	require.NoError(t, s.SetLastSynced(ctx, "remote", base.UUID, store.SyncRecord{
		LocalRevision:  "l1",
		RemoteRevision: "r1",
		Base:           model.ItemAndContent{Item: base, Content: content},
	}))

	rec, err := s.LastSynced(ctx, "remote", base.UUID)
	require.NoError(t, err)
	assert.Equal(t, "l1", rec.LocalRevision)
	assert.Equal(t, "r1", rec.RemoteRevision)
	assert.Equal(t, "base", rec.Base.Item.Title)
	assert.Equal(t, "example.com", rec.Base.Item.Location)
	assert.True(t, content.Equal(rec.Base.Content))

	_, err = s.LastSynced(ctx, "other", base.UUID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.ForgetLastSynced(ctx, "remote", base.UUID))
	_, err = s.LastSynced(ctx, "remote", base.UUID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ClearAndReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := sqlite.Open(ctx, filepath.Join(dir, "cache.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	s := openStore(t, backend)
	require.NoError(t, s.SaveKeys(ctx, testKeys(t), "hint"))
	require.NoError(t, s.Unlock(ctx, testPassword))
	item := model.NewItem(s, crypto.NewUUID(), model.LoginType)
	item.SetContent(model.LoginContent("a", "b", ""))
	require.NoError(t, item.Save(ctx))

	reopened, err := Open(ctx, backend, s.agent, Options{})
	require.NoError(t, err)
	items, err := reopened.ListItems(ctx, store.ListItemsOptions{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, reopened.Clear(ctx))
	states, err := reopened.ListItemStates(ctx)
	require.NoError(t, err)
	assert.Empty(t, states)
	keys, err := reopened.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
