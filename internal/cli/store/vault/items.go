package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"AgileKeeper/internal/cli/codec"
	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
	"AgileKeeper/internal/cli/vfs"
)

// ListItemStates объединяет маркеры удаления из contents.js и файлы записей
// каталога данных. Если для uuid есть и то и другое, запись считается удалённой.
func (v *Vault) ListItemStates(ctx context.Context) ([]model.ItemState, error) {
	_, states, err := v.itemStates(ctx)
	return states, err
}

func (v *Vault) itemStates(ctx context.Context) ([]codec.ContentsEntry, []model.ItemState, error) {
	list, err := v.fs.List(ctx, vfs.Join(v.root, dataDir))
	if err != nil {
		return nil, nil, fmt.Errorf("list vault: %w", err)
	}
	files := make(map[string]string, len(list))
	for _, f := range list {
		if f.IsDir || !itemFileRe.MatchString(f.Name) {
			continue
		}
		files[strings.TrimSuffix(f.Name, itemSuffix)] = f.Revision
	}
	index, _, err := v.readIndex(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read index: %w", err)
	}
	return index, codec.ItemStates(index, files), nil
}

// ListItems загружает и расшифровывает все записи. Записи, содержимое
// которых оказалось маркером удаления (старые сейфы удаляли перезаписью),
// и маркеры из индекса возвращаются только с IncludeTombstones.
func (v *Vault) ListItems(ctx context.Context, opts store.ListItemsOptions) ([]*model.Item, error) {
	index, states, err := v.itemStates(ctx)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]codec.ContentsEntry, len(index))
	for _, e := range index {
		entries[e.UUID] = e
	}

	var items []*model.Item
	for _, st := range states {
		if st.Deleted {
			if opts.IncludeTombstones {
				items = append(items, v.tombstoneFromIndex(entries[st.UUID], st.UUID))
			}
			continue
		}
		loaded, err := v.loadItem(ctx, st.UUID, entries)
		if err != nil {
			return nil, err
		}
		if loaded.Item.IsTombstone() && !opts.IncludeTombstones {
			continue
		}
		items = append(items, loaded.Item)
	}
	return items, nil
}

func (v *Vault) tombstoneFromIndex(e codec.ContentsEntry, uuid string) *model.Item {
	item := model.NewItem(v, uuid, model.TombstoneType)
	item.MakeTombstone()
	item.CreatedAt = codec.FromUnix(e.UpdatedAt)
	item.UpdatedAt = item.CreatedAt
	return item
}

// LoadItem читает и расшифровывает одну запись. Revision берётся из ревизии файла.
// Если contents.js помечает запись удалённой, файл не читается и возвращается
// маркер удаления с пустым содержимым.
func (v *Vault) LoadItem(ctx context.Context, uuid string) (model.ItemAndContent, error) {
	index, _, err := v.readIndex(ctx)
	if err != nil {
		return model.ItemAndContent{}, fmt.Errorf("read index: %w", err)
	}
	entries := make(map[string]codec.ContentsEntry, len(index))
	for _, e := range index {
		entries[e.UUID] = e
	}
	return v.loadItem(ctx, uuid, entries)
}

func (v *Vault) loadItem(ctx context.Context, uuid string, entries map[string]codec.ContentsEntry) (model.ItemAndContent, error) {
	if e, ok := entries[uuid]; ok && e.IsTombstone() {
		return model.ItemAndContent{Item: v.tombstoneFromIndex(e, uuid), Content: model.ItemContent{}}, nil
	}
	path := v.itemPath(uuid)
	info, err := v.fs.Stat(ctx, path)
	if errors.Is(err, vfs.ErrNotFound) {
		return model.ItemAndContent{}, fmt.Errorf("%w: %s", store.ErrNotFound, uuid)
	}
	if err != nil {
		return model.ItemAndContent{}, err
	}
	data, err := v.fs.Read(ctx, path)
	if err != nil {
		return model.ItemAndContent{}, fmt.Errorf("read item %s: %w", uuid, err)
	}
	rec, err := codec.DecodeItem(data)
	if err != nil {
		return model.ItemAndContent{}, fmt.Errorf("item %s: %w", uuid, err)
	}
	item := codec.FromItemRecord(rec)
	item.Bind(v)
	item.Revision = info.Revision

	keyID := rec.KeyID
	if keyID == "" {
		if keyID, err = v.encryptionKeyID(ctx); err != nil {
			return model.ItemAndContent{}, err
		}
	}
	encrypted, err := rec.EncryptedData()
	if err != nil {
		return model.ItemAndContent{}, fmt.Errorf("item %s: %w", uuid, err)
	}
	plain, err := v.agent.Decrypt(keyID, encrypted, keyagent.DefaultParams)
	if err != nil {
		return model.ItemAndContent{}, fmt.Errorf("decrypt item %s: %w", uuid, store.AgentErr(err))
	}
	content, err := codec.DecodeContent(plain)
	if err != nil {
		return model.ItemAndContent{}, fmt.Errorf("item %s: %w", uuid, err)
	}
	location := item.Location
	item.SetContent(content)
	if location != "" {
		item.Location = location
	}
	return model.ItemAndContent{Item: item, Content: content}, nil
}

// SaveItem сохраняет запись. Для маркера удаления файл записи удаляется
// (отсутствие файла не ошибка), иначе содержимое шифруется и файл
// перезаписывается. Метод возвращается после того, как обновление индекса с
// этой записью записано.
func (v *Vault) SaveItem(ctx context.Context, item *model.Item, _ model.ChangeSource) error {
	if item.IsTombstone() {
		if err := v.fs.Rm(ctx, v.itemPath(item.UUID)); err != nil && !errors.Is(err, vfs.ErrNotFound) {
			return fmt.Errorf("remove item %s: %w", item.UUID, err)
		}
		item.ParentRevision = item.Revision
		item.Revision = ""
	} else {
		if err := v.writeItem(ctx, item); err != nil {
			return err
		}
	}

	if err := v.index.enqueue(ctx, codec.ContentsEntryFor(item)).wait(ctx); err != nil {
		return fmt.Errorf("save item %s: %w", item.UUID, err)
	}
	v.updates.Publish(item)
	return nil
}

func (v *Vault) writeItem(ctx context.Context, item *model.Item) error {
	content, err := item.Content(ctx)
	if err != nil {
		return fmt.Errorf("item %s content: %w", item.UUID, err)
	}
	keyID, err := v.encryptionKeyID(ctx)
	if err != nil {
		return err
	}
	plain, err := codec.EncodeContent(content)
	if err != nil {
		return err
	}
	encrypted, err := v.agent.Encrypt(keyID, plain, keyagent.DefaultParams)
	if err != nil {
		return fmt.Errorf("encrypt item %s: %w", item.UUID, store.AgentErr(err))
	}
	rec := codec.ToItemRecord(item, encrypted)
	rec.KeyID = keyID
	data, err := codec.MarshalItemRecord(rec)
	if err != nil {
		return err
	}
	info, err := v.fs.Write(ctx, v.itemPath(item.UUID), data, vfs.WriteOptions{})
	if err != nil {
		return fmt.Errorf("write item %s: %w", item.UUID, err)
	}
	item.ParentRevision = item.Revision
	item.Revision = info.Revision
	if item.Store() == nil {
		item.Bind(v)
	}
	return nil
}
