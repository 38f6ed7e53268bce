package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"AgileKeeper/internal/cli/codec"
	"AgileKeeper/internal/cli/kv"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
)

func (s *Store) readOverview(ctx context.Context, uuid string) (overviewEnvelope, error) {
	var env overviewEnvelope
	err := getJSON(ctx, s.items, overviewPrefix+uuid, &env)
	if errors.Is(err, kv.ErrNotFound) {
		return env, fmt.Errorf("%w: %s", store.ErrNotFound, uuid)
	}
	return env, err
}

func (s *Store) ListItemStates(ctx context.Context) ([]model.ItemState, error) {
	keys, err := s.items.List(ctx, overviewPrefix)
	if err != nil {
		return nil, fmt.Errorf("list cached items: %w", err)
	}
	states := make([]model.ItemState, 0, len(keys))
	for _, k := range keys {
		uuid := strings.TrimPrefix(k, overviewPrefix)
		env, err := s.readOverview(ctx, uuid)
		if err != nil {
			return nil, err
		}
		st := model.ItemState{UUID: uuid, Deleted: env.Deleted}
		if !env.Deleted {
			st.Revision = env.Revision
		}
		states = append(states, st)
	}
	return states, nil
}

func (s *Store) ListItems(ctx context.Context, opts store.ListItemsOptions) ([]*model.Item, error) {
	states, err := s.ListItemStates(ctx)
	if err != nil {
		return nil, err
	}
	var items []*model.Item
	for _, st := range states {
		if st.Deleted && !opts.IncludeTombstones {
			continue
		}
		loaded, err := s.LoadItem(ctx, st.UUID)
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

func (s *Store) LoadItem(ctx context.Context, uuid string) (model.ItemAndContent, error) {
	env, err := s.readOverview(ctx, uuid)
	if err != nil {
		return model.ItemAndContent{}, err
	}
	item, err := s.decodeOverview(env.envelope)
	if err != nil {
		return model.ItemAndContent{}, fmt.Errorf("item %s: %w", uuid, err)
	}
	item.Revision = env.Revision
	item.ParentRevision = env.ParentRevision
	item.Bind(s)

	var content model.ItemContent
	if !item.IsTombstone() {
		var cenv envelope
		if err := getJSON(ctx, s.items, contentPrefix+uuid, &cenv); err != nil {
			return model.ItemAndContent{}, fmt.Errorf("item %s content: %w", uuid, err)
		}
		plain, err := s.open(cenv)
		if err != nil {
			return model.ItemAndContent{}, fmt.Errorf("decrypt item %s: %w", uuid, err)
		}
		if content, err = codec.DecodeContent(plain); err != nil {
			return model.ItemAndContent{}, fmt.Errorf("item %s: %w", uuid, err)
		}
	}
	location := item.Location
	item.SetContent(content)
	item.Location = location
	return model.ItemAndContent{Item: item, Content: content}, nil
}

func (s *Store) decodeOverview(env envelope) (*model.Item, error) {
	plain, err := s.open(env)
	if err != nil {
		return nil, err
	}
	var rec codec.ItemRecord
	if err := json.Unmarshal(plain, &rec); err != nil {
		return nil, &codec.FormatError{Record: "overview", Reason: "malformed JSON", Err: err}
	}
	return codec.FromItemRecord(rec), nil
}

// SaveItem шифрует и сохраняет содержимое, затем метаданные. Для маркера
// удаления содержимое стирается, а метаданные остаются, чтобы удаление
// дошло до других хранилищ при синхронизации.
func (s *Store) SaveItem(ctx context.Context, item *model.Item, _ model.ChangeSource) error {
	var content model.ItemContent
	if !item.IsTombstone() {
		var err error
		if content, err = item.Content(ctx); err != nil {
			return fmt.Errorf("item %s content: %w", item.UUID, err)
		}
	}
	plain, err := codec.EncodeContent(content)
	if err != nil {
		return err
	}
	cenv, err := s.seal(plain)
	if err != nil {
		return fmt.Errorf("encrypt item %s: %w", item.UUID, err)
	}
	rev := revision(cenv.Data)

	overview, err := json.Marshal(codec.ToItemRecord(item, nil))
	if err != nil {
		return err
	}
	oenv, err := s.seal(overview)
	if err != nil {
		return fmt.Errorf("encrypt item %s: %w", item.UUID, err)
	}

	if item.IsTombstone() {
		if err := s.items.Remove(ctx, contentPrefix+item.UUID); err != nil {
			return fmt.Errorf("remove item %s content: %w", item.UUID, err)
		}
	} else if err := setJSON(ctx, s.items, contentPrefix+item.UUID, cenv); err != nil {
		return fmt.Errorf("save item %s content: %w", item.UUID, err)
	}
	if err := setJSON(ctx, s.items, overviewPrefix+item.UUID, overviewEnvelope{
		envelope:       oenv,
		Revision:       rev,
		ParentRevision: item.Revision,
		Deleted:        item.IsTombstone(),
	}); err != nil {
		return fmt.Errorf("save item %s: %w", item.UUID, err)
	}

	item.ParentRevision = item.Revision
	item.Revision = rev
	if item.Store() == nil {
		item.Bind(s)
	}
	s.updates.Publish(item)
	return nil
}
