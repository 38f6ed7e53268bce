package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"AgileKeeper/internal/cli/codec"
	"AgileKeeper/internal/cli/kv"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
)

// syncEnvelope запись состояния синхронизации. Ревизии хранятся открыто,
// снимок записи зашифрован.
type syncEnvelope struct {
	LocalRevision  string   `json:"localRevision"`
	RemoteRevision string   `json:"remoteRevision"`
	Base           envelope `json:"base"`
}

type syncSnapshot struct {
	Item    codec.ItemRecord `json:"item"`
	Content json.RawMessage  `json:"content"`
}

func syncKey(peer, uuid string) string { return peer + "/" + uuid }

func (s *Store) LastSynced(ctx context.Context, peer, uuid string) (store.SyncRecord, error) {
	var env syncEnvelope
	err := getJSON(ctx, s.sync, syncKey(peer, uuid), &env)
	if errors.Is(err, kv.ErrNotFound) {
		return store.SyncRecord{}, fmt.Errorf("%w: no sync state for %s", store.ErrNotFound, uuid)
	}
	if err != nil {
		return store.SyncRecord{}, err
	}
	plain, err := s.open(env.Base)
	if err != nil {
		return store.SyncRecord{}, fmt.Errorf("sync state %s: %w", uuid, err)
	}
	var snap syncSnapshot
	if err := json.Unmarshal(plain, &snap); err != nil {
		return store.SyncRecord{}, &codec.FormatError{Record: "sync state", Reason: "malformed JSON", Err: err}
	}
	content, err := codec.DecodeContent(snap.Content)
	if err != nil {
		return store.SyncRecord{}, err
	}
	item := codec.FromItemRecord(snap.Item)
	location := item.Location
	item.SetContent(content)
	item.Location = location
	return store.SyncRecord{
		LocalRevision:  env.LocalRevision,
		RemoteRevision: env.RemoteRevision,
		Base:           model.ItemAndContent{Item: item, Content: content},
	}, nil
}

func (s *Store) SetLastSynced(ctx context.Context, peer, uuid string, rec store.SyncRecord) error {
	var snap syncSnapshot
	if rec.Base.Item != nil {
		snap.Item = codec.ToItemRecord(rec.Base.Item, nil)
	}
	content, err := codec.EncodeContent(rec.Base.Content)
	if err != nil {
		return err
	}
	snap.Content = content
	plain, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	base, err := s.seal(plain)
	if err != nil {
		return fmt.Errorf("sync state %s: %w", uuid, err)
	}
	return setJSON(ctx, s.sync, syncKey(peer, uuid), syncEnvelope{
		LocalRevision:  rec.LocalRevision,
		RemoteRevision: rec.RemoteRevision,
		Base:           base,
	})
}

func (s *Store) ForgetLastSynced(ctx context.Context, peer, uuid string) error {
	return s.sync.Remove(ctx, syncKey(peer, uuid))
}
