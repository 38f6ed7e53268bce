package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"AgileKeeper/internal/cli/event"
	"AgileKeeper/internal/cli/merge"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
)

// DefaultPeer имя удалённого хранилища в состоянии синхронизации по умолчанию.
const DefaultPeer = "remote"

// LocalStore локальное хранилище, которое помнит состояние синхронизации.
type LocalStore interface {
	store.Store
	store.SyncStateStore
}

// SyncResult итог прохода синхронизации.
type SyncResult struct {
	// Updated записи, обработанные без ошибок.
	Updated int
	// Changed записи, которые пришлось скопировать или слить.
	Changed int
	Total   int
	Failed  int
}

// Progress промежуточное состояние: сколько записей из Total уже обработано.
type Progress struct {
	Updated int
	Total   int
}

// SyncerOptions параметры Syncer.
type SyncerOptions struct {
	// Peer ключ, под которым хранится состояние синхронизации с remote.
	Peer string
	// Workers сколько записей синхронизируется одновременно.
	Workers int
	Logger  *zap.SugaredLogger
}

// Syncer синхронизирует локальный кэш с удалённым хранилищем.
type Syncer struct {
	local   LocalStore
	remote  store.Store
	peer    string
	workers int
	log     *zap.SugaredLogger

	group    singleflight.Group
	progress event.Subject[Progress]
}

// NewSyncer создаёт синхронизатор local <-> remote.
func NewSyncer(local LocalStore, remote store.Store, opts SyncerOptions) *Syncer {
	s := &Syncer{local: local, remote: remote, peer: opts.Peer, workers: opts.Workers, log: opts.Logger}
	if s.peer == "" {
		s.peer = DefaultPeer
	}
	if s.workers < 1 {
		s.workers = 1
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	return s
}

// OnProgress подписывает fn на прогресс синхронизации записей.
func (s *Syncer) OnProgress(fn func(Progress)) (unsubscribe func()) {
	return s.progress.Subscribe(fn)
}

// SyncKeys копирует список ключей и подсказку из удалённого хранилища в
// локальное. Удалённое хранилище главное для ключей.
func (s *Syncer) SyncKeys(ctx context.Context) error {
	keys, err := s.remote.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("sync keys: %w", err)
	}
	hint, err := s.remote.PasswordHint(ctx)
	if err != nil {
		return fmt.Errorf("sync keys: %w", err)
	}
	if err := s.local.SaveKeys(ctx, keys, hint); err != nil {
		return fmt.Errorf("sync keys: %w", err)
	}
	s.log.Infow("keys synced", "keys", len(keys))
	return nil
}

// SyncItems выполняет один проход синхронизации записей. Если проход уже
// идёт, вызов дожидается его и возвращает тот же результат. Общий проход не
// зависит от отмены контекста отдельного вызова: отменённый вызов сразу
// возвращает ctx.Err(), а проход доводится до конца для остальных.
func (s *Syncer) SyncItems(ctx context.Context) (SyncResult, error) {
	pass := context.WithoutCancel(ctx)
	ch := s.group.DoChan("items", func() (any, error) {
		return s.syncItems(pass)
	})
	select {
	case <-ctx.Done():
		return SyncResult{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			s.log.Debugw("joined in-flight sync")
		}
		res, _ := r.Val.(SyncResult)
		return res, r.Err
	}
}

func (s *Syncer) syncItems(ctx context.Context) (SyncResult, error) {
	localStates, err := s.local.ListItemStates(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list local items: %w", err)
	}
	remoteStates, err := s.remote.ListItemStates(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list remote items: %w", err)
	}

	pairs := make(map[string]*statePair)
	for _, st := range localStates {
		pairs[st.UUID] = &statePair{local: &st}
	}
	for _, st := range remoteStates {
		p, ok := pairs[st.UUID]
		if !ok {
			p = &statePair{}
			pairs[st.UUID] = p
		}
		p.remote = &st
	}
	uuids := make([]string, 0, len(pairs))
	for uuid := range pairs {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	var (
		mu  sync.Mutex
		res = SyncResult{Total: len(uuids)}
		g   errgroup.Group
	)
	g.SetLimit(s.workers)
	for _, uuid := range uuids {
		g.Go(func() error {
			changed, err := s.syncItem(ctx, uuid, pairs[uuid])
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
				s.log.Warnw("item sync failed", "uuid", uuid, "error", err)
			case changed:
				res.Updated++
				res.Changed++
			default:
				res.Updated++
			}
			s.progress.Publish(Progress{Updated: res.Updated + res.Failed, Total: res.Total})
			return nil
		})
	}
	_ = g.Wait()
	s.log.Infow("items synced", "total", res.Total, "changed", res.Changed, "failed", res.Failed)
	return res, nil
}

type statePair struct {
	local, remote *model.ItemState
}

// syncItem приводит запись к одному состоянию в обоих хранилищах и
// сообщает, пришлось ли что-то менять.
func (s *Syncer) syncItem(ctx context.Context, uuid string, p *statePair) (bool, error) {
	rec, err := s.local.LastSynced(ctx, s.peer, uuid)
	hasRec := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	switch {
	case p.remote == nil:
		return true, s.copyItem(ctx, uuid, s.local, s.remote, p.local, nil, true)
	case p.local == nil:
		return true, s.copyItem(ctx, uuid, s.remote, s.local, p.remote, nil, false)
	}

	l, r := p.local, p.remote
	switch {
	case l.Deleted && r.Deleted:
		if hasRec {
			return false, nil
		}
		return false, s.record(ctx, uuid, l.Revision, r.Revision, tombstone(uuid))
	case l.Deleted:
		return true, s.copyItem(ctx, uuid, s.local, s.remote, l, r, true)
	case r.Deleted:
		return true, s.copyItem(ctx, uuid, s.remote, s.local, r, l, false)
	}

	localSame := hasRec && rec.LocalRevision == l.Revision
	remoteSame := hasRec && rec.RemoteRevision == r.Revision
	switch {
	case localSame && remoteSame:
		return false, nil
	case localSame, !hasRec:
		// без записи о прошлой синхронизации базы для слияния нет, удалённая версия главнее
		return true, s.copyItem(ctx, uuid, s.remote, s.local, r, l, false)
	case remoteSame:
		return true, s.copyItem(ctx, uuid, s.local, s.remote, l, r, true)
	}
	return true, s.mergeItem(ctx, uuid, rec.Base, l, r)
}

// copyItem переносит запись из src в dst. fromLocal задаёт направление для
// записи состояния синхронизации; dstState текущая версия в dst, если есть.
func (s *Syncer) copyItem(ctx context.Context, uuid string, src, dst store.Store, srcState, dstState *model.ItemState, fromLocal bool) error {
	var loaded model.ItemAndContent
	if srcState.Deleted {
		loaded = tombstone(uuid)
	} else {
		var err error
		if loaded, err = src.LoadItem(ctx, uuid); err != nil {
			return fmt.Errorf("load: %w", err)
		}
	}
	item := loaded.Item.Clone()
	item.Bind(dst)
	item.SetContent(loaded.Content)
	item.Location = loaded.Item.Location
	item.Revision = ""
	if dstState != nil {
		item.Revision = dstState.Revision
	}
	if err := dst.SaveItem(ctx, item, model.SourceSync); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if fromLocal {
		return s.record(ctx, uuid, srcState.Revision, item.Revision, loaded)
	}
	return s.record(ctx, uuid, item.Revision, srcState.Revision, loaded)
}

// mergeItem сливает изменения обеих сторон относительно последней
// синхронизированной версии. При конфликте побеждает локальная сторона.
func (s *Syncer) mergeItem(ctx context.Context, uuid string, base model.ItemAndContent, l, r *model.ItemState) error {
	localItem, err := s.local.LoadItem(ctx, uuid)
	if err != nil {
		return fmt.Errorf("load local: %w", err)
	}
	remoteItem, err := s.remote.LoadItem(ctx, uuid)
	if err != nil {
		return fmt.Errorf("load remote: %w", err)
	}
	if base.Item == nil {
		base = remoteItem
	}
	merged, err := merge.Items(base, localItem, remoteItem)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	save := func(dst store.Store, rev string) (string, error) {
		item := merged.Item.Clone()
		item.Bind(dst)
		item.Revision = rev
		if err := dst.SaveItem(ctx, item, model.SourceSync); err != nil {
			return "", err
		}
		return item.Revision, nil
	}
	remoteRev, err := save(s.remote, r.Revision)
	if err != nil {
		return fmt.Errorf("save remote: %w", err)
	}
	localRev, err := save(s.local, l.Revision)
	if err != nil {
		return fmt.Errorf("save local: %w", err)
	}
	s.log.Debugw("item merged", "uuid", uuid)
	return s.record(ctx, uuid, localRev, remoteRev, merged)
}

func (s *Syncer) record(ctx context.Context, uuid, localRev, remoteRev string, base model.ItemAndContent) error {
	if err := s.local.SetLastSynced(ctx, s.peer, uuid, store.SyncRecord{
		LocalRevision:  localRev,
		RemoteRevision: remoteRev,
		Base:           base,
	}); err != nil {
		return fmt.Errorf("record sync state: %w", err)
	}
	return nil
}

func tombstone(uuid string) model.ItemAndContent {
	item := model.NewItem(nil, uuid, model.TombstoneType)
	item.MakeTombstone()
	return model.ItemAndContent{Item: item}
}
