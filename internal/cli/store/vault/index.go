package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"AgileKeeper/internal/cli/codec"
	"AgileKeeper/internal/cli/vfs"
)

// indexWriteAttempts сколько раз повторяется цикл чтение-слияние-запись
// contents.js при конфликте ревизий.
const indexWriteAttempts = 5

// indexBatch набор обновлений индекса, записываемых за один проход.
type indexBatch struct {
	entries map[string]codec.ContentsEntry
	done    chan struct{}
	err     error
}

// indexWriter копит обновления contents.js от параллельных SaveItem и пишет
// их одной горутиной. Пока идёт запись, новые обновления собираются в
// следующий пакет, так что одновременно выполняется не более одной записи,
// а обновление одной записи не затирает обновление другой.
type indexWriter struct {
	vault *Vault

	mu       sync.Mutex
	pending  *indexBatch
	draining bool
}

// enqueue добавляет элемент индекса в текущий пакет и возвращает пакет,
// завершения которого нужно дождаться.
func (w *indexWriter) enqueue(ctx context.Context, e codec.ContentsEntry) *indexBatch {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		w.pending = &indexBatch{entries: map[string]codec.ContentsEntry{}, done: make(chan struct{})}
	}
	w.pending.entries[e.UUID] = e
	b := w.pending
	if !w.draining {
		w.draining = true
		// запись не должна обрываться отменой контекста одного из вызывающих
		go w.drain(context.WithoutCancel(ctx))
	}
	return b
}

func (w *indexWriter) drain(ctx context.Context) {
	for {
		w.mu.Lock()
		b := w.pending
		w.pending = nil
		if b == nil {
			w.draining = false
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		b.err = w.vault.writeIndex(ctx, b.entries)
		close(b.done)
	}
}

// wait ждёт записи пакета или отмены ctx.
func (b *indexBatch) wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readIndex читает contents.js. Отсутствующий файл даёт пустой индекс и
// пустую ревизию.
func (v *Vault) readIndex(ctx context.Context) ([]codec.ContentsEntry, string, error) {
	path := v.dataPath(contentsFile)
	info, err := v.fs.Stat(ctx, path)
	if errors.Is(err, vfs.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	data, err := v.fs.Read(ctx, path)
	if err != nil {
		return nil, "", err
	}
	entries, err := codec.DecodeContents(data)
	if err != nil {
		return nil, "", err
	}
	return entries, info.Revision, nil
}

// writeIndex вливает entries в contents.js. Запись условная: если файл
// изменился с момента чтения, цикл повторяется.
func (v *Vault) writeIndex(ctx context.Context, entries map[string]codec.ContentsEntry) error {
	for attempt := 1; ; attempt++ {
		current, rev, err := v.readIndex(ctx)
		if err != nil {
			return fmt.Errorf("read index: %w", err)
		}
		data, err := codec.EncodeContents(codec.UpsertContents(current, entries))
		if err != nil {
			return err
		}
		opts := vfs.WriteOptions{ParentRevision: rev}
		if rev == "" {
			opts.CreateOnly = true
		}
		_, err = v.fs.Write(ctx, v.dataPath(contentsFile), data, opts)
		if err == nil {
			v.log.Debugw("index updated", "entries", len(entries), "attempt", attempt)
			return nil
		}
		if !errors.Is(err, vfs.ErrConflict) || attempt == indexWriteAttempts {
			return fmt.Errorf("write index: %w", err)
		}
		v.log.Debugw("index changed concurrently, retrying", "attempt", attempt)
	}
}
