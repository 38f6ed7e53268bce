// Package localfs реализует vfs.FS поверх каталога на локальном диске.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"AgileKeeper/internal/cli/vfs"
)

// FS файловое хранилище с корнем в каталоге Root.
type FS struct {
	root string
	// mu сериализует проверку ревизии и запись внутри процесса.
	mu sync.Mutex
}

var _ vfs.FS = (*FS)(nil)

// New возвращает хранилище с корнем root. Каталог создаётся при необходимости.
func New(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &FS{root: root}, nil
}

// Root возвращает корневой каталог.
func (f *FS) Root() string { return f.root }

func (f *FS) abs(p string) string {
	return filepath.Join(f.root, filepath.FromSlash(vfs.Clean(p)))
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", vfs.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", vfs.ErrAuth, err)
	default:
		return err
	}
}

// Read читает файл целиком.
func (f *FS) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.abs(p))
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) && isDir(f.abs(p)) {
			return nil, vfs.ErrIsDir
		}
		return nil, mapErr(err)
	}
	return b, nil
}

// createOnly публикует tmp под именем full, только если full ещё нет.
// Если ФС не поддерживает жёсткие ссылки, файл создаётся с O_EXCL.
func createOnly(tmp, full string, data []byte) error {
	err := os.Link(tmp, full)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return vfs.ErrConflict
	case errors.Is(err, fs.ErrNotExist):
		return mapErr(err)
	}
	out, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return vfs.ErrConflict
	}
	if err != nil {
		return mapErr(err)
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(full)
		return err
	}
	return out.Close()
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}

// Write атомарно записывает файл через временный файл и rename.
// CreateOnly соблюдается и между процессами: файл появляется жёсткой ссылкой,
// которая не перезаписывает существующий. ParentRevision сверяется только под
// мьютексом этого процесса.
func (f *FS) Write(ctx context.Context, p string, data []byte, opts vfs.WriteOptions) (vfs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return vfs.FileInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	full := f.abs(p)
	current, err := os.ReadFile(full)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return vfs.FileInfo{}, mapErr(err)
	}
	rev := ""
	if exists {
		rev = vfs.Revision(current)
	}
	if err := vfs.CheckWrite(opts, exists, rev); err != nil {
		return vfs.FileInfo{}, fmt.Errorf("write %s: %w", p, err)
	}

	dir := filepath.Dir(full)
	if !isDir(dir) {
		return vfs.FileInfo{}, fmt.Errorf("write %s: %w: parent directory missing", p, vfs.ErrNotFound)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return vfs.FileInfo{}, mapErr(err)
	}
	// на случай ошибки до rename
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return vfs.FileInfo{}, err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return vfs.FileInfo{}, err
	}
	if err := tmp.Close(); err != nil {
		return vfs.FileInfo{}, err
	}
	if opts.CreateOnly {
		if err := createOnly(tmp.Name(), full, data); err != nil {
			return vfs.FileInfo{}, fmt.Errorf("write %s: %w", p, err)
		}
	} else if err := os.Rename(tmp.Name(), full); err != nil {
		return vfs.FileInfo{}, mapErr(err)
	}
	clean := vfs.Clean(p)
	return vfs.FileInfo{
		Name:     path.Base(clean),
		Path:     clean,
		Revision: vfs.Revision(data),
		Size:     int64(len(data)),
	}, nil
}

// Stat возвращает описание файла; ревизия файла вычисляется по содержимому.
func (f *FS) Stat(ctx context.Context, p string) (vfs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return vfs.FileInfo{}, err
	}
	return f.stat(vfs.Clean(p))
}

func (f *FS) stat(clean string) (vfs.FileInfo, error) {
	full := f.abs(clean)
	st, err := os.Stat(full)
	if err != nil {
		return vfs.FileInfo{}, mapErr(err)
	}
	info := vfs.FileInfo{Name: path.Base(clean), Path: clean, IsDir: st.IsDir(), Size: st.Size()}
	if !st.IsDir() {
		b, err := os.ReadFile(full)
		if err != nil {
			return vfs.FileInfo{}, mapErr(err)
		}
		info.Revision = vfs.Revision(b)
	}
	return info, nil
}

// List перечисляет содержимое каталога, пропуская временные файлы записи.
func (f *FS) List(ctx context.Context, p string) ([]vfs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.abs(p))
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]vfs.FileInfo, 0, len(entries))
	for _, e := range entries {
		if matched, _ := path.Match(".tmp-*", e.Name()); matched {
			continue
		}
		info, err := f.stat(vfs.Join(p, e.Name()))
		if err != nil {
			if errors.Is(err, vfs.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Mkpath создаёт каталог со всеми родительскими.
func (f *FS) Mkpath(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(os.MkdirAll(f.abs(p), 0o700))
}

// Rm удаляет файл или каталог целиком.
func (f *FS) Rm(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := f.abs(p)
	if _, err := os.Lstat(full); err != nil {
		return mapErr(err)
	}
	return mapErr(os.RemoveAll(full))
}
