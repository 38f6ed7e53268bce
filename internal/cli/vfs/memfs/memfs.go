// Package memfs реализует vfs.FS в памяти. Используется в тестах и как
// временное хранилище.
package memfs

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"AgileKeeper/internal/cli/vfs"
)

// FS файловое хранилище в памяти.
type FS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

var _ vfs.FS = (*FS)(nil)

func New() *FS {
	return &FS{files: map[string][]byte{}, dirs: map[string]bool{"": true}}
}

func (m *FS) Read(_ context.Context, p string) ([]byte, error) {
	p = vfs.Clean(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dirs[p] {
		return nil, vfs.ErrIsDir
	}
	b, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vfs.ErrNotFound, p)
	}
	return append([]byte(nil), b...), nil
}

func (m *FS) Write(_ context.Context, p string, data []byte, opts vfs.WriteOptions) (vfs.FileInfo, error) {
	p = vfs.Clean(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirs[p] {
		return vfs.FileInfo{}, vfs.ErrIsDir
	}
	cur, exists := m.files[p]
	rev := ""
	if exists {
		rev = vfs.Revision(cur)
	}
	if err := vfs.CheckWrite(opts, exists, rev); err != nil {
		return vfs.FileInfo{}, fmt.Errorf("write %s: %w", p, err)
	}
	if !m.dirs[parent(p)] {
		return vfs.FileInfo{}, fmt.Errorf("write %s: %w: parent directory missing", p, vfs.ErrNotFound)
	}
	m.files[p] = append([]byte(nil), data...)
	return fileInfo(p, data), nil
}

func (m *FS) Stat(_ context.Context, p string) (vfs.FileInfo, error) {
	p = vfs.Clean(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dirs[p] {
		return vfs.FileInfo{Name: path.Base(p), Path: p, IsDir: true}, nil
	}
	b, ok := m.files[p]
	if !ok {
		return vfs.FileInfo{}, fmt.Errorf("%w: %s", vfs.ErrNotFound, p)
	}
	return fileInfo(p, b), nil
}

func (m *FS) List(_ context.Context, p string) ([]vfs.FileInfo, error) {
	p = vfs.Clean(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.dirs[p] {
		return nil, fmt.Errorf("%w: %s", vfs.ErrNotFound, p)
	}
	var out []vfs.FileInfo
	for d := range m.dirs {
		if d != "" && d != p && parent(d) == p {
			out = append(out, vfs.FileInfo{Name: path.Base(d), Path: d, IsDir: true})
		}
	}
	for f, b := range m.files {
		if parent(f) == p {
			out = append(out, fileInfo(f, b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *FS) Mkpath(_ context.Context, p string) error {
	p = vfs.Clean(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	for cur := p; ; cur = parent(cur) {
		if _, isFile := m.files[cur]; isFile {
			return fmt.Errorf("mkpath %s: %s is a file", p, cur)
		}
		m.dirs[cur] = true
		if cur == "" {
			return nil
		}
	}
}

func (m *FS) Rm(_ context.Context, p string) error {
	p = vfs.Clean(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; ok {
		delete(m.files, p)
		return nil
	}
	if !m.dirs[p] || p == "" {
		return fmt.Errorf("%w: %s", vfs.ErrNotFound, p)
	}
	prefix := p + "/"
	for f := range m.files {
		if strings.HasPrefix(f, prefix) {
			delete(m.files, f)
		}
	}
	for d := range m.dirs {
		if d == p || strings.HasPrefix(d, prefix) {
			delete(m.dirs, d)
		}
	}
	return nil
}

func parent(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

func fileInfo(p string, b []byte) vfs.FileInfo {
	return vfs.FileInfo{Name: path.Base(p), Path: p, Revision: vfs.Revision(b), Size: int64(len(b))}
}
