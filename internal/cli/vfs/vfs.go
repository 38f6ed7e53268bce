// Package vfs описывает байтовое файловое хранилище, поверх которого работает
// хранилище Agile Keychain: локальный диск, память или удалённый сервис.
// Пути разделяются '/' и считаются относительно корня хранилища.
package vfs

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"path"
	"strings"
)

var (
	ErrNotFound = errors.New("file not found")
	// ErrConflict: файл уже существует при CreateOnly или его ревизия
	// не совпала с ParentRevision.
	ErrConflict = errors.New("revision conflict")
	ErrAuth     = errors.New("storage authentication failed")
	ErrIsDir    = errors.New("path is a directory")
)

// FileInfo описание файла или каталога.
type FileInfo struct {
	Name     string
	Path     string
	Revision string
	IsDir    bool
	Size     int64
}

// WriteOptions параметры записи.
type WriteOptions struct {
	// ParentRevision, если задана, должна совпадать с текущей ревизией файла.
	ParentRevision string
	// CreateOnly запрещает перезапись существующего файла.
	CreateOnly bool
}

// FS байтовое файловое хранилище.
type FS interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte, opts WriteOptions) (FileInfo, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
	List(ctx context.Context, path string) ([]FileInfo, error)
	Mkpath(ctx context.Context, path string) error
	// Rm удаляет файл или каталог; для отсутствующего пути возвращает ErrNotFound.
	Rm(ctx context.Context, path string) error
}

// Revision ревизия содержимого: меняется тогда и только тогда, когда меняются байты.
func Revision(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Clean нормализует путь: без ведущего '/', без "..", выходящих за корень.
func Clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Join склеивает части пути.
func Join(parts ...string) string {
	return Clean(path.Join(parts...))
}

// CheckWrite проверяет WriteOptions против текущей ревизии (exists=false, если файла нет).
func CheckWrite(opts WriteOptions, exists bool, current string) error {
	if opts.CreateOnly && exists {
		return ErrConflict
	}
	if opts.ParentRevision != "" && (!exists || current != opts.ParentRevision) {
		return ErrConflict
	}
	return nil
}
