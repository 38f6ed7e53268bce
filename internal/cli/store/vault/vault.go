// Package vault реализует store.Store поверх сейфа в формате Agile Keychain,
// лежащего в произвольном vfs.FS.
package vault

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"AgileKeeper/internal/cli/codec"
	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/event"
	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
	"AgileKeeper/internal/cli/vfs"
)

const (
	dataDir      = "data/default"
	keysFile     = "encryptionKeys.js"
	contentsFile = "contents.js"
	hintFile     = ".password.hint"
	itemSuffix   = ".1password"
)

var itemFileRe = regexp.MustCompile(`^[0-9A-Fa-f]{32}\.1password$`)

// ErrVaultExists по указанному пути уже есть сейф.
var ErrVaultExists = errors.New("vault already exists")

// Options необязательные параметры сейфа.
type Options struct {
	// Deriver управляет параллелизмом PBKDF2 при разблокировке.
	Deriver crypto.Deriver
	Logger  *zap.SugaredLogger
}

// Vault сейф Agile Keychain.
type Vault struct {
	fs      vfs.FS
	root    string
	agent   *keyagent.Agent
	deriver crypto.Deriver
	log     *zap.SugaredLogger

	updates event.Subject[*model.Item]

	mu    sync.Mutex
	keyID string

	index indexWriter
}

var _ store.Store = (*Vault)(nil)

// Open возвращает сейф, расположенный в каталоге root файлового хранилища fs.
// Файлы не читаются до первой операции.
func Open(fs vfs.FS, root string, agent *keyagent.Agent, opts Options) *Vault {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	v := &Vault{fs: fs, root: vfs.Clean(root), agent: agent, deriver: opts.Deriver, log: log}
	v.index.vault = v
	return v
}

// Root путь сейфа внутри файлового хранилища.
func (v *Vault) Root() string { return v.root }

func (v *Vault) dataPath(name string) string { return vfs.Join(v.root, dataDir, name) }

func (v *Vault) itemPath(uuid string) string { return v.dataPath(uuid + itemSuffix) }

// readKeys читает encryptionKeys.js и возвращает ключи и ревизию файла.
func (v *Vault) readKeys(ctx context.Context) ([]model.EncryptionKey, string, error) {
	path := v.dataPath(keysFile)
	info, err := v.fs.Stat(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("stat key file: %w", err)
	}
	data, err := v.fs.Read(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("read key file: %w", err)
	}
	keys, err := codec.DecodeKeyList(data)
	if err != nil {
		return nil, "", err
	}
	return keys, info.Revision, nil
}

// Unlock расшифровывает все ключи сейфа. Неверный пароль даёт
// crypto.DecryptionError с ErrIncorrectPassword; ключи попадают в агента,
// только если все расшифрованы успешно.
func (v *Vault) Unlock(ctx context.Context, password string) error {
	gen := v.agent.Generation()
	keys, _, err := v.readKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("vault %s has no encryption keys", v.root)
	}
	return store.UnlockKeys(ctx, v.agent, v.deriver, gen, password, keys)
}

func (v *Vault) Lock() {
	v.agent.ForgetKeys()
}

func (v *Vault) IsLocked(ctx context.Context) (bool, error) {
	keys, _, err := v.readKeys(ctx)
	if err != nil {
		return true, err
	}
	return store.KeysLocked(v.agent, keys), nil
}

// encryptionKeyID возвращает идентификатор ключа, которым шифруются записи:
// ключ уровня SL5, а при его отсутствии первый в списке.
func (v *Vault) encryptionKeyID(ctx context.Context) (string, error) {
	v.mu.Lock()
	id := v.keyID
	v.mu.Unlock()
	if id != "" {
		return id, nil
	}
	keys, _, err := v.readKeys(ctx)
	if err != nil {
		return "", err
	}
	id = store.PrimaryKeyID(keys)
	if id == "" {
		return "", fmt.Errorf("vault %s has no encryption keys", v.root)
	}
	v.mu.Lock()
	v.keyID = id
	v.mu.Unlock()
	return id, nil
}

func (v *Vault) ListKeys(ctx context.Context) ([]model.EncryptionKey, error) {
	keys, _, err := v.readKeys(ctx)
	return keys, err
}

// SaveKeys перезаписывает список ключей и подсказку пароля.
func (v *Vault) SaveKeys(ctx context.Context, keys []model.EncryptionKey, hint string) error {
	data, err := codec.EncodeKeyList(keys)
	if err != nil {
		return err
	}
	if _, err := v.fs.Write(ctx, v.dataPath(keysFile), data, vfs.WriteOptions{}); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	v.mu.Lock()
	v.keyID = ""
	v.mu.Unlock()
	return v.writeHint(ctx, hint)
}

func (v *Vault) writeHint(ctx context.Context, hint string) error {
	if _, err := v.fs.Write(ctx, v.dataPath(hintFile), []byte(hint), vfs.WriteOptions{}); err != nil {
		return fmt.Errorf("write password hint: %w", err)
	}
	return nil
}

// PasswordHint возвращает подсказку; отсутствие файла подсказки не ошибка.
func (v *Vault) PasswordHint(ctx context.Context) (string, error) {
	data, err := v.fs.Read(ctx, v.dataPath(hintFile))
	if errors.Is(err, vfs.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Clear не поддерживается: сейф не удаляется через API хранилища.
func (v *Vault) Clear(context.Context) error {
	return fmt.Errorf("clear vault: %w", store.ErrUnsupported)
}

func (v *Vault) OnItemUpdated(fn func(*model.Item)) (unsubscribe func()) {
	return v.updates.Subscribe(fn)
}
