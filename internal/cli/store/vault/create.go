package vault

import (
	"context"
	"errors"
	"fmt"

	"AgileKeeper/internal/cli/codec"
	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/model"
	"AgileKeeper/internal/cli/store"
	"AgileKeeper/internal/cli/vfs"
)

// CreateParams параметры нового сейфа.
type CreateParams struct {
	Password   string
	Hint       string
	Iterations int
}

// CreateVault создаёт сейф в каталоге path: мастер-ключ, зашифрованный
// ключом из пароля, пустой индекс и подсказку. Если сейф уже существует,
// возвращает ErrVaultExists, не изменяя его.
func CreateVault(ctx context.Context, fs vfs.FS, path string, agent *keyagent.Agent, p CreateParams, opts Options) (*Vault, error) {
	if p.Iterations < 1 {
		return nil, fmt.Errorf("create vault: iterations must be positive, got %d", p.Iterations)
	}
	v := Open(fs, path, agent, opts)
	if err := fs.Mkpath(ctx, vfs.Join(v.root, dataDir)); err != nil {
		return nil, fmt.Errorf("create vault: %w", err)
	}

	master, err := crypto.NewMasterKey()
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(master)
	data, validation, err := crypto.WrapMasterKey(ctx, v.deriver, p.Password, master, p.Iterations)
	if err != nil {
		return nil, err
	}
	keys := []model.EncryptionKey{{
		Identifier: crypto.NewUUID(),
		Data:       data,
		Validation: validation,
		Iterations: p.Iterations,
		Level:      model.SecurityLevel5,
	}}
	encoded, err := codec.EncodeKeyList(keys)
	if err != nil {
		return nil, err
	}
	// созданием ключевого файла и определяется, свободен ли путь
	if _, err := fs.Write(ctx, v.dataPath(keysFile), encoded, vfs.WriteOptions{CreateOnly: true}); err != nil {
		if errors.Is(err, vfs.ErrConflict) {
			return nil, fmt.Errorf("%w: %s", ErrVaultExists, path)
		}
		return nil, fmt.Errorf("create vault: %w", err)
	}

	index, err := codec.EncodeContents(nil)
	if err != nil {
		return nil, err
	}
	if _, err := fs.Write(ctx, v.dataPath(contentsFile), index, vfs.WriteOptions{}); err != nil {
		return nil, fmt.Errorf("create vault index: %w", err)
	}
	if err := v.writeHint(ctx, p.Hint); err != nil {
		return nil, err
	}
	v.log.Infow("vault created", "path", v.root, "iterations", p.Iterations)
	return v, nil
}

// ChangePassword перешифровывает все ключи сейфа новым паролем со свежей
// солью. iterations <= 0 сохраняет прежнее число итераций каждого ключа.
// Список ключей пишется одним файлом и только если он не менялся с момента
// чтения, поэтому смеси старых и новых ключей не бывает.
func (v *Vault) ChangePassword(ctx context.Context, oldPassword, newPassword, hint string, iterations int) error {
	keys, rev, err := v.readKeys(ctx)
	if err != nil {
		return err
	}
	if store.KeysLocked(v.agent, keys) {
		return store.ErrLocked
	}

	rewrapped := make([]model.EncryptionKey, 0, len(keys))
	for _, k := range keys {
		master, err := crypto.UnwrapMasterKey(ctx, v.deriver, oldPassword, k.Data, k.Validation, k.Iterations)
		if err != nil {
			return fmt.Errorf("key %s: %w", k.Identifier, err)
		}
		n := k.Iterations
		if iterations > 0 {
			n = iterations
		}
		data, validation, err := crypto.WrapMasterKey(ctx, v.deriver, newPassword, master, n)
		crypto.Zero(master)
		if err != nil {
			return err
		}
		k.Data, k.Validation, k.Iterations = data, validation, n
		rewrapped = append(rewrapped, k)
	}

	encoded, err := codec.EncodeKeyList(rewrapped)
	if err != nil {
		return err
	}
	if _, err := v.fs.Write(ctx, v.dataPath(keysFile), encoded, vfs.WriteOptions{ParentRevision: rev}); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	if err := v.writeHint(ctx, hint); err != nil {
		return err
	}
	v.log.Infow("vault password changed", "path", v.root, "keys", len(rewrapped))
	return nil
}
