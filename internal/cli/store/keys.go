package store

import (
	"context"
	"errors"
	"fmt"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/keyagent"
	"AgileKeeper/internal/cli/model"
)

// UnlockKeys расшифровывает ключи паролем и передаёт их агенту. gen берётся
// у агента до начала разблокировки: если за время PBKDF2 агент успел
// заблокироваться, ключи не добавляются. Ключи попадают в агента, только
// если расшифрованы все.
func UnlockKeys(ctx context.Context, agent *keyagent.Agent, d crypto.Deriver, gen uint64, password string, keys []model.EncryptionKey) error {
	if len(keys) == 0 {
		return errors.New("no encryption keys to unlock")
	}
	masters := make([][]byte, 0, len(keys))
	defer func() {
		for _, m := range masters {
			crypto.Zero(m)
		}
	}()
	for _, k := range keys {
		master, err := crypto.UnwrapMasterKey(ctx, d, password, k.Data, k.Validation, k.Iterations)
		if err != nil {
			return fmt.Errorf("unlock key %s: %w", k.Identifier, err)
		}
		masters = append(masters, master)
	}
	for i, k := range keys {
		if err := agent.AddKeyIf(gen, k.Identifier, masters[i]); err != nil {
			return err
		}
	}
	return nil
}

// KeysLocked истинно, если хотя бы одного из ключей нет в агенте.
func KeysLocked(agent *keyagent.Agent, keys []model.EncryptionKey) bool {
	if len(keys) == 0 {
		return true
	}
	for _, k := range keys {
		if !agent.HasKey(k.Identifier) {
			return true
		}
	}
	return false
}

// PrimaryKeyID ключ, которым шифруются записи: уровня SL5, иначе первый в списке.
func PrimaryKeyID(keys []model.EncryptionKey) string {
	for _, k := range keys {
		if k.Level == model.SecurityLevel5 {
			return k.Identifier
		}
	}
	if len(keys) > 0 {
		return keys[0].Identifier
	}
	return ""
}

// AgentErr переводит отсутствие ключа в агенте в ErrLocked.
func AgentErr(err error) error {
	if errors.Is(err, keyagent.ErrNoSuchKey) {
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return err
}
