package crypto

import (
	"context"
	"crypto/subtle"
)

const (
	// DerivedKeyLen длина материала PBKDF2: 16 байт ключа AES и 16 байт IV.
	DerivedKeyLen = 32
	// WrappedKeyLen длина поля data записи ключа: заголовок, соль и шифртекст мастер-ключа.
	WrappedKeyLen = 8 + SaltLen + MasterKeyLen + AESBlockLen
)

// NewMasterKey генерирует случайный мастер-ключ.
func NewMasterKey() ([]byte, error) {
	return RandomBytes(MasterKeyLen)
}

// EncryptKey шифрует мастер-ключ ключом, выведенным из пароля, и строит
// проверочный блок: копию мастер-ключа, зашифрованную им же через OpenSSLKeyIV.
func EncryptKey(derivedKey, masterKey []byte) (encKey, validation []byte, err error) {
	if len(derivedKey) != DerivedKeyLen {
		panic("crypto: derived key must be 32 bytes")
	}
	encKey = AESCBCEncrypt(derivedKey[:16], derivedKey[16:], masterKey)

	salt, err := RandomBytes(SaltLen)
	if err != nil {
		return nil, nil, err
	}
	vKey, vIV := OpenSSLKeyIV(masterKey, salt)
	validation = JoinSalted(salt, AESCBCEncrypt(vKey, vIV, masterKey))
	return encKey, validation, nil
}

// DecryptKey расшифровывает мастер-ключ и сверяет его с проверочным блоком.
// Несовпадение означает неверный пароль.
func DecryptKey(derivedKey, encKey, validation []byte) ([]byte, error) {
	if len(derivedKey) != DerivedKeyLen {
		panic("crypto: derived key must be 32 bytes")
	}
	if len(encKey) == 0 || len(encKey)%AESBlockLen != 0 {
		return nil, corrupt("encrypted key length %d", len(encKey))
	}
	vSalt, vCT, err := SplitSalted(validation)
	if err != nil {
		return nil, err
	}
	if len(vCT) == 0 || len(vCT)%AESBlockLen != 0 {
		return nil, corrupt("validation length %d", len(vCT))
	}

	masterKey, err := AESCBCDecrypt(derivedKey[:16], derivedKey[16:], encKey)
	if err != nil {
		return nil, &DecryptionError{Kind: ErrIncorrectPassword}
	}
	vKey, vIV := OpenSSLKeyIV(masterKey, vSalt)
	check, err := AESCBCDecrypt(vKey, vIV, vCT)
	if err != nil || len(check) != len(masterKey) || subtle.ConstantTimeCompare(check, masterKey) != 1 {
		return nil, &DecryptionError{Kind: ErrIncorrectPassword}
	}
	return masterKey, nil
}

// WrapMasterKey выводит ключ из пароля со свежей солью и возвращает поле data
// ("Salted__" + соль + шифртекст) и проверочный блок.
func WrapMasterKey(ctx context.Context, d Deriver, password string, masterKey []byte, iterations int) (data, validation []byte, err error) {
	salt, err := RandomBytes(SaltLen)
	if err != nil {
		return nil, nil, err
	}
	derived, err := d.Derive(ctx, []byte(password), salt, iterations, DerivedKeyLen)
	if err != nil {
		return nil, nil, err
	}
	encKey, validation, err := EncryptKey(derived, masterKey)
	if err != nil {
		return nil, nil, err
	}
	return JoinSalted(salt, encKey), validation, nil
}

// UnwrapMasterKey обратна WrapMasterKey.
func UnwrapMasterKey(ctx context.Context, d Deriver, password string, data, validation []byte, iterations int) ([]byte, error) {
	if len(data) != WrappedKeyLen {
		return nil, corrupt("unexpected encrypted key length %d", len(data))
	}
	salt, encKey, err := SplitSalted(data)
	if err != nil {
		return nil, err
	}
	derived, err := d.Derive(ctx, []byte(password), salt, iterations, DerivedKeyLen)
	if err != nil {
		return nil, err
	}
	return DecryptKey(derived, encKey, validation)
}

// Zero затирает буфер с ключевым материалом.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
