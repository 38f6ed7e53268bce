package crypto

import (
	"bytes"
	"crypto/md5"
	"fmt"
)

// saltedPrefix заголовок блобов в формате `openssl enc -salt`.
var saltedPrefix = []byte("Salted__")

// MasterKeyLen длина расшифрованного мастер-ключа хранилища.
const MasterKeyLen = 1024

// OpenSSLKeyIV повторяет EVP_BytesToKey с MD5 из OpenSSL:
// key = MD5(password+salt), iv = MD5(key+password+salt).
func OpenSSLKeyIV(password, salt []byte) (key, iv []byte) {
	data := make([]byte, 0, len(password)+len(salt))
	data = append(data, password...)
	data = append(data, salt...)
	k := md5.Sum(data)
	i := md5.Sum(append(k[:], data...))
	return k[:], i[:]
}

// JoinSalted собирает блоб "Salted__" + salt + ciphertext.
func JoinSalted(salt, ciphertext []byte) []byte {
	out := make([]byte, 0, len(saltedPrefix)+len(salt)+len(ciphertext))
	out = append(out, saltedPrefix...)
	out = append(out, salt...)
	return append(out, ciphertext...)
}

// SplitSalted разбирает блоб "Salted__" + salt(8) + ciphertext.
func SplitSalted(blob []byte) (salt, ciphertext []byte, err error) {
	if len(blob) < len(saltedPrefix)+SaltLen {
		return nil, nil, corrupt("salted blob too short (%d bytes)", len(blob))
	}
	if !bytes.Equal(blob[:len(saltedPrefix)], saltedPrefix) {
		return nil, nil, corrupt("missing Salted__ header")
	}
	rest := blob[len(saltedPrefix):]
	return rest[:SaltLen], rest[SaltLen:], nil
}

// EncryptItemData шифрует данные записи ключом хранилища: ключ и IV AES
// выводятся через OpenSSLKeyIV из мастер-ключа и свежей соли.
func EncryptItemData(masterKey, plain []byte) ([]byte, error) {
	if len(masterKey) != MasterKeyLen {
		return nil, fmt.Errorf("unexpected item key length %d, expected %d", len(masterKey), MasterKeyLen)
	}
	salt, err := RandomBytes(SaltLen)
	if err != nil {
		return nil, err
	}
	key, iv := OpenSSLKeyIV(masterKey, salt)
	return JoinSalted(salt, AESCBCEncrypt(key, iv, plain)), nil
}

// DecryptItemData обратна EncryptItemData.
func DecryptItemData(masterKey, blob []byte) ([]byte, error) {
	if len(masterKey) != MasterKeyLen {
		return nil, fmt.Errorf("unexpected item key length %d, expected %d", len(masterKey), MasterKeyLen)
	}
	salt, ct, err := SplitSalted(blob)
	if err != nil {
		return nil, err
	}
	key, iv := OpenSSLKeyIV(masterKey, salt)
	return AESCBCDecrypt(key, iv, ct)
}
