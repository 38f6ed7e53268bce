// Package crypto содержит криптографические примитивы формата Agile Keychain:
// PBKDF2-HMAC-SHA1, AES-128-CBC с PKCS7, совместимое с OpenSSL получение ключа и IV,
// обёртку мастер-ключей и шифрование данных записей.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// AESKeyLen длина ключа AES-128 (в байтах).
	AESKeyLen = 16
	// AESBlockLen длина блока AES.
	AESBlockLen = 16
	// SaltLen длина соли в блобах "Salted__".
	SaltLen = 8
)

var (
	// ErrIncorrectPassword возвращается, если проверочный блок не совпал с ключом.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrCorrupt возвращается для повреждённого или неполного шифртекста.
	ErrCorrupt = errors.New("corrupt ciphertext")
)

// DecryptionError описывает неудачную расшифровку. Kind равен ErrIncorrectPassword
// или ErrCorrupt, что позволяет отличить неверный пароль от испорченного хранилища.
type DecryptionError struct {
	Kind error
	Msg  string
}

func (e *DecryptionError) Error() string {
	if e.Msg == "" {
		return "decryption failed: " + e.Kind.Error()
	}
	return fmt.Sprintf("decryption failed: %s: %s", e.Kind, e.Msg)
}

func (e *DecryptionError) Unwrap() error { return e.Kind }

func corrupt(format string, args ...any) error {
	return &DecryptionError{Kind: ErrCorrupt, Msg: fmt.Sprintf(format, args...)}
}

// RandomBytes возвращает n криптографически стойких случайных байт.
// Запасного слабого генератора нет: при отказе источника возвращается ошибка.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("secure random source unavailable: %w", err)
	}
	return b, nil
}

// AESCBCEncrypt шифрует plain в режиме AES-128-CBC с дополнением PKCS7.
// Ключ и IV обязаны быть длиной 16 байт, иначе это ошибка программиста.
func AESCBCEncrypt(key, iv, plain []byte) []byte {
	block := newAES(key, iv)
	padded := pkcs7Pad(plain)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

// AESCBCDecrypt расшифровывает ciphertext и снимает дополнение PKCS7.
func AESCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block := newAES(key, iv)
	if len(ciphertext) == 0 || len(ciphertext)%AESBlockLen != 0 {
		return nil, corrupt("ciphertext length %d is not a positive multiple of %d", len(ciphertext), AESBlockLen)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func newAES(key, iv []byte) cipher.Block {
	if len(key) != AESKeyLen {
		panic(fmt.Sprintf("crypto: AES key must be %d bytes, got %d", AESKeyLen, len(key)))
	}
	if len(iv) != AESBlockLen {
		panic(fmt.Sprintf("crypto: AES IV must be %d bytes, got %d", AESBlockLen, len(iv)))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	return block
}

func pkcs7Pad(data []byte) []byte {
	n := AESBlockLen - len(data)%AESBlockLen
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > AESBlockLen || n > len(data) {
		return nil, corrupt("invalid padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, corrupt("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
