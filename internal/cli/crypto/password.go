package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Digits    = "0123456789"
)

// ErrPasswordTooShort возвращается, если в пароле не хватает позиций,
// чтобы поместить хотя бы по одному символу каждого набора.
var ErrPasswordTooShort = errors.New("password length too short for required charsets")

// NewUUID возвращает UUID v4 в верхнем регистре без дефисов (32 символа).
func NewUUID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// GeneratePassword генерирует пароль длиной length, содержащий хотя бы один символ
// из каждого набора charsets (по умолчанию заглавные, строчные и цифры).
// Каждым четвёртым символом вставляется '-', если после него остаётся больше одного символа.
func GeneratePassword(length int, charsets ...string) (string, error) {
	if len(charsets) == 0 {
		charsets = []string{Uppercase, Lowercase, Digits}
	}
	if slots(length) < len(charsets) {
		return "", ErrPasswordTooShort
	}
	alphabet := strings.Join(charsets, "")
	for {
		candidate, err := passwordCandidate(length, alphabet)
		if err != nil {
			return "", err
		}
		if coversAll(candidate, charsets) {
			return candidate, nil
		}
	}
}

func separatorAt(pos, length int) bool {
	return pos%4 == 3 && length-pos > 1
}

func slots(length int) int {
	n := 0
	for pos := 0; pos < length; pos++ {
		if !separatorAt(pos, length) {
			n++
		}
	}
	return n
}

func passwordCandidate(length int, alphabet string) (string, error) {
	var sb strings.Builder
	size := big.NewInt(int64(len(alphabet)))
	for pos := 0; pos < length; pos++ {
		if separatorAt(pos, length) {
			sb.WriteByte('-')
			continue
		}
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}

func coversAll(pw string, charsets []string) bool {
	for _, cs := range charsets {
		if !strings.ContainsAny(pw, cs) {
			return false
		}
	}
	return true
}
