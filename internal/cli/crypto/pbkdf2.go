package crypto

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/sync/errgroup"
)

// SHA1Len размер выхода HMAC-SHA1, то есть одного блока PBKDF2.
const SHA1Len = sha1.Size

// DeriveKey вычисляет PBKDF2-HMAC-SHA1 целиком.
func DeriveKey(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha1.New)
}

// DeriveBlock вычисляет один блок PBKDF2 (index начинается с 1).
// Результат совпадает с соответствующим отрезком вывода DeriveKey.
func DeriveBlock(password, salt []byte, iterations, index int) []byte {
	prf := hmac.New(sha1.New, password)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(index))
	prf.Write(salt)
	prf.Write(idx[:])
	u := prf.Sum(nil)
	t := make([]byte, len(u))
	copy(t, u)
	for n := 2; n <= iterations; n++ {
		prf.Reset()
		prf.Write(u)
		u = prf.Sum(u[:0])
		for i := range t {
			t[i] ^= u[i]
		}
	}
	return t
}

// Deriver выполняет PBKDF2, распределяя блоки по Workers горутинам.
// При Workers <= 1 ключ считается целиком в текущей горутине.
type Deriver struct {
	Workers int
}

// Derive возвращает keyLen байт PBKDF2-HMAC-SHA1. Параллелизм не влияет на результат.
func (d Deriver) Derive(ctx context.Context, password, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("pbkdf2: iterations must be positive, got %d", iterations)
	}
	blocks := (keyLen + SHA1Len - 1) / SHA1Len
	if d.Workers <= 1 || blocks == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return DeriveKey(password, salt, iterations, keyLen), nil
	}

	out := make([][]byte, blocks)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)
	for i := 0; i < blocks; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = DeriveBlock(password, salt, iterations, i+1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	key := make([]byte, 0, blocks*SHA1Len)
	for _, b := range out {
		key = append(key, b...)
	}
	return key[:keyLen], nil
}
