package keyagent

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte { return bytes.Repeat([]byte{b}, 1024) }

func TestAgent_EncryptDecrypt(t *testing.T) {
	a := New(nil)
	a.AddKey("K1", testKey(1))

	ct, err := a.Encrypt("K1", []byte("secret"), DefaultParams)
	require.NoError(t, err)
	plain, err := a.Decrypt("K1", ct, DefaultParams)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plain))

	_, err = a.Decrypt("missing", ct, DefaultParams)
	assert.ErrorIs(t, err, ErrNoSuchKey)

	_, err = a.Encrypt("K1", []byte("x"), CryptoParams{Algo: "ROT13"})
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestAgent_ListAndForget(t *testing.T) {
	a := New(nil)
	var events []EventKind
	a.Subscribe(func(e Event) { events = append(events, e.Kind) })

	a.AddKey("B", testKey(2))
	a.AddKey("A", testKey(3))
	assert.Equal(t, []string{"B", "A"}, a.ListKeyIDs())
	assert.True(t, a.HasKey("A"))

	ct, err := a.Encrypt("A", []byte("x"), DefaultParams)
	require.NoError(t, err)

	a.ForgetKeys()
	assert.Empty(t, a.ListKeyIDs())
	_, err = a.Decrypt("A", ct, DefaultParams)
	assert.ErrorIs(t, err, ErrNoSuchKey)
	assert.Equal(t, []EventKind{EventUnlocked, EventLocked}, events)
}

func TestAgent_AddKeyCopiesInput(t *testing.T) {
	a := New(nil)
	key := testKey(7)
	a.AddKey("K", key)
	ct, err := a.Encrypt("K", []byte("data"), DefaultParams)
	require.NoError(t, err)

	key[0] = 0xFF
	plain, err := a.Decrypt("K", ct, DefaultParams)
	require.NoError(t, err)
	assert.Equal(t, "data", string(plain))
}

func TestAgent_AutoLock(t *testing.T) {
	a := New(nil)
	locked := make(chan struct{}, 1)
	a.Subscribe(func(e Event) {
		if e.Kind == EventLocked {
			locked <- struct{}{}
		}
	})
	a.SetAutoLockTimeout(20 * time.Millisecond)
	a.AddKey("K", testKey(1))

	select {
	case <-locked:
	case <-time.After(2 * time.Second):
		t.Fatal("auto-lock did not fire")
	}
	assert.False(t, a.HasKey("K"))
}

func TestAgent_AutoLockDisabled(t *testing.T) {
	a := New(nil)
	a.SetAutoLockTimeout(0)
	a.AddKey("K", testKey(1))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, a.HasKey("K"))
}

func TestAgent_ResetPostponesAutoLock(t *testing.T) {
	a := New(nil)
	a.SetAutoLockTimeout(150 * time.Millisecond)
	a.AddKey("K", testKey(1))
	for i := 0; i < 4; i++ {
		time.Sleep(50 * time.Millisecond)
		a.ResetAutoLock()
	}
	assert.True(t, a.HasKey("K"))
}

func TestAgent_UnlockRacingWithLock(t *testing.T) {
	a := New(nil)
	gen := a.Generation()
	// ключи забыты, пока шла "долгая" разблокировка
	a.ForgetKeys()
	err := a.AddKeyIf(gen, "K", testKey(1))
	assert.ErrorIs(t, err, ErrLockedDuringUnlock)
	assert.False(t, a.HasKey("K"))

	require.NoError(t, a.AddKeyIf(a.Generation(), "K", testKey(1)))
	assert.True(t, a.HasKey("K"))
}

func TestAgent_ConcurrentAccess(t *testing.T) {
	a := New(nil)
	a.AddKey("K", testKey(9))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				ct, err := a.Encrypt("K", []byte("v"), DefaultParams)
				if err != nil {
					assert.ErrorIs(t, err, ErrNoSuchKey)
					continue
				}
				_, _ = a.Decrypt("K", ct, DefaultParams)
			}
		}()
	}
	a.ForgetKeys()
	wg.Wait()
	assert.Empty(t, a.ListKeyIDs())
}
