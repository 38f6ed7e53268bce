// Package keyagent хранит расшифрованные мастер-ключи в памяти и выполняет
// ими шифрование данных записей. Ключи никогда не сохраняются на диск и
// забываются по блокировке или по таймеру автоблокировки.
package keyagent

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"AgileKeeper/internal/cli/crypto"
	"AgileKeeper/internal/cli/event"
)

// Algorithm определяет схему шифрования данных записи.
type Algorithm string

// AES128OpenSSLKey: AES-128-CBC, ключ и IV из EVP_BytesToKey(masterKey, salt).
const AES128OpenSSLKey Algorithm = "AES128_OpenSSLKey"

// CryptoParams параметры операции шифрования.
type CryptoParams struct {
	Algo Algorithm
}

// DefaultParams параметры, которыми шифруется всё содержимое хранилища.
var DefaultParams = CryptoParams{Algo: AES128OpenSSLKey}

var (
	ErrNoSuchKey            = errors.New("no such key")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrLockedDuringUnlock возвращает AddKeyIf, если ключи были забыты
	// после того, как вызывающий начал разблокировку.
	ErrLockedDuringUnlock = errors.New("keys were forgotten while unlocking")
)

// EventKind тип события агента.
type EventKind int

const (
	EventLocked EventKind = iota
	EventUnlocked
)

// Event уведомление о смене состояния агента.
type Event struct {
	Kind EventKind
}

// Agent потокобезопасный держатель ключей.
type Agent struct {
	mu    sync.RWMutex
	keys  map[string][]byte
	order []string
	// gen увеличивается при каждом ForgetKeys.
	gen uint64

	timeout  time.Duration
	timer    *time.Timer
	timerSeq uint64

	events event.Subject[Event]
	log    *zap.SugaredLogger
}

// New создаёт заблокированного агента без автоблокировки.
func New(log *zap.SugaredLogger) *Agent {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Agent{keys: map[string][]byte{}, log: log}
}

// Subscribe подписывает fn на события блокировки и разблокировки.
func (a *Agent) Subscribe(fn func(Event)) (unsubscribe func()) {
	return a.events.Subscribe(fn)
}

// Generation возвращает текущее поколение ключей. Его нужно запомнить до начала
// долгой разблокировки и передать в AddKeyIf.
func (a *Agent) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gen
}

// AddKey сохраняет копию ключа и перезапускает таймер автоблокировки.
func (a *Agent) AddKey(id string, key []byte) {
	a.mu.Lock()
	wasLocked := len(a.keys) == 0
	a.addLocked(id, key)
	a.mu.Unlock()
	if wasLocked {
		a.events.Publish(Event{Kind: EventUnlocked})
	}
}

// AddKeyIf добавляет ключ, только если с момента gen не было ForgetKeys.
// Так разблокировка, завершившаяся после срабатывания автоблокировки, не
// возвращает старые ключи.
func (a *Agent) AddKeyIf(gen uint64, id string, key []byte) error {
	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		return ErrLockedDuringUnlock
	}
	wasLocked := len(a.keys) == 0
	a.addLocked(id, key)
	a.mu.Unlock()
	if wasLocked {
		a.events.Publish(Event{Kind: EventUnlocked})
	}
	return nil
}

func (a *Agent) addLocked(id string, key []byte) {
	if _, ok := a.keys[id]; !ok {
		a.order = append(a.order, id)
	}
	a.keys[id] = slices.Clone(key)
	a.armLocked()
}

// ListKeyIDs возвращает идентификаторы ключей в порядке добавления.
func (a *Agent) ListKeyIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// HasKey сообщает, известен ли ключ id.
func (a *Agent) HasKey(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.keys[id]
	return ok
}

// ForgetKeys стирает все ключи, останавливает таймер и публикует EventLocked.
func (a *Agent) ForgetKeys() {
	a.mu.Lock()
	a.forgetLocked()
	a.mu.Unlock()
	a.events.Publish(Event{Kind: EventLocked})
}

func (a *Agent) forgetLocked() {
	for _, k := range a.keys {
		crypto.Zero(k)
	}
	a.keys = map[string][]byte{}
	a.order = nil
	a.gen++
	a.stopLocked()
}

// SetAutoLockTimeout задаёт интервал бездействия до автоблокировки; 0 отключает её.
func (a *Agent) SetAutoLockTimeout(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timeout = d
	a.armLocked()
}

// ResetAutoLock откладывает автоблокировку (вызывается при активности пользователя).
func (a *Agent) ResetAutoLock() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armLocked()
}

func (a *Agent) armLocked() {
	a.stopLocked()
	if a.timeout <= 0 || len(a.keys) == 0 {
		return
	}
	seq := a.timerSeq
	a.timer = time.AfterFunc(a.timeout, func() { a.autoLock(seq) })
}

func (a *Agent) stopLocked() {
	a.timerSeq++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Agent) autoLock(seq uint64) {
	a.mu.Lock()
	if seq != a.timerSeq {
		a.mu.Unlock()
		return
	}
	a.forgetLocked()
	a.mu.Unlock()
	a.log.Infow("auto-lock timeout reached, keys forgotten")
	a.events.Publish(Event{Kind: EventLocked})
}

// Encrypt шифрует plain ключом id.
func (a *Agent) Encrypt(id string, plain []byte, params CryptoParams) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	key, err := a.keyLocked(id, params)
	if err != nil {
		return nil, err
	}
	return crypto.EncryptItemData(key, plain)
}

// Decrypt расшифровывает cipherText ключом id.
func (a *Agent) Decrypt(id string, cipherText []byte, params CryptoParams) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	key, err := a.keyLocked(id, params)
	if err != nil {
		return nil, err
	}
	return crypto.DecryptItemData(key, cipherText)
}

func (a *Agent) keyLocked(id string, params CryptoParams) ([]byte, error) {
	if params.Algo != AES128OpenSSLKey {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, params.Algo)
	}
	key, ok := a.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchKey, id)
	}
	return key, nil
}
