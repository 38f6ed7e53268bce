package commands

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"AgileKeeper/internal/config"
)

// перехват вывода на время теста
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}

// withTempConfig конфигурация клиента, у которой сейф и кэш лежат в temp.
func withTempConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		VaultPath:   filepath.Join(dir, "test.agilekeychain"),
		CacheDriver: config.DriverSQLite,
		CacheDSN:    filepath.Join(dir, "cache.db"),
		Iterations:  10,
		KDFWorkers:  1,
		AutoLock:    time.Minute,
		SyncWorkers: 2,
		LogLevel:    "error",
	}
}

// withPasswords подставляет ответы на запросы пароля по очереди.
func withPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	readPassword = func(string) (string, error) {
		if len(answers) == 0 {
			return "", errors.New("unexpected password prompt")
		}
		pw := answers[0]
		answers = answers[1:]
		return pw, nil
	}
	t.Cleanup(func() {
		readPassword = old
		if len(answers) != 0 {
			t.Errorf("unused password answers: %v", answers)
		}
	})
}
