package config

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Драйверы локального кэша.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverGorm   = "gorm"
	DriverMemory = "memory"
)

// DefaultIterations число итераций PBKDF2 для новых сейфов.
const DefaultIterations = 17094

// AppDir каталог приложения внутри XDG data home.
const AppDir = "agilekeeper"

type Config struct {
	VaultPath string `env:"VAULT_PATH"`

	CacheDriver string `env:"CACHE_DRIVER"`
	CacheDSN    string `env:"CACHE_DSN"`

	Iterations  int           `env:"PBKDF2_ITERATIONS"`
	KDFWorkers  int           `env:"PBKDF2_WORKERS"`
	AutoLock    time.Duration `env:"AUTO_LOCK_TIMEOUT"`
	SyncWorkers int           `env:"SYNC_CONCURRENCY"`

	LogLevel string `env:"LOG_LEVEL"`
	Version  bool   `env:"-"` // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		CacheDriver: DriverSQLite,
		Iterations:  DefaultIterations,
		KDFWorkers:  1,
		AutoLock:    15 * time.Minute,
		SyncWorkers: 4,
		LogLevel:    "warn",
	}
	_ = env.Parse(cfg)

	// значения из env становятся значениями флагов по умолчанию, флаг главнее
	flag.StringVar(&cfg.VaultPath, "vault", cfg.VaultPath, "path to the .agilekeychain vault directory")
	flag.StringVar(&cfg.CacheDriver, "cache-driver", cfg.CacheDriver, "local cache backend: sqlite, bolt, gorm or memory")
	flag.StringVar(&cfg.CacheDSN, "cache", cfg.CacheDSN, "cache file path (sqlite, bolt) or DSN (gorm)")
	flag.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "PBKDF2 iterations for new vaults and password changes")
	flag.IntVar(&cfg.KDFWorkers, "kdf-workers", cfg.KDFWorkers, "goroutines used for PBKDF2 blocks")
	flag.DurationVar(&cfg.AutoLock, "autolock", cfg.AutoLock, "forget keys after this idle time (0 disables)")
	flag.IntVar(&cfg.SyncWorkers, "sync-workers", cfg.SyncWorkers, "items synced concurrently")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	// Defaults
	if cfg.VaultPath == "" {
		cfg.VaultPath = filepath.Join(xdg.DataHome, AppDir, "vault.agilekeychain")
	}
	if cfg.CacheDSN == "" {
		cfg.CacheDSN = DefaultCacheDSN(cfg.CacheDriver)
	}

	return cfg
}

// DefaultCacheDSN путь к кэшу по умолчанию для драйвера.
func DefaultCacheDSN(driver string) string {
	switch driver {
	case DriverBolt:
		return filepath.Join(xdg.DataHome, AppDir, "cache.bolt")
	case DriverGorm:
		return filepath.Join(xdg.DataHome, AppDir, "cache-gorm.db")
	case DriverMemory:
		return ""
	default:
		return filepath.Join(xdg.DataHome, AppDir, "cache.db")
	}
}

// Validate проверяет значения, которые нельзя исправить молча.
func (c *Config) Validate() error {
	var errs []error
	switch c.CacheDriver {
	case DriverSQLite, DriverBolt, DriverGorm, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.CacheDriver))
	}
	if c.Iterations < 1 {
		errs = append(errs, fmt.Errorf("iterations must be positive, got %d", c.Iterations))
	}
	if c.KDFWorkers < 1 {
		errs = append(errs, fmt.Errorf("kdf workers must be positive, got %d", c.KDFWorkers))
	}
	if c.SyncWorkers < 1 {
		errs = append(errs, fmt.Errorf("sync workers must be positive, got %d", c.SyncWorkers))
	}
	if c.AutoLock < 0 {
		errs = append(errs, fmt.Errorf("autolock timeout must not be negative, got %s", c.AutoLock))
	}
	return errors.Join(errs...)
}
