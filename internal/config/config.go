// Package config loads the ledger's configuration from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyDatabasePath          = "database.path"
	KeyBackupDir             = "backup.dir"
	KeyUserID                = "user.id"
	KeyDisplayCurrency       = "display.currency"
	KeyInterestGateDay       = "interest.gate_day"
	KeyInterestCheckInterval = "interest.check_interval"
	KeyRecentLimit           = "ledger.recent_limit"
	KeyLogLevel              = "logging.level"
	KeyLogFormat             = "logging.format"
)

// Config is the validated application configuration.
type Config struct {
	DatabasePath          string
	BackupDir             string
	UserID                string
	Currency              string
	LogLevel              string
	LogFormat             string
	InterestCheckInterval time.Duration
	InterestGateDay       int
	RecentLimit           int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, "~/.local/share/ledger/ledger.db")
	v.SetDefault(KeyUserID, "local")
	v.SetDefault(KeyDisplayCurrency, money.USD)
	v.SetDefault(KeyInterestGateDay, 30)
	v.SetDefault(KeyInterestCheckInterval, time.Hour)
	v.SetDefault(KeyRecentLimit, 50)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		DatabasePath:          ExpandPath(v.GetString(KeyDatabasePath)),
		BackupDir:             ExpandPath(v.GetString(KeyBackupDir)),
		UserID:                strings.TrimSpace(v.GetString(KeyUserID)),
		Currency:              strings.ToUpper(strings.TrimSpace(v.GetString(KeyDisplayCurrency))),
		LogLevel:              v.GetString(KeyLogLevel),
		LogFormat:             v.GetString(KeyLogFormat),
		InterestCheckInterval: v.GetDuration(KeyInterestCheckInterval),
		InterestGateDay:       v.GetInt(KeyInterestGateDay),
		RecentLimit:           v.GetInt(KeyRecentLimit),
	}

	if cfg.BackupDir == "" && cfg.DatabasePath != "" && cfg.DatabasePath != ":memory:" {
		cfg.BackupDir = filepath.Join(filepath.Dir(cfg.DatabasePath), "backups")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyUserID)
	}
	if strings.ContainsAny(c.UserID, `/\`) || strings.Contains(c.UserID, "..") {
		return fmt.Errorf("%w: %s %q must not contain path separators", common.ErrInvalidConfig, KeyUserID, c.UserID)
	}
	if money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("%w: %s %q is not a currency code", common.ErrInvalidConfig, KeyDisplayCurrency, c.Currency)
	}
	if c.InterestGateDay < 0 || c.InterestGateDay > 31 {
		return fmt.Errorf("%w: %s must be between 0 and 31, got %d", common.ErrInvalidConfig, KeyInterestGateDay, c.InterestGateDay)
	}
	if c.InterestCheckInterval <= 0 {
		return fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyInterestCheckInterval)
	}
	if c.RecentLimit <= 0 {
		return fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyRecentLimit)
	}
	if _, err := common.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: %s %q", common.ErrInvalidConfig, KeyLogFormat, c.LogFormat)
	}
	return nil
}

// ExpandPath expands a leading ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}
