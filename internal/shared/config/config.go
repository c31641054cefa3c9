package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"

	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

type Config struct {
	TelegramBotToken string `koanf:"telegram_bot_token"`
	TelegramChatID   string `koanf:"telegram_chat_id"`
	TelegramAPIURL   string `koanf:"telegram_api_url"`

	StoragePath   string        `koanf:"storage_path"`
	StorageDriver StorageDriver `koanf:"storage_driver"`
	SQLiteDSN     string        `koanf:"sqlite_dsn"`
	PostgresURL   string        `koanf:"postgres_url"`

	HTTPPort string `koanf:"http_port"`

	ScanInterval       int    `koanf:"scan_interval"`
	DefaultCountry     string `koanf:"default_country"`
	Timezone           string `koanf:"timezone"`
	PauseOnAppointment bool   `koanf:"pause_on_appointment"`
	StatusReportEvery  int    `koanf:"status_report_every"`

	SettingsSecret     string `koanf:"settings_secret"`
	VFSEmail           string `koanf:"vfs_email"`
	VFSPassword        string `koanf:"vfs_password"`
	Headless           bool   `koanf:"headless"`
	AntiDetection      bool   `koanf:"anti_detection"`
	SessionPersistence bool   `koanf:"session_persistence"`

	AllowedUsers []int64 `koanf:"allowed_users"`
	AppEnv       AppEnv  `koanf:"app_env"`
}

// secretFiles are dotenv files loaded before the environment provider.
// Variables already present in the environment win.
var secretFiles = []string{
	"config/secrets.env",
	".env",
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	dotenvFiles := lo.Filter(secretFiles, func(file string, _ int) bool {
		_, err := os.Stat(file)
		return err == nil
	})
	if len(dotenvFiles) > 0 {
		if err := godotenv.Load(dotenvFiles...); err != nil {
			return nil, oops.With("files", dotenvFiles, "context", "loading dotenv files").Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	if !k.Exists("telegram_api_url") {
		k.Set("telegram_api_url", "https://api.telegram.org")
	}
	if !k.Exists("storage_path") {
		k.Set("storage_path", "./data")
	}
	if !k.Exists("storage_driver") {
		k.Set("storage_driver", string(StorageDriverFile))
	}
	if !k.Exists("sqlite_dsn") {
		k.Set("sqlite_dsn", filepath.Join(k.String("storage_path"), "history.db"))
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("scan_interval") {
		k.Set("scan_interval", 300)
	}
	if !k.Exists("default_country") {
		k.Set("default_country", "netherlands")
	}
	if !k.Exists("timezone") {
		k.Set("timezone", "Europe/Istanbul")
	}
	if !k.Exists("pause_on_appointment") {
		k.Set("pause_on_appointment", true)
	}
	if !k.Exists("status_report_every") {
		k.Set("status_report_every", 20)
	}
	if !k.Exists("headless") {
		k.Set("headless", true)
	}
	if !k.Exists("anti_detection") {
		k.Set("anti_detection", true)
	}
	if !k.Exists("session_persistence") {
		k.Set("session_persistence", false)
	}
	if !k.Exists("app_env") {
		k.Set("app_env", "production")
	}

	// allowed_users is parsed by hand below; koanf cannot decode a
	// comma separated env string into []int64.
	allowedUsers := k.Get("allowed_users")
	k.Delete("allowed_users")

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	switch v := allowedUsers.(type) {
	case string:
		cfg.AllowedUsers = ParseAllowedUsers(v)
	case []interface{}:
		cfg.AllowedUsers = lo.FilterMap(v, func(item interface{}, _ int) (int64, bool) {
			switch val := item.(type) {
			case int64:
				return val, true
			case int:
				return int64(val), true
			case float64:
				return int64(val), true
			default:
				return 0, false
			}
		})
	}

	if appEnvStr := k.String("app_env"); appEnvStr != "" {
		if env, err := ParseAppEnv(appEnvStr); err == nil {
			cfg.AppEnv = env
		} else {
			cfg.AppEnv = AppEnvProduction
		}
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	driver, err := ParseStorageDriver(k.String("storage_driver"))
	if err != nil {
		return nil, oops.With("storage_driver", k.String("storage_driver")).Wrap(err)
	}
	cfg.StorageDriver = driver

	if cfg.StorageDriver == StorageDriverPostgres && cfg.PostgresURL == "" {
		return nil, apperrors.ErrMissingPostgresURL
	}

	return &cfg, nil
}

// TelegramEnabled reports whether a bot token is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// ParseAllowedUsers parses comma-separated user IDs string into []int64
func ParseAllowedUsers(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			return id, true
		}
		return 0, false
	})
}
