package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/DevN0mad/FreedcampMCP/internal/freedcamp"
	"github.com/DevN0mad/FreedcampMCP/internal/server"
	"github.com/DevN0mad/FreedcampMCP/internal/services"
	"github.com/DevN0mad/FreedcampMCP/internal/storage"
)

const envPrefix = "FCMCP"

// Режимы транспорта MCP.
const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
)

// TransportOpts каким транспортом обслуживать MCP клиентов.
type TransportOpts struct {
	Mode string `mapstructure:"mode" validate:"oneof=stdio http"`
}

// Config представляет конфигурацию приложения.
type Config struct {
	Freedcamp   freedcamp.Opts        `mapstructure:"freedcamp"`
	Transport   TransportOpts         `mapstructure:"transport"`
	HTTPServer  server.Opts           `mapstructure:"http_server"`
	Log         LogOpts               `mapstructure:"log"`
	Journal     storage.JournalOpts   `mapstructure:"journal"`
	Report      services.ReportOpts   `mapstructure:"report"`
	Digest      services.DigestOpts   `mapstructure:"digest"`
	TelegramBot services.TelegramOpts `mapstructure:"telegram_bot"`
}

// Manager управляет конфигурацией приложения, обеспечивая загрузку,
// проверку и перечитывание файла при изменении.
type Manager struct {
	mu          sync.RWMutex
	cfg         *Config
	logger      *slog.Logger
	v           *viper.Viper
	subscribers []func(Config)
	validate    *validator.Validate
}

// NewManager создает новый менеджер конфигурации. Путь к файлу необязателен:
// без него настройки берутся из значений по умолчанию и окружения.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	m := &Manager{
		logger:   logger,
		v:        v,
		validate: newValidator(),
	}

	cfg, err := m.load()
	if err != nil {
		logger.Error("Validate config", "error", err)
		return nil, err
	}
	m.cfg = cfg

	if path == "" {
		logger.Info("Config loaded from defaults and environment")
		return m, nil
	}
	logger.Info("Config loaded", "path", path)

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", "name", e.Name, "op", e.Op.String())

		newCfg, err := m.load()
		if err != nil {
			logger.Error("Failed to reload config", "error", err)
			return
		}

		m.mu.Lock()
		m.cfg = newCfg
		subs := append([]func(Config){}, m.subscribers...)
		m.mu.Unlock()

		logger.Info("Config reloaded successfully")

		for _, fn := range subs {
			fn(*newCfg)
		}
	})
	v.WatchConfig()

	return m, nil
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := m.validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Current возвращает текущую конфигурацию.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.cfg
}

// OnChange регистрирует функцию обратного вызова, которая будет вызвана при изменении конфигурации.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("freedcamp.base_url", freedcamp.DefaultBaseURL)
	v.SetDefault("freedcamp.api_key", "")
	v.SetDefault("freedcamp.api_secret", "")
	v.SetDefault("freedcamp.request_timeout", freedcamp.DefaultRequestTimeout)
	v.SetDefault("freedcamp.upload_timeout", freedcamp.DefaultUploadTimeout)
	v.SetDefault("freedcamp.array_style", freedcamp.IndexedArrays.String())
	v.SetDefault("freedcamp.timezone", "UTC")
	v.SetDefault("freedcamp.upload_dir", "")
	v.SetDefault("freedcamp.max_upload_bytes", freedcamp.DefaultMaxUploadBytes)

	v.SetDefault("transport.mode", ModeStdio)

	v.SetDefault("http_server.enabled", false)
	v.SetDefault("http_server.address", "127.0.0.1:8080")
	v.SetDefault("http_server.read_timeout_seconds", 30)
	v.SetDefault("http_server.write_timeout_seconds", 150)
	v.SetDefault("http_server.idle_timeout_seconds", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("journal.path", "")
	v.SetDefault("journal.retention_days", 30)

	v.SetDefault("report.project_ids", []string{})
	v.SetDefault("report.assignee_ids", []string{})
	v.SetDefault("report.include_completed", false)
	v.SetDefault("report.save_dir", "")

	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.hour", 9)
	v.SetDefault("digest.minute", 0)
	v.SetDefault("digest.timezone", "")
	v.SetDefault("digest.scope", "Freedcamp")

	v.SetDefault("telegram_bot.token", "")
	v.SetDefault("telegram_bot.chat_id", 0)
	v.SetDefault("telegram_bot.message", "Freedcamp tasks report")
	v.SetDefault("telegram_bot.api_endpoint", "")
}

// bindEnv включает FCMCP_<SECTION>_<KEY> для любого ключа и короткие имена
// для учетных данных Freedcamp.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("freedcamp.api_key", "FREEDCAMP_API_KEY", envPrefix+"_FREEDCAMP_API_KEY"); err != nil {
		return fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("freedcamp.api_secret", "FREEDCAMP_API_SECRET", envPrefix+"_FREEDCAMP_API_SECRET"); err != nil {
		return fmt.Errorf("bind env: %w", err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateConfig, Config{})
	return v
}

// validateConfig проверки, затрагивающие несколько секций.
func validateConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	if cfg.Digest.Enabled && !cfg.TelegramBot.Configured() {
		sl.ReportError(cfg.TelegramBot, "TelegramBot", "telegram_bot", "required_with_digest", "")
	}
	if cfg.Transport.Mode == ModeHTTP && cfg.HTTPServer.Address == "" {
		sl.ReportError(cfg.HTTPServer.Address, "HTTPServer.Address", "address", "required_for_http", "")
	}
	if cfg.Freedcamp.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Freedcamp.Timezone); err != nil {
			sl.ReportError(cfg.Freedcamp.Timezone, "Freedcamp.Timezone", "timezone", "timezone", "")
		}
	}
}

// IsValidationError ошибка вызвана недопустимыми значениями, а не чтением файла.
func IsValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
