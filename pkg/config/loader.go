package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "NETSIMPLEX_"
	configEnvVar = "CONFIG_PATH"
)

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/netsimplex/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix устанавливает префикс переменных окружения
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables (самый высокий)
func (l *Loader) Load() (*Config, error) {
	// 1. Загружаем значения по умолчанию
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Загружаем из файла конфигурации
	if err := l.loadConfigFile(); err != nil {
		// Файл не обязателен, логируем warning
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// 3. Загружаем из переменных окружения (перезаписывают файл)
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	// 4. Распаковываем в структуру
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Валидируем
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "simplex-svc",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// GRPC
		"grpc.port":                               50051,
		"grpc.max_recv_msg_size":                  16 * 1024 * 1024,
		"grpc.max_send_msg_size":                  16 * 1024 * 1024,
		"grpc.max_concurrent_conn":                1000,
		"grpc.shutdown_timeout":                   10 * time.Second,
		"grpc.keepalive.max_connection_idle":      15 * time.Minute,
		"grpc.keepalive.max_connection_age":       30 * time.Minute,
		"grpc.keepalive.max_connection_age_grace": 5 * time.Minute,
		"grpc.keepalive.time":                     5 * time.Minute,
		"grpc.keepalive.timeout":                  20 * time.Second,
		"grpc.tls.enabled":                        false,

		// HTTP
		"http.enabled":       false,
		"http.port":          8080,
		"http.read_timeout":  30 * time.Second,
		"http.write_timeout": 30 * time.Second,

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "netsimplex",
		"metrics.subsystem": "",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "simplex-svc",
		"tracing.sample_rate":  0.1,

		// Database
		"database.enabled":            false,
		"database.driver":             "postgres",
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "netsimplex",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		// Cache
		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": time.Hour,
		"cache.max_entries": 1000,

		// Kernel
		"kernel.nodes":            64,
		"kernel.arcs":             256,
		"kernel.seed":             uint32(0xCAFEBABE),
		"kernel.iterations":       50,
		"kernel.refresh_interval": 10,
		"kernel.mode":             "reference",
		"kernel.carry_state":      false,
		"kernel.prime_potentials": false,

		// Bench
		"bench.warmup_runs":       2,
		"bench.measure_runs":      5,
		"bench.verify":            true,
		"bench.verbose":           false,
		"bench.expected_checksum": 0,
		"bench.output":            "human",
		"bench.timeout":           0,

		// Client
		"client.host":          "localhost",
		"client.port":          50051,
		"client.timeout":       30 * time.Second,
		"client.max_retries":   3,
		"client.retry_backoff": 100 * time.Millisecond,
		"client.tls":           false,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile загружает конфигурацию из файла
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv загружает конфигурацию из переменных окружения
// Использует умную трансформацию ключей для полей с подчёркиванием
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		// Убираем префикс и приводим к нижнему регистру
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))

		// Маппинг для полей с подчёркиванием в именах
		if mappedKey, ok := envKeyMappings[key]; ok {
			key = mappedKey
		} else {
			// По умолчанию заменяем все подчёркивания на точки
			key = strings.ReplaceAll(key, "_", ".")
		}

		// Для slice-полей разбиваем по запятой
		if isSliceField(key) {
			return key, splitAndTrim(value)
		}

		return key, value
	}), nil)
}

// envKeyMappings - маппинг переменных окружения на ключи конфига
// Необходим для полей, содержащих подчёркивания в именах
var envKeyMappings = map[string]string{
	// App
	"app_name":        "app.name",
	"app_version":     "app.version",
	"app_environment": "app.environment",
	"app_debug":       "app.debug",

	// Database
	"database_enabled":            "database.enabled",
	"database_driver":             "database.driver",
	"database_host":               "database.host",
	"database_port":               "database.port",
	"database_database":           "database.database",
	"database_username":           "database.username",
	"database_password":           "database.password",
	"database_ssl_mode":           "database.ssl_mode",
	"database_max_open_conns":     "database.max_open_conns",
	"database_max_idle_conns":     "database.max_idle_conns",
	"database_conn_max_lifetime":  "database.conn_max_lifetime",
	"database_conn_max_idle_time": "database.conn_max_idle_time",
	"database_auto_migrate":       "database.auto_migrate",

	// Cache
	"cache_enabled":     "cache.enabled",
	"cache_driver":      "cache.driver",
	"cache_host":        "cache.host",
	"cache_port":        "cache.port",
	"cache_password":    "cache.password",
	"cache_db":          "cache.db",
	"cache_default_ttl": "cache.default_ttl",
	"cache_max_entries": "cache.max_entries",

	// HTTP
	"http_enabled":       "http.enabled",
	"http_port":          "http.port",
	"http_read_timeout":  "http.read_timeout",
	"http_write_timeout": "http.write_timeout",

	// GRPC
	"grpc_port":                               "grpc.port",
	"grpc_max_recv_msg_size":                  "grpc.max_recv_msg_size",
	"grpc_max_send_msg_size":                  "grpc.max_send_msg_size",
	"grpc_max_concurrent_conn":                "grpc.max_concurrent_conn",
	"grpc_shutdown_timeout":                   "grpc.shutdown_timeout",
	"grpc_keepalive_max_connection_idle":      "grpc.keepalive.max_connection_idle",
	"grpc_keepalive_max_connection_age":       "grpc.keepalive.max_connection_age",
	"grpc_keepalive_max_connection_age_grace": "grpc.keepalive.max_connection_age_grace",
	"grpc_keepalive_time":                     "grpc.keepalive.time",
	"grpc_keepalive_timeout":                  "grpc.keepalive.timeout",
	"grpc_tls_enabled":                        "grpc.tls.enabled",
	"grpc_tls_cert_file":                      "grpc.tls.cert_file",
	"grpc_tls_key_file":                       "grpc.tls.key_file",
	"grpc_tls_ca_file":                        "grpc.tls.ca_file",

	// Log
	"log_level":       "log.level",
	"log_format":      "log.format",
	"log_output":      "log.output",
	"log_file_path":   "log.file_path",
	"log_max_size":    "log.max_size",
	"log_max_backups": "log.max_backups",
	"log_max_age":     "log.max_age",
	"log_compress":    "log.compress",

	// Metrics / Tracing
	"metrics_enabled":      "metrics.enabled",
	"metrics_port":         "metrics.port",
	"metrics_path":         "metrics.path",
	"metrics_namespace":    "metrics.namespace",
	"tracing_enabled":      "tracing.enabled",
	"tracing_endpoint":     "tracing.endpoint",
	"tracing_service_name": "tracing.service_name",
	"tracing_sample_rate":  "tracing.sample_rate",

	// Kernel
	"kernel_nodes":            "kernel.nodes",
	"kernel_arcs":             "kernel.arcs",
	"kernel_seed":             "kernel.seed",
	"kernel_iterations":       "kernel.iterations",
	"kernel_refresh_interval": "kernel.refresh_interval",
	"kernel_mode":             "kernel.mode",
	"kernel_carry_state":      "kernel.carry_state",
	"kernel_prime_potentials": "kernel.prime_potentials",

	// Bench
	"bench_warmup_runs":       "bench.warmup_runs",
	"bench_measure_runs":      "bench.measure_runs",
	"bench_verify":            "bench.verify",
	"bench_verbose":           "bench.verbose",
	"bench_expected_checksum": "bench.expected_checksum",
	"bench_output":            "bench.output",
	"bench_timeout":           "bench.timeout",
	"bench_kernels":           "bench.kernels",

	// Client
	"client_host":          "client.host",
	"client_port":          "client.port",
	"client_timeout":       "client.timeout",
	"client_max_retries":   "client.max_retries",
	"client_retry_backoff": "client.retry_backoff",
	"client_tls":           "client.tls",
}

// sliceFields - поля, которые должны парситься как слайсы
var sliceFields = map[string]bool{
	"bench.kernels": true,
}

func isSliceField(key string) bool {
	return sliceFields[key]
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// MustLoad загружает конфигурацию или паникует
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load - удобная функция для загрузки с дефолтными настройками
func Load() (*Config, error) {
	return NewLoader().Load()
}

// LoadWithServiceDefaults загружает конфигурацию с переопределением для конкретного сервиса
func LoadWithServiceDefaults(serviceName string, defaultPort int) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if cfg.GRPC.Port == 50051 && defaultPort != 0 {
		cfg.GRPC.Port = defaultPort
	}

	if cfg.App.Name == "simplex-svc" {
		cfg.App.Name = serviceName
	}

	return cfg, nil
}
