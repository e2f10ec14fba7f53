// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App      AppConfig      `koanf:"app"`
	GRPC     GRPCConfig     `koanf:"grpc"`
	HTTP     HTTPConfig     `koanf:"http"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Kernel   KernelConfig   `koanf:"kernel"`
	Bench    BenchConfig    `koanf:"bench"`
	Client   ClientConfig   `koanf:"client"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// GRPCConfig - настройки gRPC сервера
type GRPCConfig struct {
	Port              int             `koanf:"port"`
	MaxRecvMsgSize    int             `koanf:"max_recv_msg_size"` // bytes
	MaxSendMsgSize    int             `koanf:"max_send_msg_size"` // bytes
	MaxConcurrentConn int             `koanf:"max_concurrent_conn"`
	ShutdownTimeout   time.Duration   `koanf:"shutdown_timeout"`
	KeepAlive         KeepAliveConfig `koanf:"keepalive"`
	TLS               TLSConfig       `koanf:"tls"`
}

// HTTPConfig - Connect (HTTP/JSON и gRPC-Web) поверхность того же сервиса
type HTTPConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// KeepAliveConfig - настройки keep-alive
type KeepAliveConfig struct {
	MaxConnectionIdle     time.Duration `koanf:"max_connection_idle"`
	MaxConnectionAge      time.Duration `koanf:"max_connection_age"`
	MaxConnectionAgeGrace time.Duration `koanf:"max_connection_age_grace"`
	Time                  time.Duration `koanf:"time"`
	Timeout               time.Duration `koanf:"timeout"`
}

// TLSConfig - настройки TLS
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	CAFile   string `koanf:"ca_file"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig - настройки базы данных истории прогонов
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Driver          string        `koanf:"driver"` // postgres
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает строку подключения
func (d DatabaseConfig) DSN() string {
	switch strings.ToLower(d.Driver) {
	case "postgres", "postgresql":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
		)
	default:
		return ""
	}
}

// CacheConfig - настройки кэширования результатов прогонов
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KernelConfig - параметры ядра по умолчанию
type KernelConfig struct {
	Nodes           int    `koanf:"nodes"`
	Arcs            int    `koanf:"arcs"`
	Seed            uint32 `koanf:"seed"`
	Iterations      int    `koanf:"iterations"`
	RefreshInterval int    `koanf:"refresh_interval"`
	Mode            string `koanf:"mode"` // reference, textbook
	CarryState      bool   `koanf:"carry_state"`
	PrimePotentials bool   `koanf:"prime_potentials"`
}

// BenchConfig - параметры прогона бенчмарка
type BenchConfig struct {
	WarmupRuns       int           `koanf:"warmup_runs"`
	MeasureRuns      int           `koanf:"measure_runs"`
	Verify           bool          `koanf:"verify"`
	Verbose          bool          `koanf:"verbose"`
	ExpectedChecksum uint32        `koanf:"expected_checksum"`
	Output           string        `koanf:"output"` // human, csv, machine
	Timeout          time.Duration `koanf:"timeout"`
	Kernels          []string      `koanf:"kernels"` // пусто - все зарегистрированные
}

// ClientConfig - подключение к удалённому simplex-svc
type ClientConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   int           `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
	TLS          bool          `koanf:"tls"`
}

// Address возвращает полный адрес сервиса
func (c ClientConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be between 1 and 65535, got %d", c.GRPC.Port))
	}

	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Cache.Enabled {
		validDrivers := map[string]bool{"memory": true, "redis": true}
		if !validDrivers[c.Cache.Driver] {
			errs = append(errs, fmt.Sprintf("cache.driver must be one of: memory, redis, got %s", c.Cache.Driver))
		}
	}

	// Ядро
	if c.Kernel.Nodes < 2 {
		errs = append(errs, fmt.Sprintf("kernel.nodes must be at least 2, got %d", c.Kernel.Nodes))
	}
	if c.Kernel.Arcs < 1 {
		errs = append(errs, fmt.Sprintf("kernel.arcs must be positive, got %d", c.Kernel.Arcs))
	}
	if c.Kernel.Iterations < 0 {
		errs = append(errs, "kernel.iterations must be non-negative")
	}
	if c.Kernel.RefreshInterval < 0 {
		errs = append(errs, "kernel.refresh_interval must be non-negative")
	}
	validModes := map[string]bool{"": true, "reference": true, "textbook": true}
	if !validModes[c.Kernel.Mode] {
		errs = append(errs, fmt.Sprintf("kernel.mode must be one of: reference, textbook, got %s", c.Kernel.Mode))
	}

	// Бенчмарк
	if c.Bench.WarmupRuns < 0 || c.Bench.MeasureRuns < 0 {
		errs = append(errs, "bench.warmup_runs and bench.measure_runs must be non-negative")
	}
	validOutputs := map[string]bool{"": true, "human": true, "csv": true, "machine": true}
	if !validOutputs[c.Bench.Output] {
		errs = append(errs, fmt.Sprintf("bench.output must be one of: human, csv, machine, got %s", c.Bench.Output))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
