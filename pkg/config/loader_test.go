package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "simplex-svc" {
		t.Errorf("expected app name 'simplex-svc', got %s", cfg.App.Name)
	}
	if cfg.GRPC.Port != 50051 {
		t.Errorf("expected gRPC port 50051, got %d", cfg.GRPC.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Metrics.Namespace != "netsimplex" {
		t.Errorf("expected metrics namespace 'netsimplex', got %s", cfg.Metrics.Namespace)
	}

	k := cfg.Kernel
	if k.Nodes != 64 || k.Arcs != 256 || k.Iterations != 50 || k.RefreshInterval != 10 {
		t.Errorf("unexpected kernel defaults: %+v", k)
	}
	if k.Seed != 0xCAFEBABE {
		t.Errorf("expected seed 0xCAFEBABE, got %#x", k.Seed)
	}
	if k.Mode != "reference" || k.CarryState || k.PrimePotentials {
		t.Errorf("unexpected kernel mode defaults: %+v", k)
	}

	b := cfg.Bench
	if b.WarmupRuns != 2 || b.MeasureRuns != 5 || !b.Verify || b.Output != "human" {
		t.Errorf("unexpected bench defaults: %+v", b)
	}

	if cfg.Client.Address() != "localhost:50051" || cfg.Client.MaxRetries != 3 {
		t.Errorf("unexpected client defaults: %+v", cfg.Client)
	}
	if cfg.Database.Enabled || cfg.Cache.Enabled {
		t.Error("database and cache must be disabled by default")
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: custom-service
  version: 2.0.0
  environment: staging
grpc:
  port: 50052
log:
  level: debug
kernel:
  nodes: 128
  arcs: 1024
  seed: 7
  mode: textbook
  carry_state: true
bench:
  output: machine
  timeout: 2s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-service" {
		t.Errorf("expected app name 'custom-service', got %s", cfg.App.Name)
	}
	if cfg.App.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %s", cfg.App.Version)
	}
	if cfg.GRPC.Port != 50052 {
		t.Errorf("expected port 50052, got %d", cfg.GRPC.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}
	if cfg.Kernel.Nodes != 128 || cfg.Kernel.Arcs != 1024 || cfg.Kernel.Seed != 7 {
		t.Errorf("unexpected kernel from file: %+v", cfg.Kernel)
	}
	if cfg.Kernel.Mode != "textbook" || !cfg.Kernel.CarryState {
		t.Errorf("unexpected kernel mode from file: %+v", cfg.Kernel)
	}
	// не заданное в файле остаётся по умолчанию
	if cfg.Kernel.Iterations != 50 {
		t.Errorf("expected default iterations 50, got %d", cfg.Kernel.Iterations)
	}
	if cfg.Bench.Output != "machine" || cfg.Bench.Timeout != 2*time.Second {
		t.Errorf("unexpected bench from file: %+v", cfg.Bench)
	}
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("NETSIMPLEX_APP_NAME", "env-service")
	t.Setenv("NETSIMPLEX_GRPC_PORT", "50053")
	t.Setenv("NETSIMPLEX_KERNEL_REFRESH_INTERVAL", "0")
	t.Setenv("NETSIMPLEX_KERNEL_SEED", "0xDEADBEEF")
	t.Setenv("NETSIMPLEX_KERNEL_PRIME_POTENTIALS", "true")
	t.Setenv("NETSIMPLEX_BENCH_MEASURE_RUNS", "9")
	t.Setenv("NETSIMPLEX_CLIENT_RETRY_BACKOFF", "250ms")
	t.Setenv("NETSIMPLEX_BENCH_KERNELS", "graph_simplex, graph_simplex_textbook")

	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-service" {
		t.Errorf("expected app name 'env-service', got %s", cfg.App.Name)
	}
	if cfg.GRPC.Port != 50053 {
		t.Errorf("expected port 50053, got %d", cfg.GRPC.Port)
	}
	if cfg.Kernel.RefreshInterval != 0 {
		t.Errorf("expected refresh interval 0, got %d", cfg.Kernel.RefreshInterval)
	}
	if cfg.Kernel.Seed != 0xDEADBEEF {
		t.Errorf("expected seed 0xDEADBEEF, got %#x", cfg.Kernel.Seed)
	}
	if !cfg.Kernel.PrimePotentials {
		t.Error("expected prime_potentials from env")
	}
	if cfg.Bench.MeasureRuns != 9 {
		t.Errorf("expected measure runs 9, got %d", cfg.Bench.MeasureRuns)
	}
	if len(cfg.Bench.Kernels) != 2 || cfg.Bench.Kernels[1] != "graph_simplex_textbook" {
		t.Errorf("expected two kernels from env, got %v", cfg.Bench.Kernels)
	}
	if cfg.Client.RetryBackoff != 250*time.Millisecond {
		t.Errorf("expected retry backoff 250ms, got %v", cfg.Client.RetryBackoff)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: file-service
grpc:
  port: 50054
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("NETSIMPLEX_APP_NAME", "env-override")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-override" {
		t.Errorf("expected env override, got %s", cfg.App.Name)
	}
	if cfg.GRPC.Port != 50054 {
		t.Errorf("expected port from file 50054, got %d", cfg.GRPC.Port)
	}
}

func TestLoader_InvalidEnvFailsValidation(t *testing.T) {
	t.Setenv("NETSIMPLEX_KERNEL_MODE", "dual")

	if _, err := NewLoader(WithConfigPaths()).Load(); err == nil {
		t.Error("expected validation error for unknown kernel mode")
	}
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_APP_NAME", "custom-prefix-service")

	cfg, err := NewLoader(WithEnvPrefix("CUSTOM_"), WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-prefix-service" {
		t.Errorf("expected 'custom-prefix-service', got %s", cfg.App.Name)
	}
}

func TestMustLoad_Success(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad should not panic with valid config")
		}
	}()

	cfg := MustLoad(WithConfigPaths())
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoadWithServiceDefaults(t *testing.T) {
	cfg, err := LoadWithServiceDefaults("test-svc", 60000)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if cfg.App.Name != "test-svc" {
		t.Errorf("expected app name 'test-svc', got %s", cfg.App.Name)
	}
	if cfg.GRPC.Port != 60000 {
		t.Errorf("expected port 60000, got %d", cfg.GRPC.Port)
	}
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom-config.yaml")

	configContent := `
app:
  name: config-env-var-service
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_PATH", configPath)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "config-env-var-service" {
		t.Errorf("expected 'config-env-var-service', got %s", cfg.App.Name)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("splitAndTrim() = %v", got)
	}
	if splitAndTrim("") != nil {
		t.Error("splitAndTrim(\"\") should be nil")
	}
}
