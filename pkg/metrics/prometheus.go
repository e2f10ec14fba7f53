package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// gRPC метрики
	GRPCRequestsTotal    *prometheus.CounterVec
	GRPCRequestDuration  *prometheus.HistogramVec
	GRPCRequestsInFlight prometheus.Gauge

	// Метрики ядра
	KernelRunsTotal        *prometheus.CounterVec
	KernelRunDuration      *prometheus.HistogramVec
	KernelPivots           *prometheus.HistogramVec
	KernelDegeneratePivots *prometheus.CounterVec
	KernelFinalCost        *prometheus.GaugeVec
	ChecksumMismatches     *prometheus.CounterVec
	NetworkNodesTotal      *prometheus.HistogramVec
	NetworkArcsTotal       *prometheus.HistogramVec
	ExportDuration         *prometheus.HistogramVec

	// Кэш результатов
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		// gRPC метрики
		GRPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_total",
				Help:      "Total number of gRPC requests",
			},
			[]string{"method", "status"},
		),

		GRPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_request_duration_seconds",
				Help:      "Duration of gRPC requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		GRPCRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_in_flight",
				Help:      "Current number of gRPC requests being processed",
			},
		),

		// Метрики ядра
		KernelRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "kernel_runs_total",
				Help:      "Total number of kernel runs",
			},
			[]string{"mode", "termination"},
		),

		KernelRunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "kernel_run_duration_seconds",
				Help:      "Duration of the pivot loop",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"mode"},
		),

		KernelPivots: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "kernel_pivots",
				Help:      "Pivots executed per run",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000, 5000},
			},
			[]string{"mode"},
		),

		KernelDegeneratePivots: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "kernel_degenerate_pivots_total",
				Help:      "Total number of zero-delta pivots",
			},
			[]string{"mode"},
		),

		KernelFinalCost: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "kernel_final_cost",
				Help:      "Total cost after the last run",
			},
			[]string{"mode"},
		),

		ChecksumMismatches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checksum_mismatches_total",
				Help:      "Runs whose checksum differed from the expected value",
			},
			[]string{"kernel"},
		),

		NetworkNodesTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_nodes_total",
				Help:      "Number of nodes in generated networks",
				Buckets:   []float64{2, 16, 64, 256, 1024, 4096},
			},
			[]string{"mode"},
		),

		NetworkArcsTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_arcs_total",
				Help:      "Number of arcs in generated networks",
				Buckets:   []float64{16, 64, 256, 1024, 4096, 16384, 65536, 1 << 20},
			},
			[]string{"mode"},
		),

		ExportDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "trace_export_duration_seconds",
				Help:      "Duration of pivot trace export",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"format"},
		),

		// Кэш
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Run cache hits",
			},
			[]string{"backend"},
		),

		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Run cache misses",
			},
			[]string{"backend"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("netsimplex", "")
	}
	return defaultMetrics
}

// RecordGRPCRequest записывает метрики gRPC запроса
func (m *Metrics) RecordGRPCRequest(method string, status string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(method, status).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// KernelRun итог одного прогона для метрик
type KernelRun struct {
	Mode             string
	Termination      string
	Pivots           int
	DegeneratePivots int
	FinalCost        int64
	Duration         time.Duration
}

// RecordKernelRun записывает метрики прогона ядра
func (m *Metrics) RecordKernelRun(r KernelRun) {
	m.KernelRunsTotal.WithLabelValues(r.Mode, r.Termination).Inc()
	m.KernelRunDuration.WithLabelValues(r.Mode).Observe(r.Duration.Seconds())
	m.KernelPivots.WithLabelValues(r.Mode).Observe(float64(r.Pivots))
	m.KernelDegeneratePivots.WithLabelValues(r.Mode).Add(float64(r.DegeneratePivots))
	m.KernelFinalCost.WithLabelValues(r.Mode).Set(float64(r.FinalCost))
}

// RecordNetworkSize записывает размер сети
func (m *Metrics) RecordNetworkSize(mode string, nodes, arcs int) {
	m.NetworkNodesTotal.WithLabelValues(mode).Observe(float64(nodes))
	m.NetworkArcsTotal.WithLabelValues(mode).Observe(float64(arcs))
}

// RecordChecksumMismatch отмечает прогон с неверной контрольной суммой
func (m *Metrics) RecordChecksumMismatch(kernel string) {
	m.ChecksumMismatches.WithLabelValues(kernel).Inc()
}

// RecordCacheLookup записывает попадание или промах кэша
func (m *Metrics) RecordCacheLookup(backend string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(backend).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(backend).Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewMetricsServer создаёт HTTP сервер метрик; path пустой - /metrics
func NewMetricsServer(port int, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	return &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// StartMetricsServer запускает HTTP сервер для метрик
func StartMetricsServer(port int) error {
	return NewMetricsServer(port, "").ListenAndServe()
}
