package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/open-beagle/gst-element/internal/config"
)

// Registry 私有 Prometheus 注册表，指标名统一加 namespace 前缀。
// 启用外部暴露时可在独立端口上提供 /metrics
type Registry struct {
	config   config.MetricsConfig
	registry *prometheus.Registry
	logger   *logrus.Entry

	mu      sync.RWMutex
	names   map[string]struct{}
	server  *http.Server
	serving bool
}

// NewRegistry 创建注册表
func NewRegistry(cfg *config.MetricsConfig) (*Registry, error) {
	if cfg == nil {
		cfg = config.DefaultMetricsConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Registry{
		config:   *cfg,
		registry: prometheus.NewRegistry(),
		logger:   config.GetLoggerWithPrefix("metrics"),
		names:    make(map[string]struct{}),
	}, nil
}

// register 同名指标只能注册一次
func register[C prometheus.Collector](r *Registry, name string, collector C) (C, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; exists {
		var zero C
		return zero, ErrMetricAlreadyRegistered
	}
	if err := r.registry.Register(collector); err != nil {
		var zero C
		return zero, err
	}
	r.names[name] = struct{}{}
	return collector, nil
}

// Counter 注册带标签的计数器
func (r *Registry) Counter(name, help string, labels ...string) (*prometheus.CounterVec, error) {
	return register(r, name, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.config.Namespace,
		Name:      name,
		Help:      help,
	}, labels))
}

// Gauge 注册带标签的仪表盘
func (r *Registry) Gauge(name, help string, labels ...string) (*prometheus.GaugeVec, error) {
	return register(r, name, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.config.Namespace,
		Name:      name,
		Help:      help,
	}, labels))
}

// Histogram 注册带标签的直方图
func (r *Registry) Histogram(name, help string, buckets []float64, labels ...string) (*prometheus.HistogramVec, error) {
	return register(r, name, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.config.Namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels))
}

// Gatherer 用于读取当前指标值
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler 以 Prometheus 文本格式输出注册表
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve 在配置的端口上提供 /metrics，未启用外部暴露时什么也不做
func (r *Registry) Serve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.config.Enabled {
		return nil
	}
	if r.serving {
		return ErrServerAlreadyRunning
	}

	router := http.NewServeMux()
	router.Handle(r.config.Path, r.Handler())
	server := &http.Server{
		Addr:         r.config.Addr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Errorf("Metrics server error: %v", err)
		}
	}()

	r.server = server
	r.serving = true
	r.logger.Infof("Metrics server listening on %s%s", r.config.Addr(), r.config.Path)
	return nil
}

// Shutdown 关闭外部 /metrics 服务
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.serving {
		return ErrServerNotRunning
	}
	if err := r.server.Shutdown(ctx); err != nil {
		return err
	}

	r.server = nil
	r.serving = false
	r.logger.Info("Metrics server stopped")
	return nil
}

// Serving 外部 /metrics 服务是否在运行
func (r *Registry) Serving() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.serving
}
