package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/open-beagle/gst-element/internal/config"
	"github.com/open-beagle/gst-element/internal/gstreamer"
)

// Manager 监控组件管理器
// 持有 Prometheus 注册表与元素指标，可选地在独立端口暴露 /metrics
type Manager struct {
	config   *config.MetricsConfig
	registry *Registry
	element  *ElementMetrics
	logger   *logrus.Entry

	running   bool
	startTime time.Time
	mutex     sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager 创建新的监控管理器
func NewManager(ctx context.Context, cfg *config.MetricsConfig) (*Manager, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("metrics config cannot be nil")
	}

	registry, err := NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics registry: %w", err)
	}

	element, err := NewElementMetrics(registry)
	if err != nil {
		return nil, err
	}

	childCtx, cancel := context.WithCancel(ctx)
	return &Manager{
		config:   cfg,
		registry: registry,
		element:  element,
		logger:   config.GetLoggerWithPrefix("metrics-manager"),
		ctx:      childCtx,
		cancel:   cancel,
	}, nil
}

// Attach 将元素指标挂到消息总线
func (m *Manager) Attach(bus *gstreamer.Bus) {
	bus.AddHandler(gstreamer.MessageAny, m.element.HandleMessage)
}

// Start 启动监控管理器
func (m *Manager) Start(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.running {
		return fmt.Errorf("metrics manager already running")
	}

	if m.config.Enabled {
		if err := m.registry.Serve(); err != nil {
			m.logger.Warnf("Failed to start external metrics server: %v", err)
		}
	} else {
		m.logger.Debug("External metrics disabled, metrics served on the web server only")
	}

	m.running = true
	m.startTime = time.Now()
	return nil
}

// Stop 停止监控管理器
func (m *Manager) Stop(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.running {
		return nil
	}
	m.cancel()

	var err error
	if m.registry.Serving() {
		if stopErr := m.registry.Shutdown(ctx); stopErr != nil {
			err = fmt.Errorf("failed to stop metrics server: %w", stopErr)
		}
	}
	m.running = false
	return err
}

// IsEnabled 监控组件始终启用，外部暴露可选
func (m *Manager) IsEnabled() bool {
	return true
}

// IsRunning 检查监控管理器是否正在运行
func (m *Manager) IsRunning() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.running
}

// GetStats 获取监控管理器的统计信息
func (m *Manager) GetStats() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := map[string]interface{}{
		"running":          m.running,
		"external_enabled": m.config.Enabled,
		"external_running": m.registry.Serving(),
	}
	if m.running {
		stats["uptime"] = time.Since(m.startTime).Seconds()
	}
	if m.registry.Serving() {
		stats["external_endpoint"] = m.config.Addr() + m.config.Path
	}
	return stats
}

// GetContext 获取组件的上下文
func (m *Manager) GetContext() context.Context {
	return m.ctx
}

// SetupRoutes 在Web服务器上暴露 /metrics
func (m *Manager) SetupRoutes(router *mux.Router) error {
	router.Handle("/metrics", m.registry.Handler()).Methods("GET")
	return nil
}

// Registry 返回指标注册表（用于其他组件集成）
func (m *Manager) Registry() *Registry {
	return m.registry
}
