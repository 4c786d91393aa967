package gstreamer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/open-beagle/gst-element/internal/config"
)

// ManagerConfig 元素管理器配置
type ManagerConfig struct {
	Config   *config.ElementsConfig
	Registry *Registry
	Logger   *logrus.Entry
}

// Manager 元素管理器，持有注册表、消息总线以及按名称索引的元素
type Manager struct {
	config   *config.ElementsConfig
	registry *Registry
	bus      *Bus
	logger   *logrus.Entry

	// HTTP处理器
	handlers *elementHandlers

	elements map[string]*Element

	// 状态管理
	running   bool
	startTime time.Time
	mutex     sync.RWMutex

	// 上下文控制
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager 创建元素管理器
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("manager config is required")
	}

	elementsConfig := cfg.Config
	if elementsConfig == nil {
		elementsConfig = config.DefaultElementsConfig()
	}
	if err := elementsConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid elements config: %w", err)
	}

	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = config.GetLoggerWithPrefix("element-manager")
	}

	m := &Manager{
		config:   elementsConfig,
		registry: registry,
		bus:      NewBus(elementsConfig.BusQueueSize),
		logger:   logger,
		elements: make(map[string]*Element),
	}
	m.handlers = newElementHandlers(m)

	return m, nil
}

// Start 启动消息总线并创建配置中声明的元素
func (m *Manager) Start(ctx context.Context) error {
	m.mutex.Lock()
	if m.running {
		m.mutex.Unlock()
		return fmt.Errorf("element manager already running")
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mutex.Unlock()

	if err := m.bus.Start(m.ctx); err != nil {
		m.cancel()
		return fmt.Errorf("failed to start bus: %w", err)
	}

	created := make([]string, 0, len(m.config.Elements))
	for _, ec := range m.config.Elements {
		name, err := m.startConfiguredElement(ec)
		if name != "" {
			created = append(created, name)
		}
		if err != nil {
			m.logger.Errorf("Failed to start configured element: %v", err)
			m.discard(created)
			m.cancel()
			_ = m.bus.Stop()
			return err
		}
	}

	m.mutex.Lock()
	m.running = true
	m.startTime = time.Now()
	m.mutex.Unlock()

	m.logger.Infof("Element manager started with %d elements", len(m.config.Elements))
	return nil
}

// startConfiguredElement 创建配置中声明的元素，返回已创建元素的名称
func (m *Manager) startConfiguredElement(ec config.ElementConfig) (string, error) {
	element, err := m.Create(ec.Type, ec.Name, ec.Properties)
	if err != nil {
		return "", err
	}
	if ec.State == "" {
		return element.Name(), nil
	}

	target, err := ParseState(ec.State)
	if err != nil {
		return element.Name(), fmt.Errorf("element '%s': %w", element.Name(), err)
	}
	if err := element.SetState(target); err != nil {
		return element.Name(), fmt.Errorf("element '%s': %w", element.Name(), err)
	}
	return element.Name(), nil
}

// discard 将启动失败时已创建的元素置为 NULL 并移除
func (m *Manager) discard(names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		m.mutex.Lock()
		element, ok := m.elements[name]
		delete(m.elements, name)
		m.mutex.Unlock()
		if !ok {
			continue
		}

		if err := element.SetState(StateNull); err != nil {
			m.logger.Warnf("Element '%s' did not reach NULL during rollback: %v", name, err)
		}
		element.SetBus(nil)
	}
}

// Stop 将所有元素置为 NULL 并停止消息总线
func (m *Manager) Stop(ctx context.Context) error {
	m.mutex.Lock()
	if !m.running {
		m.mutex.Unlock()
		return nil
	}
	m.running = false
	elements := make([]*Element, 0, len(m.elements))
	for _, e := range m.elements {
		elements = append(elements, e)
	}
	m.mutex.Unlock()

	for _, e := range elements {
		if ctx.Err() != nil {
			break
		}
		if err := e.SetState(StateNull); err != nil {
			m.logger.Warnf("Element '%s' did not reach NULL on shutdown: %v", e.Name(), err)
		}
	}

	if err := m.bus.Stop(); err != nil {
		m.logger.Warnf("Failed to stop bus: %v", err)
	}
	m.cancel()

	m.logger.Info("Element manager stopped")
	return nil
}

// IsEnabled 元素管理器始终启用
func (m *Manager) IsEnabled() bool {
	return true
}

// IsRunning 检查管理器是否正在运行
func (m *Manager) IsRunning() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.running
}

// GetContext 获取管理器上下文
func (m *Manager) GetContext() context.Context {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.ctx
}

// Bus 返回消息总线
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Registry 返回元素类型注册表
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Create 创建元素并挂到消息总线上
func (m *Manager) Create(typeName, name string, properties map[string]any) (*Element, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if name != "" {
		if _, exists := m.elements[name]; exists {
			return nil, fmt.Errorf("element '%s': %w", name, ErrAlreadyExists)
		}
	}

	element, err := m.registry.Make(typeName, name,
		WithBus(m.bus),
		WithHistorySize(m.config.HistorySize),
	)
	if err != nil {
		return nil, err
	}
	if _, exists := m.elements[element.Name()]; exists {
		return nil, fmt.Errorf("element '%s': %w", element.Name(), ErrAlreadyExists)
	}

	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := element.SetProperty(k, properties[k]); err != nil {
			return nil, err
		}
	}

	m.elements[element.Name()] = element
	m.logger.Infof("Created element '%s' (%s)", element.Name(), typeName)
	return element, nil
}

// Get 按名称获取元素
func (m *Manager) Get(name string) (*Element, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	element, ok := m.elements[name]
	if !ok {
		return nil, fmt.Errorf("element '%s': %w", name, ErrNotFound)
	}
	return element, nil
}

// List 返回按名称排序的所有元素
func (m *Manager) List() []*Element {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Element, 0, len(m.elements))
	for _, e := range m.elements {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Remove 将元素置为 NULL 后移除
func (m *Manager) Remove(name string) error {
	element, err := m.Get(name)
	if err != nil {
		return err
	}

	if err := element.SetState(StateNull); err != nil {
		return err
	}

	m.mutex.Lock()
	delete(m.elements, name)
	m.mutex.Unlock()

	element.SetBus(nil)
	m.logger.Infof("Removed element '%s'", name)
	return nil
}

// SetState 按名称设置元素状态
func (m *Manager) SetState(name string, state State) error {
	element, err := m.Get(name)
	if err != nil {
		return err
	}
	return element.SetState(state)
}

// GetStats 获取管理器统计信息
func (m *Manager) GetStats() map[string]interface{} {
	m.mutex.RLock()
	running := m.running
	startTime := m.startTime
	count := len(m.elements)
	m.mutex.RUnlock()

	posted, dropped := m.bus.Stats()
	stats := map[string]interface{}{
		"running":          running,
		"elements":         count,
		"bus_posted":       posted,
		"bus_dropped":      dropped,
		"registered_types": len(m.registry.Types()),
	}
	if running {
		stats["uptime"] = time.Since(startTime).Seconds()
	}
	return stats
}

// SetupRoutes 注册元素管理相关的HTTP路由
func (m *Manager) SetupRoutes(router *mux.Router) error {
	return m.handlers.setupElementRoutes(router)
}
