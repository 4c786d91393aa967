package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/open-beagle/gst-element/internal/config"
)

// WebServer Web服务器
type WebServer struct {
	config     *config.WebServerConfig
	server     *http.Server
	router     *mux.Router
	logger     *logrus.Entry
	messages   MessageSource
	mutex      sync.RWMutex
	running    bool
	startTime  time.Time
	components map[string]ComponentManager // 注册的组件
}

// NewWebServer 创建Web服务器
func NewWebServer(cfg *config.WebServerConfig) (*WebServer, error) {
	if cfg == nil {
		cfg = config.DefaultWebServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ws := &WebServer{
		config:     cfg,
		router:     mux.NewRouter(),
		logger:     config.GetLoggerWithPrefix("webserver"),
		startTime:  time.Now(),
		components: make(map[string]ComponentManager),
	}

	ws.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return ws, nil
}

// SetMessageSource 设置 /ws/messages 推送的消息来源
func (ws *WebServer) SetMessageSource(source MessageSource) {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	ws.messages = source
}

// GetHandler 设置路由并返回HTTP处理器
func (ws *WebServer) GetHandler() http.Handler {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	ws.setupRoutes()
	return ws.router
}

// Start 启动Web服务器，阻塞直到服务器停止
func (ws *WebServer) Start() error {
	ws.mutex.Lock()
	ws.setupRoutes()
	ws.running = true
	ws.startTime = time.Now()
	ws.mutex.Unlock()

	ws.logger.Infof("Starting web server on %s", ws.server.Addr)

	err := ws.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}

	ws.mutex.Lock()
	ws.running = false
	ws.mutex.Unlock()
	return err
}

// Stop 停止Web服务器
func (ws *WebServer) Stop(ctx context.Context) error {
	ws.mutex.Lock()
	ws.running = false
	ws.mutex.Unlock()

	ws.logger.Info("Stopping web server...")

	// 只停止HTTP服务器，其他组件由main管理
	return ws.server.Shutdown(ctx)
}

// IsRunning 检查服务器是否运行中
func (ws *WebServer) IsRunning() bool {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()
	return ws.running
}

// RegisterComponent 注册组件
func (ws *WebServer) RegisterComponent(name string, component ComponentManager) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if component == nil {
		return fmt.Errorf("component %s is nil", name)
	}
	if _, exists := ws.components[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}

	ws.components[name] = component
	ws.logger.Debugf("Component %s registered successfully", name)
	return nil
}

// GetComponent 获取已注册的组件
func (ws *WebServer) GetComponent(name string) (ComponentManager, bool) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	component, exists := ws.components[name]
	return component, exists
}

// ListComponents 列出所有已注册的组件名称
func (ws *WebServer) ListComponents() []string {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	names := make([]string, 0, len(ws.components))
	for name := range ws.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handleStatus 返回服务器与各组件状态
// GET /api/status
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws.mutex.RLock()
	components := make(map[string]interface{}, len(ws.components))
	for name, component := range ws.components {
		components[name] = component.GetStats()
	}
	status := map[string]any{
		"status":     "running",
		"timestamp":  time.Now().Unix(),
		"uptime":     time.Since(ws.startTime).Seconds(),
		"components": components,
	}
	ws.mutex.RUnlock()

	ws.writeJSON(w, http.StatusOK, status)
}

// handleHealth 健康检查
// GET /api/health
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	healthy := true
	checks := make(map[string]any, len(ws.components))
	for name, component := range ws.components {
		check := map[string]any{
			"enabled": component.IsEnabled(),
			"running": component.IsRunning(),
		}
		if component.IsEnabled() && !component.IsRunning() {
			healthy = false
		}
		if checker, ok := component.(HealthChecker); ok {
			details, err := checker.HealthCheck()
			check["details"] = details
			if err != nil {
				check["error"] = err.Error()
				healthy = false
			}
		}
		checks[name] = check
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	ws.writeJSON(w, code, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// 工具方法
func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.logger.Warnf("Failed to encode JSON: %v", err)
	}
}
