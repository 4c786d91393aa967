package webserver

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
)

func (ws *WebServer) setupRoutes() {
	ws.logger.Debug("Setting up webserver routes...")
	ws.router = mux.NewRouter()
	if ws.server != nil {
		ws.server.Handler = ws.router
	}

	if ws.config.EnableCORS {
		ws.router.Use(ws.corsMiddleware)
	}
	ws.router.Use(ws.loggingMiddleware)

	ws.router.HandleFunc("/api/status", ws.handleStatus).Methods("GET")
	ws.router.HandleFunc("/api/health", ws.handleHealth).Methods("GET")
	ws.router.HandleFunc("/ws/messages", ws.handleMessageStream).Methods("GET")

	if err := ws.setupComponentRoutes(); err != nil {
		ws.logger.Errorf("Component routes setup failed: %v", err)
		ws.router.HandleFunc("/api/component-routes-error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, fmt.Sprintf("Component routes setup failed: %v", err), http.StatusInternalServerError)
		}).Methods("GET")
	}
}

// setupComponentRoutes 设置组件路由
// 注意：调用此方法的函数必须已经持有mutex锁
func (ws *WebServer) setupComponentRoutes() error {
	for _, name := range sortedKeys(ws.components) {
		if err := ws.components[name].SetupRoutes(ws.router); err != nil {
			return fmt.Errorf("failed to setup routes for component %s: %w", name, err)
		}
		ws.logger.Debugf("Routes for component %s setup successfully", name)
	}
	return nil
}

func sortedKeys(components map[string]ComponentManager) []string {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
