package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/open-beagle/gst-element/internal/config"
	"github.com/open-beagle/gst-element/internal/gstreamer"
	"github.com/open-beagle/gst-element/internal/journal"
	"github.com/open-beagle/gst-element/internal/metrics"
	"github.com/open-beagle/gst-element/internal/webserver"
)

// lifecycleManager is the part of a component manager the app drives.
type lifecycleManager interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsEnabled() bool
	IsRunning() bool
	GetStats() map[string]interface{}
}

type managerInfo struct {
	name    string
	manager lifecycleManager
}

// App wires the element manager, metrics, journal and web server together.
type App struct {
	config     *config.Config
	configPath string
	elements   *gstreamer.Manager
	metricsMgr *metrics.Manager
	journal    *journal.Store
	webServer  *webserver.WebServer
	logger     *logrus.Entry
	startTime  time.Time

	rootCtx    context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	serverErr  chan error
}

// NewApp 创建应用
func NewApp(cfg *config.Config, configPath string) (*App, error) {
	rootCtx, cancelFunc := context.WithCancel(context.Background())

	elements, err := gstreamer.NewManager(&gstreamer.ManagerConfig{Config: cfg.Elements})
	if err != nil {
		cancelFunc()
		return nil, fmt.Errorf("failed to create element manager: %w", err)
	}

	metricsMgr, err := metrics.NewManager(rootCtx, cfg.Metrics)
	if err != nil {
		cancelFunc()
		return nil, fmt.Errorf("failed to create metrics manager: %w", err)
	}
	metricsMgr.Attach(elements.Bus())

	app := &App{
		config:     cfg,
		configPath: configPath,
		elements:   elements,
		metricsMgr: metricsMgr,
		logger:     config.GetLoggerWithPrefix("app"),
		startTime:  time.Now(),
		rootCtx:    rootCtx,
		cancelFunc: cancelFunc,
		serverErr:  make(chan error, 1),
	}

	if cfg.Journal.Enabled {
		store, err := journal.OpenConfig(cfg.Journal)
		if err != nil {
			cancelFunc()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		elements.Bus().AddHandler(gstreamer.MessageAny, store.HandleMessage)
		app.journal = store
	}

	if cfg.WebServer.Enabled {
		ws, err := webserver.NewWebServer(cfg.WebServer)
		if err != nil {
			cancelFunc()
			_ = app.journal.Close()
			return nil, fmt.Errorf("failed to create web server: %w", err)
		}
		ws.SetMessageSource(elements.Bus())
		app.webServer = ws
	}

	return app, nil
}

func (app *App) managers() []managerInfo {
	return []managerInfo{
		{"metrics", app.metricsMgr},
		{"elements", app.elements},
	}
}

// Start 按 metrics → elements → webserver 的顺序启动组件，失败时回滚
func (app *App) Start() error {
	app.logger.Infof("Starting %s v%s", AppName, AppVersion)

	managers := app.managers()
	if started, err := app.startManagers(managers, app.config.Lifecycle.StartupTimeout.Std()); err != nil {
		app.rollback(started)
		return err
	}

	if app.webServer != nil {
		if err := app.registerComponents(); err != nil {
			app.rollback(managers)
			return err
		}

		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			if err := app.webServer.Start(); err != nil {
				app.logger.Errorf("Web server failed: %v", err)
				app.serverErr <- err
			}
		}()
	}

	if app.configPath != "" {
		watcher := config.NewWatcher(app.configPath, app.onConfigReload)
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			if err := watcher.Run(app.rootCtx); err != nil {
				app.logger.Warnf("Config watcher stopped: %v", err)
			}
		}()
	}

	app.logger.Infof("%s started: %s", AppName, app.config)
	return nil
}

// startManagers 依次启动管理器。失败时返回的切片包含失败的那个，
// 超时的 Start 可能在回滚之后才完成
func (app *App) startManagers(managers []managerInfo, timeout time.Duration) ([]managerInfo, error) {
	for i, mgr := range managers {
		app.logger.Debugf("Starting %s manager...", mgr.name)

		if err := startWithTimeout(timeout, func() error { return mgr.manager.Start(app.rootCtx) }); err != nil {
			app.logger.Errorf("Failed to start %s manager: %v", mgr.name, err)
			return managers[:i+1], fmt.Errorf("failed to start %s manager: %w", mgr.name, err)
		}
	}
	return managers, nil
}

func startWithTimeout(timeout time.Duration, start func() error) error {
	done := make(chan error, 1)
	go func() { done <- start() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("startup timed out after %v", timeout)
	}
}

func (app *App) rollback(started []managerInfo) {
	for j := len(started) - 1; j >= 0; j-- {
		app.logger.Infof("Rolling back: stopping %s manager...", started[j].name)
		if err := started[j].manager.Stop(app.rootCtx); err != nil {
			app.logger.Warnf("Failed to stop %s during rollback: %v", started[j].name, err)
		}
	}
	app.cancelFunc()
	_ = app.journal.Close()
}

func (app *App) registerComponents() error {
	if err := app.webServer.RegisterComponent("elements", app.elements); err != nil {
		return fmt.Errorf("failed to register elements component: %w", err)
	}
	if err := app.webServer.RegisterComponent("metrics", app.metricsMgr); err != nil {
		return fmt.Errorf("failed to register metrics component: %w", err)
	}
	return nil
}

// onConfigReload 日志配置已由 watcher 应用，元素声明需要重启生效
func (app *App) onConfigReload(cfg *config.Config) {
	result := config.NewConfigValidator(app.logger).Check(cfg)
	for _, w := range result.Warnings {
		app.logger.Warnf("Reloaded config warning [%s]: %s", w.Code, w.Message)
	}
	app.logger.Infof("Config reloaded: %s (element declarations apply on restart)", cfg)
}

// ServerErrors 返回 Web 服务器异常退出的错误
func (app *App) ServerErrors() <-chan error {
	return app.serverErr
}

// Stop 按启动的逆序停止组件
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application...")

	var errs []error

	if app.webServer != nil {
		if err := app.webServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop webserver: %w", err))
		}
	}

	managers := app.managers()
	for i := len(managers) - 1; i >= 0; i-- {
		mgr := managers[i]
		if err := mgr.manager.Stop(ctx); err != nil {
			app.logger.Errorf("Failed to stop %s manager: %v", mgr.name, err)
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", mgr.name, err))
		}
	}

	app.cancelFunc()
	app.wg.Wait()

	if err := app.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close journal: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	app.logger.Info("Application stopped")
	return nil
}

// IsHealthy 所有启用的组件都在运行时为健康
func (app *App) IsHealthy() bool {
	for _, mgr := range app.managers() {
		if mgr.manager.IsEnabled() && !mgr.manager.IsRunning() {
			return false
		}
	}
	return true
}

// GetHealthSummary 获取健康状态摘要
func (app *App) GetHealthSummary() map[string]interface{} {
	components := make(map[string]interface{})
	for _, mgr := range app.managers() {
		components[mgr.name] = map[string]interface{}{
			"enabled": mgr.manager.IsEnabled(),
			"running": mgr.manager.IsRunning(),
			"stats":   mgr.manager.GetStats(),
		}
	}

	return map[string]interface{}{
		"healthy":    app.IsHealthy(),
		"components": components,
		"journal":    app.journal != nil,
		"uptime":     time.Since(app.startTime).String(),
	}
}

// Elements 返回元素管理器
func (app *App) Elements() *gstreamer.Manager {
	return app.elements
}

// Journal 返回状态迁移日志，未启用时为 nil
func (app *App) Journal() *journal.Store {
	return app.journal
}
