package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ReloadFunc 配置文件变化后被调用，参数为重新加载并验证通过的配置
type ReloadFunc func(cfg *Config)

// Watcher 监听配置文件变化并重新加载
// 每次变化都会重新应用日志配置，其余模块交给 ReloadFunc 处理
type Watcher struct {
	filename string
	onReload ReloadFunc
	debounce time.Duration
	logger   *logrus.Entry

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher 创建配置文件监听器
func NewWatcher(filename string, onReload ReloadFunc) *Watcher {
	return &Watcher{
		filename: filename,
		onReload: onReload,
		debounce: 100 * time.Millisecond,
		logger:   GetLoggerWithPrefix("config-watcher"),
	}
}

// Run 监听配置文件所在目录，直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.filename)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Infof("Watching config file %s", w.filename)

	target := filepath.Clean(w.filename)
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("Config watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.filename)
	if err != nil {
		w.logger.Warnf("Ignoring config change: %v", err)
		return
	}

	if err := SetupLogger(cfg.Logging); err != nil {
		w.logger.Warnf("Failed to apply logging config: %v", err)
	} else {
		w.logger.Infof("Config reloaded, log level %s", cfg.Logging.Level)
	}

	if w.onReload != nil {
		w.onReload(cfg)
	}
}
