package webserver

import (
	"context"

	"github.com/gorilla/mux"

	"github.com/open-beagle/gst-element/internal/gstreamer"
)

// RouteSetup 路由设置接口
// 所有需要注册HTTP路由的组件都应该实现此接口
type RouteSetup interface {
	// SetupRoutes 设置组件的HTTP路由
	SetupRoutes(router *mux.Router) error
}

// ComponentManager 组件管理器接口
// 定义了组件的完整生命周期管理和路由集成能力
type ComponentManager interface {
	RouteSetup

	// Start 启动组件
	Start(ctx context.Context) error

	// Stop 停止组件
	Stop(ctx context.Context) error

	// IsEnabled 检查组件是否启用
	IsEnabled() bool

	// IsRunning 检查组件是否正在运行
	IsRunning() bool

	// GetStats 获取组件的统计信息
	GetStats() map[string]interface{}

	// GetContext 获取组件的上下文，未启动时返回nil
	GetContext() context.Context
}

// HealthChecker 健康检查接口
// 组件可以实现此接口来提供健康检查功能
type HealthChecker interface {
	// HealthCheck 执行健康检查
	// 返回健康状态信息和错误（如果不健康）
	HealthCheck() (map[string]interface{}, error)
}

// MessageSource 消息来源接口，由元素消息总线实现
type MessageSource interface {
	Subscribe(buffer int) (<-chan gstreamer.Message, func())
}
