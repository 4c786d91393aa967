package config

import (
	"fmt"
	"strings"
)

// WebServerConfig Web服务器配置
type WebServerConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"ENABLED"`
	Host       string `yaml:"host" toml:"host" json:"host" env:"HOST"`
	Port       int    `yaml:"port" toml:"port" json:"port" env:"PORT"`
	EnableCORS bool   `yaml:"enable_cors" toml:"enable_cors" json:"enable_cors" env:"CORS"`
}

// DefaultWebServerConfig 返回默认Web服务器配置
func DefaultWebServerConfig() *WebServerConfig {
	return &WebServerConfig{
		Enabled:    true,
		Host:       "0.0.0.0",
		Port:       8080,
		EnableCORS: true,
	}
}

// Validate 验证Web服务器配置
func (c *WebServerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	return nil
}

// Addr 返回监听地址
func (c *WebServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"ENABLED"`
	Host      string `yaml:"host" toml:"host" json:"host" env:"HOST"`
	Port      int    `yaml:"port" toml:"port" json:"port" env:"PORT"`
	Path      string `yaml:"path" toml:"path" json:"path" env:"PATH"`
	Namespace string `yaml:"namespace" toml:"namespace" json:"namespace" env:"NAMESPACE"`
}

// DefaultMetricsConfig 返回默认监控配置
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled:   false, // 默认禁用外部metrics暴露
		Host:      "0.0.0.0",
		Port:      9090,
		Path:      "/metrics",
		Namespace: "gst_element",
	}
}

// Validate 验证配置
func (c *MetricsConfig) Validate() error {
	// 如果监控被禁用，跳过大部分验证
	if !c.Enabled {
		return nil
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Port)
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %s", c.Path)
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	return nil
}

// Addr 返回监听地址
func (c *MetricsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JournalConfig 状态迁移日志配置
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" toml:"path" json:"path" env:"PATH"`
}

// DefaultJournalConfig 返回默认状态迁移日志配置
func DefaultJournalConfig() *JournalConfig {
	return &JournalConfig{
		Enabled: false,
		Path:    "gst-element.db",
	}
}

// Validate 验证状态迁移日志配置
func (c *JournalConfig) Validate() error {
	if c.Enabled && c.Path == "" {
		return fmt.Errorf("journal path is required when journal is enabled")
	}
	return nil
}

// ElementConfig 单个元素的声明
type ElementConfig struct {
	// Type 元素类型 (fakesink, filesrc, ...)
	Type string `yaml:"type" toml:"type" json:"type"`

	// Name 元素名称，为空时自动生成
	Name string `yaml:"name" toml:"name" json:"name"`

	// State 启动后的目标状态 (NULL, READY, PAUSED, PLAYING)
	State string `yaml:"state" toml:"state" json:"state"`

	// Properties 创建后设置的属性
	Properties map[string]any `yaml:"properties" toml:"properties" json:"properties"`
}

// ElementsConfig 元素管理配置
type ElementsConfig struct {
	// BusQueueSize 消息总线队列长度
	BusQueueSize int `yaml:"bus_queue_size" toml:"bus_queue_size" json:"bus_queue_size" env:"BUS_QUEUE_SIZE"`

	// HistorySize 每个元素保留的状态迁移记录数
	HistorySize int `yaml:"history_size" toml:"history_size" json:"history_size" env:"HISTORY_SIZE"`

	// Elements 启动时创建的元素
	Elements []ElementConfig `yaml:"elements" toml:"elements" json:"elements"`
}

// DefaultElementsConfig 返回默认元素管理配置
func DefaultElementsConfig() *ElementsConfig {
	return &ElementsConfig{
		BusQueueSize: 256,
		HistorySize:  100,
	}
}

// Validate 验证元素管理配置
func (c *ElementsConfig) Validate() error {
	if c.BusQueueSize <= 0 {
		return fmt.Errorf("bus queue size must be positive, got: %d", c.BusQueueSize)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive, got: %d", c.HistorySize)
	}

	names := make(map[string]bool)
	for i, element := range c.Elements {
		if element.Type == "" {
			return fmt.Errorf("element %d: type is required", i)
		}
		if element.Name != "" {
			if names[element.Name] {
				return fmt.Errorf("element %d: duplicate name '%s'", i, element.Name)
			}
			names[element.Name] = true
		}
		if !isTargetState(element.State) {
			return fmt.Errorf("element %d: invalid state '%s'", i, element.State)
		}
	}
	return nil
}

// isTargetState 接受与元素状态解析相同的写法 (PLAYING, playing, STATE_PLAYING, GST_STATE_PLAYING, 4)
func isTargetState(state string) bool {
	key := strings.ToUpper(strings.TrimSpace(state))
	if key == "" {
		return true
	}
	key = strings.TrimPrefix(key, "GST_")
	key = strings.TrimPrefix(key, "STATE_")

	switch key {
	case "NULL", "READY", "PAUSED", "PLAYING", "1", "2", "3", "4":
		return true
	}
	return false
}
