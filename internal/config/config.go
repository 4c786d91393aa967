package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "GSTELEMENT_"

// Config 服务配置聚合器
type Config struct {
	// 日志配置模块
	Logging *LoggingConfig `yaml:"logging" toml:"logging" json:"logging" envPrefix:"LOG_"`

	// Web服务器配置模块
	WebServer *WebServerConfig `yaml:"webserver" toml:"webserver" json:"webserver" envPrefix:"WEB_"`

	// Metrics配置模块
	Metrics *MetricsConfig `yaml:"metrics" toml:"metrics" json:"metrics" envPrefix:"METRICS_"`

	// 状态迁移日志配置模块
	Journal *JournalConfig `yaml:"journal" toml:"journal" json:"journal" envPrefix:"JOURNAL_"`

	// 元素配置模块
	Elements *ElementsConfig `yaml:"elements" toml:"elements" json:"elements" envPrefix:"ELEMENTS_"`

	// 生命周期管理配置
	Lifecycle LifecycleConfig `yaml:"lifecycle" toml:"lifecycle" json:"lifecycle" envPrefix:"LIFECYCLE_"`
}

// LifecycleConfig 生命周期管理配置
type LifecycleConfig struct {
	// 优雅关闭超时时间
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// 组件启动超时时间
	StartupTimeout Duration `yaml:"startup_timeout" toml:"startup_timeout" json:"startup_timeout" env:"STARTUP_TIMEOUT"`
}

// Duration 可以从 "30s" 形式的文本解析的时间间隔 (YAML、TOML、环境变量通用)
type Duration time.Duration

// Std 返回标准库 time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText 实现 encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Logging:   DefaultLoggingConfig(),
		WebServer: DefaultWebServerConfig(),
		Metrics:   DefaultMetricsConfig(),
		Journal:   DefaultJournalConfig(),
		Elements:  DefaultElementsConfig(),
		Lifecycle: LifecycleConfig{
			ShutdownTimeout: Duration(30 * time.Second),
			StartupTimeout:  Duration(60 * time.Second),
		},
	}
}

// LoadConfigFromFile 从文件加载配置，根据扩展名选择 YAML 或 TOML
func LoadConfigFromFile(filename string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := unmarshalConfig(filename, data, config); err != nil {
		return nil, err
	}
	config.fillDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func unmarshalConfig(filename string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		if err := toml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse TOML config file: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension: %s", filepath.Ext(filename))
	}
	return nil
}

// fillDefaults 为配置文件中显式置空的模块补齐默认值
func (c *Config) fillDefaults() {
	if c.Logging == nil {
		c.Logging = DefaultLoggingConfig()
	}
	if c.WebServer == nil {
		c.WebServer = DefaultWebServerConfig()
	}
	if c.Metrics == nil {
		c.Metrics = DefaultMetricsConfig()
	}
	if c.Journal == nil {
		c.Journal = DefaultJournalConfig()
	}
	if c.Elements == nil {
		c.Elements = DefaultElementsConfig()
	}
}

// ApplyEnv 使用 GSTELEMENT_* 环境变量覆盖配置
func (c *Config) ApplyEnv() error {
	c.fillDefaults()
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadConfig 加载配置：默认值 <- 配置文件 (可选) <- 环境变量
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()
	if filename != "" {
		loaded, err := LoadConfigFromFile(filename)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return fmt.Errorf("invalid logging config: %w", err)
		}
	}

	if c.WebServer != nil {
		if err := c.WebServer.Validate(); err != nil {
			return fmt.Errorf("invalid webserver config: %w", err)
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("invalid metrics config: %w", err)
		}
	}

	if c.Journal != nil {
		if err := c.Journal.Validate(); err != nil {
			return fmt.Errorf("invalid journal config: %w", err)
		}
	}

	if c.Elements != nil {
		if err := c.Elements.Validate(); err != nil {
			return fmt.Errorf("invalid elements config: %w", err)
		}
	}

	if err := c.validateLifecycleConfig(); err != nil {
		return fmt.Errorf("invalid lifecycle config: %w", err)
	}

	if err := c.validateCrossModuleCompatibility(); err != nil {
		return fmt.Errorf("module compatibility error: %w", err)
	}

	return nil
}

// validateLifecycleConfig 验证生命周期配置
func (c *Config) validateLifecycleConfig() error {
	if c.Lifecycle.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got: %v", c.Lifecycle.ShutdownTimeout.Std())
	}

	if c.Lifecycle.StartupTimeout <= 0 {
		return fmt.Errorf("startup timeout must be positive, got: %v", c.Lifecycle.StartupTimeout.Std())
	}

	return nil
}

// validateCrossModuleCompatibility 验证模块间的兼容性
func (c *Config) validateCrossModuleCompatibility() error {
	if c.WebServer != nil && c.WebServer.Enabled && c.Metrics != nil && c.Metrics.Enabled {
		if c.WebServer.Port == c.Metrics.Port {
			return fmt.Errorf("port conflict: metrics port %d already used by webserver", c.Metrics.Port)
		}
	}
	return nil
}

// String 返回配置的字符串表示
func (c *Config) String() string {
	webInfo := "disabled"
	if c.WebServer != nil && c.WebServer.Enabled {
		webInfo = fmt.Sprintf("%s:%d", c.WebServer.Host, c.WebServer.Port)
	}

	metricsInfo := "disabled"
	if c.Metrics != nil && c.Metrics.Enabled {
		metricsInfo = fmt.Sprintf("%s:%d%s", c.Metrics.Host, c.Metrics.Port, c.Metrics.Path)
	}

	journalInfo := "disabled"
	if c.Journal != nil && c.Journal.Enabled {
		journalInfo = c.Journal.Path
	}

	elements := 0
	if c.Elements != nil {
		elements = len(c.Elements.Elements)
	}

	return fmt.Sprintf("Config{WebServer: %s, Metrics: %s, Journal: %s, Elements: %d}",
		webInfo, metricsInfo, journalInfo, elements)
}

// SaveToFile 保存配置到文件，根据扩展名选择 YAML 或 TOML
func (c *Config) SaveToFile(filename string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		data, err = toml.Marshal(c)
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
