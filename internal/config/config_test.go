package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8080, cfg.WebServer.Port)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, 256, cfg.Elements.BusQueueSize)
	assert.Equal(t, 30*time.Second, cfg.Lifecycle.ShutdownTimeout.Std())
}

func TestLoadConfigFromFile_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
logging:
  level: debug
webserver:
  port: 9000
elements:
  bus_queue_size: 16
  elements:
    - type: fakesink
      name: sink
      state: PLAYING
      properties:
        sync: true
lifecycle:
  shutdown_timeout: 5s
`)

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format, "unset fields keep defaults")
	assert.Equal(t, 9000, cfg.WebServer.Port)
	assert.Equal(t, 16, cfg.Elements.BusQueueSize)
	assert.Equal(t, 100, cfg.Elements.HistorySize)
	require.Len(t, cfg.Elements.Elements, 1)
	assert.Equal(t, "fakesink", cfg.Elements.Elements[0].Type)
	assert.Equal(t, "PLAYING", cfg.Elements.Elements[0].State)
	assert.Equal(t, true, cfg.Elements.Elements[0].Properties["sync"])
	assert.Equal(t, 5*time.Second, cfg.Lifecycle.ShutdownTimeout.Std())
	assert.Equal(t, 60*time.Second, cfg.Lifecycle.StartupTimeout.Std())
}

func TestLoadConfigFromFile_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[logging]
level = "warn"

[metrics]
enabled = true
port = 9191

[journal]
enabled = true
path = "journal.db"

[[elements.elements]]
type = "identity"
name = "id0"

[lifecycle]
startup_timeout = "10s"
`)

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "journal.db", cfg.Journal.Path)
	require.Len(t, cfg.Elements.Elements, 1)
	assert.Equal(t, "id0", cfg.Elements.Elements[0].Name)
	assert.Equal(t, 10*time.Second, cfg.Lifecycle.StartupTimeout.Std())
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigFromFile(writeFile(t, "config.ini", "level=debug"))
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = LoadConfigFromFile(writeFile(t, "broken.yaml", "logging: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse YAML")

	_, err = LoadConfigFromFile(writeFile(t, "bad.yaml", "logging:\n  level: loud\n"))
	assert.ErrorContains(t, err, "invalid log level")

	_, err = LoadConfigFromFile(writeFile(t, "bad.toml", "[lifecycle]\nshutdown_timeout = \"soon\"\n"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "logging:\n  level: debug\nwebserver:\n  port: 9000\n")

	t.Setenv("GSTELEMENT_LOG_LEVEL", "error")
	t.Setenv("GSTELEMENT_WEB_PORT", "9100")
	t.Setenv("GSTELEMENT_LIFECYCLE_SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("GSTELEMENT_ELEMENTS_HISTORY_SIZE", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 9100, cfg.WebServer.Port)
	assert.Equal(t, 2*time.Second, cfg.Lifecycle.ShutdownTimeout.Std())
	assert.Equal(t, 7, cfg.Elements.HistorySize)
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv("GSTELEMENT_METRICS_ENABLED", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 8080, cfg.WebServer.Port)
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	t.Setenv("GSTELEMENT_WEB_PORT", "not-a-port")

	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "parse env")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name: "port conflict",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = c.WebServer.Port
			},
			wantErr: "port conflict",
		},
		{
			name:    "invalid state",
			mutate:  func(c *Config) { c.Elements.Elements = []ElementConfig{{Type: "fakesink", State: "RUNNING"}} },
			wantErr: "invalid state",
		},
		{
			name: "duplicate names",
			mutate: func(c *Config) {
				c.Elements.Elements = []ElementConfig{
					{Type: "fakesink", Name: "a"},
					{Type: "fakesrc", Name: "a"},
				}
			},
			wantErr: "duplicate name",
		},
		{
			name:    "missing type",
			mutate:  func(c *Config) { c.Elements.Elements = []ElementConfig{{Name: "a"}} },
			wantErr: "type is required",
		},
		{
			name:    "bus queue size",
			mutate:  func(c *Config) { c.Elements.BusQueueSize = 0 },
			wantErr: "bus queue size",
		},
		{
			name:    "journal without path",
			mutate:  func(c *Config) { c.Journal.Enabled = true; c.Journal.Path = "" },
			wantErr: "journal path is required",
		},
		{
			name:    "metrics path",
			mutate:  func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Path = "metrics" },
			wantErr: "must start with '/'",
		},
		{
			name:    "shutdown timeout",
			mutate:  func(c *Config) { c.Lifecycle.ShutdownTimeout = 0 },
			wantErr: "shutdown timeout",
		},
		{
			name:    "log output file without path",
			mutate:  func(c *Config) { c.Logging.Output = "file" },
			wantErr: "log file path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestElementsConfig_StateSpellings(t *testing.T) {
	for _, state := range []string{"", "paused", "PLAYING", "STATE_PLAYING", "GST_STATE_PAUSED", "gst_state_ready", " 3 ", "1"} {
		cfg := DefaultElementsConfig()
		cfg.Elements = []ElementConfig{{Type: "fakesink", State: state}}
		assert.NoError(t, cfg.Validate(), "state %q", state)
	}

	for _, state := range []string{"RUNNING", "STATE_", "GST_", "0", "5", "VOID_PENDING"} {
		cfg := DefaultElementsConfig()
		cfg.Elements = []ElementConfig{{Type: "fakesink", State: state}}
		assert.ErrorContains(t, cfg.Validate(), "invalid state", "state %q", state)
	}
}

func TestConfig_SaveToFile(t *testing.T) {
	for _, ext := range []string{".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Logging.Level = "debug"
			cfg.Lifecycle.ShutdownTimeout = Duration(3 * time.Second)
			cfg.Elements.Elements = []ElementConfig{{Type: "queue", Name: "q", State: "READY"}}

			path := filepath.Join(t.TempDir(), "saved"+ext)
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadConfigFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, "debug", loaded.Logging.Level)
			assert.Equal(t, 3*time.Second, loaded.Lifecycle.ShutdownTimeout.Std())
			require.Len(t, loaded.Elements.Elements, 1)
			assert.Equal(t, "q", loaded.Elements.Elements[0].Name)
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Journal.Enabled = true
	s := cfg.String()
	assert.Contains(t, s, "WebServer: 0.0.0.0:8080")
	assert.Contains(t, s, "Metrics: disabled")
	assert.Contains(t, s, "Journal: gst-element.db")
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("  WARN ")
	require.NoError(t, err)
	assert.Equal(t, "warn", level)

	level, err = ParseLogLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "info", level)
}

func TestSetupLogger(t *testing.T) {
	std := logrus.StandardLogger()
	prevOut, prevLevel, prevFormatter := std.Out, std.GetLevel(), std.Formatter
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
	})

	logFile := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, SetupLogger(&LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File:   logFile,
	}))
	assert.Equal(t, "debug", GetGlobalLogLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, std.Formatter)

	GetLoggerWithPrefix("test").Info("hello")
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)

	require.NoError(t, SetGlobalLogLevel("warn"))
	assert.Equal(t, "warning", GetGlobalLogLevel())
	assert.Error(t, SetGlobalLogLevel("loud"))

	assert.Error(t, SetupLogger(&LoggingConfig{Level: "info", Format: "xml", Output: "stderr"}))
}

func TestConfigValidator(t *testing.T) {
	validator := NewConfigValidator(nil)

	result := validator.Check(DefaultConfig())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, "CORS_ENABLED", result.Warnings[0].Code)
	assert.NoError(t, validator.ValidateConfig(DefaultConfig()))

	cfg := DefaultConfig()
	cfg.Journal.Enabled = true
	cfg.Journal.Path = t.TempDir()
	cfg.Elements.Elements = []ElementConfig{{Type: "fakesink"}}
	result = validator.Check(cfg)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "JOURNAL_PATH_IS_DIR", result.Errors[0].Code)

	codes := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "ELEMENT_NAME_GENERATED")

	err := validator.ValidateConfig(cfg)
	assert.ErrorContains(t, err, "JOURNAL_PATH_IS_DIR")

	cfg = DefaultConfig()
	cfg.WebServer.Port = 0
	result = validator.Check(cfg)
	assert.False(t, result.Valid)
	assert.Equal(t, "CONFIG_INVALID", result.Errors[0].Code)

	assert.False(t, validator.Check(nil).Valid)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	std := logrus.StandardLogger()
	prevOut, prevLevel, prevFormatter := std.Out, std.GetLevel(), std.Formatter
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
	})

	path := writeFile(t, "config.yaml", "logging:\n  level: info\n")

	reloaded := make(chan *Config, 4)
	watcher := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// 等待监听生效后再修改文件
	var cfg *Config
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644)
		select {
		case cfg = <-reloaded:
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}
