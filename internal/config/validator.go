package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigValidator 配置验证器
// Config.Validate 只拒绝无法运行的配置，这里额外给出部署层面的警告
type ConfigValidator struct {
	logger *logrus.Entry
}

// ValidationResult 验证结果
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// ValidationIssue 单条验证问题
type ValidationIssue struct {
	Field   string
	Value   interface{}
	Message string
	Code    string
}

// NewConfigValidator 创建配置验证器
func NewConfigValidator(logger *logrus.Entry) *ConfigValidator {
	if logger == nil {
		logger = GetLoggerWithPrefix("config-validator")
	}
	return &ConfigValidator{logger: logger}
}

// Check 执行全部检查并返回结果
func (cv *ConfigValidator) Check(config *Config) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if config == nil {
		cv.addError(result, "config", nil, "Configuration is nil", "CONFIG_NULL")
		return result
	}

	if err := config.Validate(); err != nil {
		cv.addError(result, "config", nil, err.Error(), "CONFIG_INVALID")
	}

	cv.validateWebServerConfig(config, result)
	cv.validateMetricsConfig(config, result)
	cv.validateJournalConfig(config, result)
	cv.validateElementsConfig(config, result)

	return result
}

// ValidateConfig 验证配置并记录结果，存在错误时返回 error
func (cv *ConfigValidator) ValidateConfig(config *Config) error {
	result := cv.Check(config)
	cv.logValidationResult(result)

	if !result.Valid {
		return cv.createValidationError(result)
	}
	return nil
}

func (cv *ConfigValidator) validateWebServerConfig(config *Config, result *ValidationResult) {
	ws := config.WebServer
	if ws == nil || !ws.Enabled {
		return
	}

	if ws.Host != "" && ws.Host != "localhost" && net.ParseIP(ws.Host) == nil {
		cv.addWarning(result, "webserver.host", ws.Host, "Host is not a valid IP address or localhost", "INVALID_HOST")
	}
	if ws.EnableCORS {
		cv.addWarning(result, "webserver.enable_cors", true, "CORS is enabled, ensure this is intended for production", "CORS_ENABLED")
	}
}

func (cv *ConfigValidator) validateMetricsConfig(config *Config, result *ValidationResult) {
	m := config.Metrics
	if m == nil || !m.Enabled {
		return
	}

	if m.Namespace == "" {
		cv.addWarning(result, "metrics.namespace", m.Namespace, "Metrics namespace is empty, metric names will not be prefixed", "METRICS_NAMESPACE_EMPTY")
	}
}

func (cv *ConfigValidator) validateJournalConfig(config *Config, result *ValidationResult) {
	j := config.Journal
	if j == nil || !j.Enabled || j.Path == "" {
		return
	}

	if info, err := os.Stat(j.Path); err == nil && info.IsDir() {
		cv.addError(result, "journal.path", j.Path, "Journal path is a directory", "JOURNAL_PATH_IS_DIR")
		return
	}
	if dir := filepath.Dir(j.Path); !cv.dirExists(dir) {
		cv.addWarning(result, "journal.path", j.Path, "Journal directory does not exist and will be created", "JOURNAL_DIR_MISSING")
	}
}

func (cv *ConfigValidator) validateElementsConfig(config *Config, result *ValidationResult) {
	e := config.Elements
	if e == nil {
		return
	}

	if len(e.Elements) > e.BusQueueSize && e.BusQueueSize > 0 {
		cv.addWarning(result, "elements.bus_queue_size", e.BusQueueSize,
			fmt.Sprintf("Bus queue is smaller than the %d configured elements, startup messages may be dropped", len(e.Elements)),
			"BUS_QUEUE_SMALL")
	}
	for i, element := range e.Elements {
		if element.Name == "" {
			cv.addWarning(result, fmt.Sprintf("elements.elements[%d].name", i), element.Name,
				"Element has no name, a generated name will be used", "ELEMENT_NAME_GENERATED")
		}
	}
}

func (cv *ConfigValidator) addError(result *ValidationResult, field string, value interface{}, message, code string) {
	result.Valid = false
	result.Errors = append(result.Errors, ValidationIssue{
		Field:   field,
		Value:   value,
		Message: message,
		Code:    code,
	})
}

func (cv *ConfigValidator) addWarning(result *ValidationResult, field string, value interface{}, message, code string) {
	result.Warnings = append(result.Warnings, ValidationIssue{
		Field:   field,
		Value:   value,
		Message: message,
		Code:    code,
	})
}

func (cv *ConfigValidator) dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (cv *ConfigValidator) logValidationResult(result *ValidationResult) {
	if result.Valid {
		cv.logger.Debug("Configuration validation passed")
		for _, warning := range result.Warnings {
			cv.logger.Warnf("Warning [%s]: %s (field: %s, value: %v)", warning.Code, warning.Message, warning.Field, warning.Value)
		}
		return
	}

	cv.logger.Errorf("Configuration validation failed with %d errors", len(result.Errors))
	for _, err := range result.Errors {
		cv.logger.Errorf("Error [%s]: %s (field: %s, value: %v)", err.Code, err.Message, err.Field, err.Value)
	}
}

func (cv *ConfigValidator) createValidationError(result *ValidationResult) error {
	var errorMessages []string
	for _, err := range result.Errors {
		errorMessages = append(errorMessages, fmt.Sprintf("[%s] %s: %s", err.Code, err.Field, err.Message))
	}

	return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errorMessages, "\n  "))
}
