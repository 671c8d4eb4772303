package log

import (
	"go.uber.org/zap/zapcore"
)

// LogOptions 日志配置选项
// 专注于基础设施核心功能的简化配置
type LogOptions struct {
	// === 基础配置 ===
	Level     string `json:"level"`      // 日志级别 (debug, info, warn, error, fatal)
	ToConsole bool   `json:"to_console"` // 是否输出到控制台
	FilePath  string `json:"file_path"`  // 日志文件路径（为空时仅输出控制台）

	// === 基础轮转配置 ===
	MaxSize    int  `json:"max_size"`    // 单个日志文件最大大小(MB)
	MaxBackups int  `json:"max_backups"` // 最大备份文件数
	MaxAge     int  `json:"max_age"`     // 日志文件最大保留天数
	Compress   bool `json:"compress"`    // 是否压缩历史日志文件

	// === 调试配置 ===
	EnableCaller     bool `json:"enable_caller"`     // 是否启用调用者信息
	EnableStacktrace bool `json:"enable_stacktrace"` // 是否启用堆栈跟踪

	// === 内部配置（不对外暴露） ===
	LevelMap map[string]zapcore.Level `json:"-"` // 级别映射
}

// Config 日志配置实现
type Config struct {
	options *LogOptions
}

// New 创建日志配置实现
//
// userOptions 为 nil 时使用默认配置；否则用户字段整体覆盖默认值
func New(userOptions *LogOptions) *Config {
	options := createDefaultLogOptions()

	if userOptions != nil {
		if userOptions.Level != "" {
			options.Level = userOptions.Level
		}
		if userOptions.FilePath != "" {
			options.FilePath = userOptions.FilePath
		}
		options.ToConsole = userOptions.ToConsole
		if userOptions.MaxSize > 0 {
			options.MaxSize = userOptions.MaxSize
		}
		if userOptions.MaxBackups > 0 {
			options.MaxBackups = userOptions.MaxBackups
		}
		if userOptions.MaxAge > 0 {
			options.MaxAge = userOptions.MaxAge
		}
	}

	return &Config{options: options}
}

// createDefaultLogOptions 创建默认日志配置
func createDefaultLogOptions() *LogOptions {
	return &LogOptions{
		Level:     defaultLogLevel,
		ToConsole: defaultToConsole,
		FilePath:  defaultFilePath,

		MaxSize:    defaultMaxSize,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAge,
		Compress:   defaultCompress,

		EnableCaller:     defaultEnableCaller,
		EnableStacktrace: defaultEnableStacktrace,

		LevelMap: defaultLevelMap,
	}
}

// GetOptions 获取完整的日志配置选项
func (c *Config) GetOptions() *LogOptions {
	return c.options
}

// GetLevel 获取日志级别
func (c *Config) GetLevel() string {
	return c.options.Level
}

// GetZapLevel 获取zap日志级别
func (c *Config) GetZapLevel() zapcore.Level {
	if level, exists := c.options.LevelMap[c.options.Level]; exists {
		return level
	}
	return zapcore.InfoLevel // 默认返回Info级别
}
