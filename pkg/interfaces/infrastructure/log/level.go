// Package log 提供VeilMatch系统的日志级别定义
//
// 📊 **日志级别管理 (Log Level Management)**
//
// 本文件定义了VeilMatch系统的日志级别常量，专注于：
// - 日志级别定义：提供标准的日志级别常量
// - 字符串转换：提供日志级别和字符串的相互转换
package log

// Level 日志级别类型
type Level string

const (
	// DebugLevel 调试级别
	DebugLevel Level = "debug"

	// InfoLevel 信息级别
	InfoLevel Level = "info"

	// WarnLevel 警告级别
	WarnLevel Level = "warn"

	// ErrorLevel 错误级别
	ErrorLevel Level = "error"

	// FatalLevel 致命级别
	FatalLevel Level = "fatal"
)

// String 返回日志级别的字符串表示
func (l Level) String() string {
	return string(l)
}

// IsValid 检查日志级别是否合法
func (l Level) IsValid() bool {
	switch l {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel:
		return true
	default:
		return false
	}
}
