package log

import (
	"go.uber.org/zap/zapcore"
)

// 日志配置默认值
const (
	// defaultLogLevel 默认日志级别设为"info"
	// info级别平衡了信息量和性能，记录重要事件但不过于详细
	defaultLogLevel = "info"

	// defaultToConsole 默认启用控制台输出
	defaultToConsole = true

	// defaultFilePath 默认不写文件，仅控制台输出
	defaultFilePath = ""

	// defaultMaxSize 单个日志文件最大大小设为100MB
	defaultMaxSize = 100

	// defaultMaxBackups 最大备份文件数设为10
	defaultMaxBackups = 10

	// defaultMaxAge 日志文件最大保留天数设为30天
	defaultMaxAge = 30

	// defaultCompress 默认启用历史日志压缩
	defaultCompress = true

	// defaultEnableCaller 默认启用调用者信息
	defaultEnableCaller = true

	// defaultEnableStacktrace 默认对Error级别启用堆栈跟踪
	defaultEnableStacktrace = true
)

// 默认的日志级别映射
var defaultLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"panic": zapcore.PanicLevel,
	"fatal": zapcore.FatalLevel,
}
