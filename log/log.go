package log

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Options 日志初始化选项
type Options struct {
	// 日志级别：debug, info, warn, error
	Level string `cfg:"level" def:"info" validate:"omitempty,oneof=debug info warn error"`

	// 输出格式：text, json
	Format string `cfg:"format" def:"text" validate:"omitempty,oneof=text json"`

	// 输出目标：stdout, stderr, discard 或文件路径
	Output string `cfg:"output" def:"stdout"`

	// 是否显示调用者信息
	AddSource bool `cfg:"addSource"`

	// 自定义字段
	Fields map[string]any `cfg:"fields"`

	// Writer 优先于 Output，用于测试或嵌入
	Writer io.Writer `cfg:"-"`
}

var defaultLogger Logger

func init() {
	l, err := NewLogWithOptions(&Options{Level: "info", Format: "text", Output: "stderr"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = l
}

// Default 返回向终端输出 text 格式日志的默认日志器
func Default() Logger {
	return defaultLogger
}

// Discard 返回丢弃所有输出的日志器
func Discard() Logger {
	l, _ := NewLogWithOptions(&Options{Writer: io.Discard})
	return l
}

func NewLogWithOptions(options *Options) (Logger, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}
	return NewSLogWithOptions(options)
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s failed", output)
	}
	return f, nil
}
