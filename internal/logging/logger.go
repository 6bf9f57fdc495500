// Package logging 基于 zerolog 的全局日志
//
// 环境变量：
//   - LOG_LEVEL: debug, info, warn, error（默认 info）
//   - LOG_FORMAT: json, console（默认 console）
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 日志配置
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	initLogger(Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

// Init 重新配置全局日志，main 启动时调用
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if !strings.EqualFold(cfg.Format, "json") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.DateTime}
	}

	log = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Logger 返回全局 logger
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Component 返回带组件名的 logger
func Component(name string) zerolog.Logger {
	l := Logger()
	return l.With().Str("component", name).Logger()
}

// Info 全局 Info 日志
func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

// Warn 全局 Warn 日志
func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

// Error 全局 Error 日志
func Error() *zerolog.Event {
	l := Logger()
	return l.Error()
}

// Fatal 全局 Fatal 日志，仅在 main 中使用
func Fatal() *zerolog.Event {
	l := Logger()
	return l.Fatal()
}
