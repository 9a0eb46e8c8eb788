package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

var (
	mu  sync.RWMutex
	log *slog.Logger
)

// Init инициализирует глобальный логгер.
// env: "development" - текст в stdout с debug-уровнем, иначе JSON.
// Если logFile не пустой, записи дублируются в файл в JSON.
// Возвращает функцию закрытия файла.
func Init(env, logFile string) (func() error, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true}

	var console slog.Handler
	if env == "development" {
		opts.Level = slog.LevelDebug
		console = slog.NewTextHandler(os.Stdout, opts)
	} else {
		console = slog.NewJSONHandler(os.Stdout, opts)
	}

	cleanup := func() error { return nil }
	handler := console

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return cleanup, fmt.Errorf("open log file %s: %w", logFile, err)
		}
		handler = slogmulti.Fanout(console, slog.NewJSONHandler(f, opts))
		cleanup = f.Close
	}

	set(slog.New(handler))
	return cleanup, nil
}

// InitWithWriters - вариант для тестов: текст в console, JSON в file.
func InitWithWriters(console, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	l := slog.New(slogmulti.Fanout(
		slog.NewTextHandler(console, opts),
		slog.NewJSONHandler(file, opts),
	))
	set(l)
	return l
}

func set(l *slog.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
	slog.SetDefault(l)
}

// GetLogger возвращает глобальный логгер
func GetLogger() *slog.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		return slog.Default()
	}
	return l
}

// ============================================
// Convenience функции
// ============================================

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// With создает логгер с дополнительными полями
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}
