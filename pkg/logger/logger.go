package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	log   *slog.Logger
	level *slog.LevelVar
}

func New() *Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	file := &lumberjack.Logger{
		Filename:   "logs/app.log",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}

	handler := slogmulti.Fanout(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	)

	return &Logger{
		log:   slog.New(handler),
		level: level,
	}
}

func (l *Logger) SetLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		l.level.Set(slog.LevelDebug)
	case "info":
		l.level.Set(slog.LevelInfo)
	case "warn":
		l.level.Set(slog.LevelWarn)
	case "error":
		l.level.Set(slog.LevelError)
	}
}

func (l *Logger) Debug(msg string, args ...slog.Attr) {
	l.log.LogAttrs(context.Background(), slog.LevelDebug, msg, args...)
}

func (l *Logger) Info(msg string, args ...slog.Attr) {
	l.log.LogAttrs(context.Background(), slog.LevelInfo, msg, args...)
}

func (l *Logger) Warn(msg string, args ...slog.Attr) {
	l.log.LogAttrs(context.Background(), slog.LevelWarn, msg, args...)
}

func (l *Logger) Error(msg string, err error, args ...slog.Attr) {
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	l.log.LogAttrs(context.Background(), slog.LevelError, msg, args...)
}
