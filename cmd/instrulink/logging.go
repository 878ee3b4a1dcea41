/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logOnce sync.Once
	appLog  *slog.Logger
)

// appLogger builds the process logger from the log-level, log-format
// and log-file settings. Long-running captures log to a rotated file;
// everything else goes to stderr.
func appLogger() *slog.Logger {
	logOnce.Do(func() {
		var out io.Writer = os.Stderr
		if file := viper.GetString("log-file"); file != "" {
			out = &lumberjack.Logger{
				Filename:   file,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}

		opts := &slog.HandlerOptions{Level: parseLogLevel(viper.GetString("log-level"))}

		var handler slog.Handler
		switch viper.GetString("log-format") {
		case "json":
			handler = slog.NewJSONHandler(out, opts)
		default:
			handler = slog.NewTextHandler(out, opts)
		}
		appLog = slog.New(handler)
	})
	return appLog
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
