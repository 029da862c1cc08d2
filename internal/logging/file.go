package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for log files written by NewFileLogger.
const (
	fileMaxSizeMB  = 100
	fileMaxBackups = 10
	fileMaxAgeDays = 30
)

// NewFileLogger returns a JSON logger writing to a size rotated file at
// path, and the writer to close on shutdown.
func NewFileLogger(path string) (*slog.Logger, io.Closer) {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(w, nil)), w
}
