// Package logger builds the process logger from the logging configuration
package logger

import (
	"io"
	"os"
	"time"

	"github.com/amirphl/workforce-ledger/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a zerolog logger writing to stdout, a rotating file, or both.
// The returned closer releases the log file and is never nil.
func New(cfg config.LoggingConfig, service string) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var console io.Writer = os.Stdout
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	var (
		out    io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if cfg.Output == "file" || cfg.Output == "both" {
		file := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		closer = file
		out = file
		if cfg.Output == "both" {
			out = zerolog.MultiLevelWriter(console, file)
		}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp().Str("service", service)
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
