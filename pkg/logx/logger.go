// SPDX-License-Identifier: Apache-2.0

// Package logx builds configured zerolog loggers: a console writer for
// interactive use plus an optional size-rotated log file. The constructed
// logger is returned to the caller; there is no package-level logger.
package logx

import (
	"io"
	"os"
	"path"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/docshift/docshift/pkg/fsx"
)

// Config holds the logging configuration.
type Config struct {
	// Level is the log level to use (e.g. "info", "debug").
	Level string `yaml:"level" mapstructure:"level"`
	// Console enables human-readable logging to stdout.
	Console bool `yaml:"console" mapstructure:"console"`
	// FileLogging enables JSON logging to a rolling file.
	FileLogging bool `yaml:"fileLogging" mapstructure:"fileLogging"`
	// Directory specifies the directory for log files.
	Directory string `yaml:"directory" mapstructure:"directory"`
	// Filename is the name of the log file.
	Filename string `yaml:"filename" mapstructure:"filename"`
	// MaxSize is the maximum size (in MB) of a log file before it is rolled.
	MaxSize int `yaml:"maxSize" mapstructure:"maxSize"`
	// MaxBackups is the maximum number of rolled log files to keep.
	MaxBackups int `yaml:"maxBackups" mapstructure:"maxBackups"`
	// MaxAge is the maximum age (in days) to keep a log file.
	MaxAge int `yaml:"maxAge" mapstructure:"maxAge"`
	// Compress enables compression of rolled log files.
	Compress bool `yaml:"compress" mapstructure:"compress"`
}

// DefaultConfig returns console-only logging at info level.
func DefaultConfig() Config {
	return Config{Level: "info", Console: true}
}

// New builds a logger from cfg. An empty level defaults to info; disabling
// both outputs yields a no-op logger.
func New(cfg Config) (zerolog.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = zerolog.LevelInfoValue
	}

	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
	if cfg.FileLogging {
		if err := fsx.EnsureDirectory(cfg.Directory, 0o750); err != nil {
			return zerolog.Nop(), err
		}
		writers = append(writers, newRollingFile(cfg))
	}
	if len(writers) == 0 {
		return zerolog.Nop(), nil
	}

	mw := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(mw).Level(l).With().Timestamp().Logger(), nil
}

func newRollingFile(cfg Config) io.Writer {
	return &lumberjack.Logger{
		Filename:   path.Join(cfg.Directory, cfg.Filename),
		MaxBackups: cfg.MaxBackups, // files
		MaxSize:    cfg.MaxSize,    // megabytes
		MaxAge:     cfg.MaxAge,     // days
		Compress:   cfg.Compress,
	}
}
