package logging

import (
	"fmt"
	"io"
	"os"

	"label-catalog-api/pkg/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard logrus logger. The returned closer releases
// the log file, if one was configured.
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	return Configure(logrus.StandardLogger(), cfg, os.Stdout)
}

// Configure applies cfg to logger, writing to stdout and, when a file path is
// set, to a rotating log file as well.
func Configure(logger *logrus.Logger, cfg config.LoggingConfig, stdout io.Writer) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	writer, closer := buildWriter(cfg, stdout)
	logger.SetOutput(writer)
	return closer, nil
}

func buildWriter(cfg config.LoggingConfig, stdout io.Writer) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return stdout, nopCloser{}
	}

	maxSize := cfg.FileMaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxFiles := cfg.FileMaxFiles
	if maxFiles <= 0 {
		maxFiles = 3
	}
	maxAge := cfg.FileMaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    maxSize,
		MaxBackups: maxFiles,
		MaxAge:     maxAge,
	}
	return io.MultiWriter(stdout, lj), lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
