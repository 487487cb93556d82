package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New creates a logger that writes to logs/<component>.log and returns it
// with a cleanup. A blank level means info.
func New(component, level string) (*logrus.Entry, func(), error) {
	logger, err := newLogger(level)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll("logs", 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join("logs", component+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger.SetOutput(f)
	return logger.WithField("component", component), func() { _ = f.Close() }, nil
}

// Stderr creates a logger that writes to standard error, for launchers that
// should not touch the filesystem.
func Stderr(component, level string) (*logrus.Entry, error) {
	logger, err := newLogger(level)
	if err != nil {
		return nil, err
	}
	return logger.WithField("component", component), nil
}

func newLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		logger.SetLevel(lvl)
	}
	return logger, nil
}
