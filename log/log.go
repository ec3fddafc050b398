// Package log is the logrus facade used across anistream. Entries go to a dated
// file under where.Logs() and are dropped entirely unless logs.write is set.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/key"
	"github.com/anistream/anistream/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	enabled bool
	logger  = silent()
)

func silent() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Setup opens today's log file and applies the configured format and level.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		logger = silent()
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	path := filepath.Join(dir, time.Now().Format(time.DateOnly)+".log")
	f, err := filesystem.API().OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	l := logrus.New()
	l.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		l.SetFormatter(&logrus.JSONFormatter{PrettyPrint: true})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	logger = l
	return nil
}

// WithFields returns an entry carrying structured context, e.g. the binding id
// and variant of a player event.
func WithFields(fields map[string]any) *logrus.Entry {
	return logger.WithFields(logrus.Fields(fields))
}

func Error(args ...any) { logger.Error(args...) }
func Errorf(format string, args ...any) { logger.Errorf(format, args...) }
func Warnf(format string, args ...any) { logger.Warnf(format, args...) }
func Info(args ...any) { logger.Info(args...) }
func Infof(format string, args ...any) { logger.Infof(format, args...) }
func Debugf(format string, args ...any) { logger.Debugf(format, args...) }
