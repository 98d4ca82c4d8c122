package util

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logger instance
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(textFormatter())
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// LogConfig describes where and how the CLI logs.
type LogConfig struct {
	Level string // logrus level name; empty keeps the current level
	JSON  bool

	// File, when set, receives a copy of stderr output, rotated by size.
	File       string
	MaxSizeMB  int // 0 = lumberjack default (100MB)
	MaxBackups int
}

// ConfigureLogging applies cfg to the global logger.
func ConfigureLogging(cfg LogConfig) error {
	if cfg.Level != "" {
		if err := SetLogLevel(cfg.Level); err != nil {
			return err
		}
	}
	if cfg.JSON {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
		})
	} else {
		Logger.SetFormatter(textFormatter())
	}
	if cfg.File == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return err
	}
	Logger.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}))
	return nil
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// WithDevice returns a logger with device context
func WithDevice(device string) *logrus.Entry {
	return Logger.WithField("device", device)
}

// WithInterface returns a logger with device and interface context
func WithInterface(device, iface string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{"device": device, "interface": iface})
}

// WithTxn returns a logger scoped to one change transaction
func WithTxn(txnID, device, iface string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{"txn": txnID, "device": device, "interface": iface})
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}
