package main

import (
	"path/filepath"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// LogConfig selects the log level and the directory for per-level files.
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warning, error
	Dir   string `yaml:"dir,omitempty"`   // no files when empty
}

// setupLogging configures the standard logrus logger.
func setupLogging(cfg LogConfig, debug bool) error {
	logger := logrus.StandardLogger()
	logger.Formatter = &prefixed.TextFormatter{FullTimestamp: true}
	level := logrus.InfoLevel
	if cfg.Level != "" {
		l, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = l
	}
	if debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	logger.ReplaceHooks(make(logrus.LevelHooks))
	if cfg.Dir != "" {
		logger.AddHook(lfshook.NewHook(lfshook.PathMap{
			logrus.DebugLevel: filepath.Join(cfg.Dir, "debug.log"),
			logrus.InfoLevel:  filepath.Join(cfg.Dir, "info.log"),
			logrus.WarnLevel:  filepath.Join(cfg.Dir, "warning.log"),
			logrus.ErrorLevel: filepath.Join(cfg.Dir, "error.log"),
		}, &logrus.JSONFormatter{}))
	}
	return nil
}
