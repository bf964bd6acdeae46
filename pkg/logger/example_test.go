package logger_test

import (
	"errors"

	"github.com/wonny/spreadindex/pkg/config"
	"github.com/wonny/spreadindex/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Index run started")
	log.Infof("Loaded %d observables", 2)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"strategy": "spx_tlt_spread",
		"level":    101.37,
	}).Info("Index level published")

	log.WithError(errors.New("offset out of range")).Error("Index run aborted")
}
