package main

import (
	"go.uber.org/zap"

	"github.com/kosmed/glucose-monitoring-service/internal/config"
	"github.com/kosmed/glucose-monitoring-service/internal/logging"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
