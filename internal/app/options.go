package app

import (
	"os"
	"time"

	"github.com/paynotify/internal/config"
	"github.com/paynotify/internal/logger"

	"go.uber.org/zap"
)

const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项，ShutdownTimeout 未指定时取 server.shutdown_timeout_ms
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		if opts.Config != nil {
			opts.ShutdownTimeout = opts.Config.Server.ShutdownTimeout()
		} else {
			opts.ShutdownTimeout = config.ServerConfig{}.ShutdownTimeout()
		}
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
