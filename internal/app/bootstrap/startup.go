// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/gatherhub/gatherhub/internal/app/notify"
	"go.uber.org/zap"
)

// dispatcher is the process-wide notification dispatcher. It is created
// in Startup, handed to the participation feature in BuildHandler, and
// stopped in Shutdown.
var dispatcher *notify.Dispatcher

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	dispatcher = notify.NewDispatcher(
		notify.LogSender{Log: logger},
		logger,
		appCfg.NotifyDelay,
		appCfg.NotifyQueueSize,
	)
	dispatcher.Start()
	logger.Info("notification dispatcher started",
		zap.Duration("delay", appCfg.NotifyDelay),
		zap.Int("queue_size", appCfg.NotifyQueueSize))
	return nil
}
