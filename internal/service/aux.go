package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"vawter.tech/stopper"

	"github.com/kahiteam/redisvc/internal/api"
	"github.com/kahiteam/redisvc/internal/config"
	"github.com/kahiteam/redisvc/internal/version"
)

// auxGrace bounds how long auxiliaries get to wind down at stop.
const auxGrace = 2 * time.Second

// startAuxiliaries launches the optional status server and config watcher.
// Neither is required for the service to run, so failures are warnings.
func (c *Controller) startAuxiliaries(ctx context.Context, svc *config.ServiceConfig, logger *slog.Logger) *stopper.Context {
	sctx := stopper.WithContext(ctx)
	settings := c.opts.Settings

	if listen := settings.Status.Listen; listen != "" {
		var metricsHandler http.Handler
		if c.opts.Metrics != nil {
			metricsHandler = c.opts.Metrics.Handler()
		}
		srv := api.NewServer(api.Config{
			Listen:   listen,
			Username: settings.Status.Username,
			Password: settings.Status.Password,
			Version: map[string]string{
				"version": version.Version,
				"commit":  version.Commit,
				"date":    version.Date,
			},
		}, c, metricsHandler, logger)

		if err := srv.Start(listen); err != nil {
			logger.Warn("cannot start status server", "error", err)
		} else {
			sctx.Defer(func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), auxGrace)
				defer cancel()
				if err := srv.Stop(shutdownCtx); err != nil {
					logger.Warn("status server did not stop cleanly", "error", err)
				}
			})
		}
	}

	if settings.WatchConfig {
		w, err := NewConfigWatcher(svc.ConfigFilePath, logger, c.opts.Metrics)
		if err != nil {
			logger.Warn("cannot watch configuration file", "error", err)
		} else {
			sctx.Go(func(sctx *stopper.Context) error {
				return w.Run(sctx)
			})
		}
	}

	return sctx
}

func stopAuxiliaries(sctx *stopper.Context, logger *slog.Logger) {
	sctx.Stop(auxGrace)
	if err := sctx.Wait(); err != nil {
		logger.Warn("auxiliary task failed", "error", err)
	}
}
