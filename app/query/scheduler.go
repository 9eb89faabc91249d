package query

import (
	"context"
	"strings"
	"time"

	"github.com/canopy-network/explorerx/app/query/types"
	"github.com/canopy-network/explorerx/pkg/cache"
	"github.com/canopy-network/explorerx/pkg/db"
	"github.com/canopy-network/explorerx/pkg/db/postgres"
	"github.com/canopy-network/explorerx/pkg/db/postgres/chain"
	"github.com/canopy-network/explorerx/pkg/utils"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// DefaultViewRefreshCron refreshes the uptime and signing views every five minutes (seconds field first).
	DefaultViewRefreshCron = "0 */5 * * * *"
	cacheSweepCron         = "@every 1m"
)

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}

// SetupScheduler builds app.Cron. VIEW_REFRESH_CRON=off skips view maintenance;
// memory is swept when the in-process cache is in use.
func SetupScheduler(ctx context.Context, app *types.App, memory *cache.Memory) error {
	logger := cronLogger{logger: app.Logger.Named("cron").Sugar()}
	app.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger)), cron.WithLogger(logger))

	if memory != nil {
		if _, err := app.Cron.AddFunc(cacheSweepCron, func() {
			if n := memory.Sweep(); n > 0 {
				app.Logger.Debug("Swept expired cache entries", zap.Int("removed", n), zap.Int("remaining", memory.Len()))
			}
		}); err != nil {
			return err
		}
	}

	spec := strings.TrimSpace(utils.Env("VIEW_REFRESH_CRON", DefaultViewRefreshCron))
	if spec == "off" {
		app.Logger.Info("Materialized view refresh disabled")
		return nil
	}

	views, err := chain.New(ctx, app.Logger, postgres.GetPoolConfigForComponent("maintenance"))
	if err != nil {
		return err
	}
	if utils.EnvBool("VIEW_ENSURE", true) {
		if err := views.EnsureViews(ctx); err != nil {
			views.Close()
			return err
		}
	}
	app.Views = views

	return ScheduleViewRefresh(ctx, app.Cron, spec, views, app.Logger)
}

// ScheduleViewRefresh registers a bounded refresh of every materialized view on spec.
func ScheduleViewRefresh(ctx context.Context, c *cron.Cron, spec string, views db.ViewMaintainer, logger *zap.Logger) error {
	timeout := utils.EnvDuration("VIEW_REFRESH_TIMEOUT", 2*time.Minute)
	_, err := c.AddFunc(spec, func() {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := views.RefreshViews(rctx); err != nil {
			logger.Warn("Materialized view refresh incomplete", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	logger.Info("Materialized view refresh scheduled", zap.String("cron", spec))
	return nil
}
