package types

import (
	"context"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/explorerx/app/query/service"
	"github.com/canopy-network/explorerx/pkg/db"
	"github.com/canopy-network/explorerx/pkg/redis"
	"github.com/canopy-network/explorerx/pkg/rpc"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type App struct {
	// Store serves every read; its pool is read-only.
	Store db.ExplorerStore
	// Views refreshes the materialized views. Nil when VIEW_REFRESH_CRON is "off".
	Views db.ViewMaintainer
	// Chain is the lazily connected chain RPC client behind /accounts.
	Chain *rpc.Lazy
	// RedisClient backs the aggregate cache and the live feed. Nil when Redis is disabled.
	RedisClient *redis.Client
	// Pool runs enrichment lookups concurrently.
	Pool    pond.Pool
	Service *service.Service

	// Cron schedules view refreshes and cache sweeps.
	Cron *cron.Cron

	RequestTimeout     time.Duration
	LiveChannelPattern string

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start serves until ctx is done, then shuts everything down in reverse order of startup.
func (a *App) Start(ctx context.Context) {
	if a.Chain != nil {
		a.Chain.Start(ctx)
	}
	if a.Cron != nil {
		a.Cron.Start()
	}
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)

	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	if a.Pool != nil {
		a.Pool.StopAndWait()
	}
	if a.Views != nil {
		if err := a.Views.Close(); err != nil {
			a.Logger.Error("Failed to close maintenance connection", zap.Error(err))
		}
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
