package query

import (
	"context"
	"runtime"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/explorerx/app/query/controller"
	"github.com/canopy-network/explorerx/app/query/service"
	"github.com/canopy-network/explorerx/app/query/types"
	"github.com/canopy-network/explorerx/pkg/cache"
	"github.com/canopy-network/explorerx/pkg/db/postgres"
	"github.com/canopy-network/explorerx/pkg/db/postgres/chain"
	"github.com/canopy-network/explorerx/pkg/logging"
	"github.com/canopy-network/explorerx/pkg/redis"
	"github.com/canopy-network/explorerx/pkg/rpc"
	"github.com/canopy-network/explorerx/pkg/utils"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	store, err := chain.New(ctx, logger, postgres.GetPoolConfigForComponent("query"))
	if err != nil {
		logger.Fatal("Unable to initialize explorer database", zap.Error(err))
	}

	// Redis backs the aggregate cache and the live feed (optional)
	var redisClient *redis.Client
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - falling back to in-memory cache, live feed disabled",
				zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Redis client initialized for aggregate cache and live feed")
		}
	} else {
		logger.Info("Redis disabled - using in-memory cache, live feed will not be available")
	}

	var (
		backend cache.Cache
		memory  *cache.Memory
	)
	if redisClient != nil {
		backend = redisClient
	} else {
		memory = cache.NewMemory()
		backend = memory
	}
	loader := cache.NewLoader(backend, utils.EnvDuration("CACHE_TTL", time.Minute), logger.Named("cache"))

	workers := utils.EnvInt("ENRICH_WORKERS", 4*runtime.NumCPU())
	pool := pond.NewPool(workers, pond.WithQueueSize(workers*16))

	chainRPC := rpc.NewLazy(rpc.OptsFromEnv(), logger.Named("rpc"))

	app := &types.App{
		Store:              store,
		Chain:              chainRPC,
		RedisClient:        redisClient,
		Pool:               pool,
		Service:            service.New(store, loader, pool, chainRPC, logger.Named("service")),
		RequestTimeout:     utils.EnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		LiveChannelPattern: utils.Env("LIVE_CHANNEL_PATTERN", controller.DefaultLivePattern),
		Logger:             logger,
	}

	if err := SetupScheduler(ctx, app, memory); err != nil {
		logger.Fatal("Unable to initialize scheduler", zap.Error(err))
	}

	return app
}
