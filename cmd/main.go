package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"gitlab.com/newsinsight.net/internal/adapter/logging"
	"gitlab.com/newsinsight.net/internal/adapter/newsapi"
	"gitlab.com/newsinsight.net/internal/adapter/redis/searchcache"
	"gitlab.com/newsinsight.net/internal/config"
	"gitlab.com/newsinsight.net/internal/core/ports/secondary"
	"gitlab.com/newsinsight.net/internal/core/services/orchestrator"
	"gitlab.com/newsinsight.net/internal/core/services/worker"
	logger2 "gitlab.com/newsinsight.net/internal/global/logger"
	http2 "gitlab.com/newsinsight.net/internal/http"
	"gitlab.com/newsinsight.net/internal/metrics"
	"gitlab.com/newsinsight.net/internal/schedulerengine"
	"gitlab.com/newsinsight.net/internal/tcp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "newsinsight",
		Usage: "news search enriched with sentiment, readability and word statistics",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP and TCP servers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env", Usage: "load <env>.env before reading the environment"},
					&cli.IntFlag{Name: "http-port", Usage: "override HTTP_PORT"},
					&cli.StringFlag{Name: "tcp-addr", Usage: "override TCP_ADDR"},
					&cli.StringFlag{Name: "log-level", Usage: "override LOG_LEVEL (debug|info|warn|error)"},
				},
				Action: serve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger2.Error("newsinsight exited", "error", err)
		os.Exit(1)
	}
}

// InitReader loads <environment>.env into the process environment
func InitReader(environment string) error {
	if environment == "" {
		return nil
	}
	if err := godotenv.Load(environment + ".env"); err != nil {
		return fmt.Errorf("error loading %s.env file: %w", environment, err)
	}
	return nil
}

func serve(c *cli.Context) error {
	if err := InitReader(c.String("env")); err != nil {
		return err
	}

	sysCfg := config.NewSystemConfig()
	if c.IsSet("http-port") {
		sysCfg.HttpConfig.Port = c.Int("http-port")
	}
	if c.IsSet("tcp-addr") {
		sysCfg.TcpConfig.Address = c.String("tcp-addr")
	}
	if c.IsSet("log-level") {
		sysCfg.LogLevel = c.String("log-level")
	}

	logger2.Configure(sysCfg.LogLevel)
	logger := logging.NewZapLoggerWithLevel(sysCfg.LogLevel)
	defer logger.Sync()
	logger.Info("Starting newsinsight service", "debug", sysCfg.DebugMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SECONDARY PORTS
	if sysCfg.NewsApiConfig.ApiKey == "" {
		logger.Warn("NEWSAPI_KEY is empty, news API requests will be rejected upstream")
	}
	newsClient := newsapi.NewClient(sysCfg.NewsApiConfig, logger.Named("newsapi"))
	var searcher secondary.ArticleSearcher = newsClient
	if sysCfg.RedisConfig.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     sysCfg.RedisConfig.Url,
			Password: sysCfg.RedisConfig.Password,
			DB:       sysCfg.RedisConfig.DB,
		})
		defer redisClient.Close()

		cache := searchcache.NewCache(redisClient, newsClient, sysCfg.RedisConfig.CacheTTL, logger.Named("searchcache"))
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			logger.Warn("Redis unreachable, searches bypass the cache until it recovers", "addr", sysCfg.RedisConfig.Url, "error", err)
		}
		cancel()
		searcher = cache
	}

	// services
	collectors := metrics.NewCollectors()
	orch := orchestrator.NewOrchestrator(
		sysCfg.OrchestratorCfg,
		worker.NewTasks(searcher, nil),
		newsClient,
		logger.Named("orchestrator"),
		collectors,
	)
	orch.Start(context.Background())

	// servers
	serviceProvider := http2.NewServiceProvider(orch, orch.Done(), collectors.Handler())
	httpServer := http2.NewServer(sysCfg.HttpConfig, "newsinsight", *serviceProvider, logger.Named("http"))
	if err := httpServer.Init(); err != nil {
		orch.Stop()
		return err
	}
	if err := httpServer.Start(ctx); err != nil {
		orch.Stop()
		return err
	}

	var tcpServer *tcp.TCPServer
	if sysCfg.TcpConfig.Enabled {
		tcpServer = tcp.NewTCPServer(orch, logger.Named("tcp"), tcp.WithAddress(sysCfg.TcpConfig.Address))
		if err := tcpServer.Start(); err != nil {
			orch.Stop()
			return err
		}
	}

	engineCtx, stopEngine := context.WithCancel(context.Background())
	engine := schedulerengine.NewSchedulerEngine(sysCfg.OrchestratorCfg, orch, logger.Named("scheduler"))
	engine.StartSessionSweepEngine(engineCtx)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// stopping the orchestrator closes every session queue, which ends the streaming responses
	stopEngine()
	orch.Stop()
	engine.Wait()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop http server", "error", err)
	}
	if tcpServer != nil {
		if err := tcpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop tcp server", "error", err)
		}
	}

	logger.Info("successfully shutdown server")
	return nil
}
