package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/algorithm-ninja/task-wizard/internal/artifact"
	"github.com/algorithm-ninja/task-wizard/internal/auth"
	"github.com/algorithm-ninja/task-wizard/internal/common/cache"
	"github.com/algorithm-ninja/task-wizard/internal/common/db"
	"github.com/algorithm-ninja/task-wizard/internal/common/mq"
	"github.com/algorithm-ninja/task-wizard/internal/common/storage"
	"github.com/algorithm-ninja/task-wizard/internal/contest/controller"
	"github.com/algorithm-ninja/task-wizard/internal/contest/repository"
	"github.com/algorithm-ninja/task-wizard/internal/contest/service"
	"github.com/algorithm-ninja/task-wizard/internal/evaluation"
	"github.com/algorithm-ninja/task-wizard/internal/judge"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/logger"
)

const defaultConfigPath = "configs/contest_server.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()
	dbProvider := db.NewManager(mysqlDB)

	var redisCache *cache.RedisCache
	if appCfg.Redis.Addr != "" {
		redisCache, err = cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(context.Background(), "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = redisCache.Close()
		}()
	}

	blobBackend, err := buildBlobBackend(appCfg, dbProvider)
	if err != nil {
		logger.Error(context.Background(), "init blob backend failed", zap.Error(err))
		return
	}
	artifactStore, err := artifact.NewStore(blobBackend, appCfg.Artifact.WorkspaceDir)
	if err != nil {
		logger.Error(context.Background(), "init artifact store failed", zap.Error(err))
		return
	}

	judgeClient, err := judge.NewHarnessClient(appCfg.Judge)
	if err != nil {
		logger.Error(context.Background(), "init judge client failed", zap.Error(err))
		return
	}

	var publisher evaluation.StatusPublisher
	if appCfg.Evaluation.PublishStatus {
		mqClient, err := mq.NewKafkaQueue(appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = mqClient.Close()
		}()
		publisher = evaluation.NewMQStatusPublisher(mqClient, appCfg.Evaluation.StatusTopic)
	}

	var statusCache *evaluation.StatusCache
	if redisCache != nil {
		statusCache = evaluation.NewStatusCache(redisCache)
	}

	orchestrator, err := evaluation.NewOrchestrator(evaluation.OrchestratorConfig{
		Repository: evaluation.NewMySQLRepository(dbProvider),
		Archives:   artifactStore,
		Judge:      judgeClient,
		Publisher:  publisher,
		Cache:      statusCache,
		MaxActive:  appCfg.Evaluation.MaxActive,
		RunTimeout: appCfg.Evaluation.RunTimeout,
	})
	if err != nil {
		logger.Error(context.Background(), "init orchestrator failed", zap.Error(err))
		return
	}

	guard := auth.Guard{SkipAuth: appCfg.Auth.SkipAuth, Secret: []byte(appCfg.Auth.Secret)}
	userRepo := repository.NewUserRepository(dbProvider)

	var authService *auth.Service
	if appCfg.Auth.Secret != "" {
		authService, err = auth.NewService(auth.ServiceConfig{
			Secret:   []byte(appCfg.Auth.Secret),
			Users:    userRepo,
			TokenTTL: appCfg.Auth.TokenTTL,
		})
		if err != nil {
			logger.Error(context.Background(), "init auth service failed", zap.Error(err))
			return
		}
	}

	contestService, err := service.NewContestService(service.Config{
		Guard:        guard,
		AuthService:  authService,
		Problems:     repository.NewProblemRepository(dbProvider, redisOrNil(redisCache)),
		Users:        userRepo,
		Submissions:  repository.NewSubmissionRepository(dbProvider),
		Artifacts:    artifactStore,
		Judge:        judgeClient,
		Orchestrator: orchestrator,
		MaxFileSize:  appCfg.Submit.MaxFileSize,
	})
	if err != nil {
		logger.Error(context.Background(), "init contest service failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg, contestService)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "contest http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	orchestrator.Wait()
}

func buildBlobBackend(appCfg *AppConfig, dbProvider db.Provider) (artifact.BlobBackend, error) {
	if appCfg.Artifact.Backend == artifactBackendMinIO {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			return nil, err
		}
		return artifact.NewObjectBlobBackend(objStorage, appCfg.MinIO.Bucket)
	}
	return artifact.NewSQLBlobRepository(dbProvider), nil
}

func redisOrNil(redisCache *cache.RedisCache) cache.Cache {
	if redisCache == nil {
		return nil
	}
	return redisCache
}

func buildHTTPServer(appCfg *AppConfig, contestService *service.ContestService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(controller.TraceMiddleware())
	router.Use(requestLogger())
	router.Use(controller.AuthMiddleware([]byte(appCfg.Auth.Secret)))

	api := router.Group("/api/v1")
	contestController := controller.NewContestController(contestService)
	contestController.RegisterRoutes(api)

	return &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
