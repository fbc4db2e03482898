package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/analytics"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/authorization"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/collector"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/database"
	mqttcommon "github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/mqtt"
	rediscommon "github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/redis"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/config"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/consumer"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/fitbit"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/metrics"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/orchestrator"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/vault"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const healthReportInterval = time.Hour

// CollectorService 采集服务：三个采集周期 + 同步通知消费者 + 授权清理
type CollectorService struct {
	config *config.Config
	logger *zap.Logger

	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client

	devices       repository.DevicesRepository
	orchestrators []*orchestrator.Orchestrator
	syncConsumer  *consumer.SyncConsumer
	authService   *authorization.Service
	analytics     *analytics.Service
	metricsServer *metrics.Server

	wg sync.WaitGroup
}

// NewCollectorService 创建采集服务
func NewCollectorService(cfg *config.Config, logger *zap.Logger) (*CollectorService, error) {
	key, err := cfg.VaultKey()
	if err != nil {
		return nil, err
	}

	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化 Redis（刷新锁 + 周期汇总）
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 创建 Repository
	devicesRepo := repository.NewPostgresDevicesRepository(db, logger)
	metricsRepo := repository.NewPostgresMetricsRepository(db)
	sleepRepo := repository.NewPostgresSleepRepository(db)
	authRepo := repository.NewPostgresAuthorizationsRepository(db)

	tokenVault, err := vault.New(key, devicesRepo)
	if err != nil {
		database.Close(db)
		rediscommon.Close(redisClient)
		return nil, err
	}

	oauth := fitbit.OAuthConfig{
		TokenURL:     cfg.Fitbit.TokenURL,
		AuthURL:      cfg.Fitbit.AuthURL,
		ClientID:     cfg.Fitbit.ClientID,
		ClientSecret: cfg.Fitbit.ClientSecret,
		RedirectURI:  cfg.Fitbit.RedirectURI,
		Timeout:      cfg.Fitbit.Timeout,
	}
	tokenEndpoint := fitbit.NewTokenEndpoint(oauth, logger)

	sessions := &fitbit.SessionFactory{
		Client:    fitbit.NewClient(cfg.Fitbit.APIBaseURL, cfg.Fitbit.Timeout, logger),
		Refresher: tokenEndpoint,
		Sink:      tokenVault,
		Source:    tokenVault,
		Locker:    fitbit.NewRedisRefreshLocker(redisClient, cfg.Auth.RefreshLockTTL),
		Logger:    logger,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)
	metrics.RegisterBreakerState(registry, tokenEndpoint.State)

	deps := collector.Deps{
		Devices:      devicesRepo,
		Tokens:       tokenVault,
		Sessions:     sessions,
		UnitInterval: cfg.Collector.UnitInterval,
		Recorder:     recorder,
		Logger:       logger,
	}

	var enabled []collector.Collector
	if cfg.CollectorEnabled(config.CollectorDaily) {
		enabled = append(enabled, collector.NewDailyCollector(deps, metricsRepo, cfg.Collector.DailyEpoch))
	}
	if cfg.CollectorEnabled(config.CollectorIntraday) {
		enabled = append(enabled, collector.NewIntradayCollector(deps, metricsRepo, cfg.Collector.IntradayEpoch))
	}
	if cfg.CollectorEnabled(config.CollectorSleep) {
		enabled = append(enabled, collector.NewSleepCollector(deps, sleepRepo, cfg.Collector.SleepEpoch))
	}

	intervals := orchestrator.Intervals{
		NoDevices:   cfg.Orchestrator.NoDevicesSleep,
		RateLimited: cfg.Orchestrator.RateLimitSleep,
		Cycle:       cfg.Orchestrator.CycleSleep,
	}
	publisher := orchestrator.NewStreamPublisher(redisClient, cfg.Orchestrator.CycleStream, cfg.Orchestrator.StreamMaxLen)

	orchestrators := make([]*orchestrator.Orchestrator, 0, len(enabled))
	wakers := make([]consumer.Waker, 0, len(enabled))
	for _, c := range enabled {
		o := orchestrator.New(c, intervals, logger,
			orchestrator.WithPublisher(publisher),
			orchestrator.WithRecorder(recorder),
		)
		orchestrators = append(orchestrators, o)
		wakers = append(wakers, o)
	}

	// 初始化 MQTT（可选）
	var mqttClient *mqttcommon.Client
	var syncConsumer *consumer.SyncConsumer
	if cfg.MQTT.Broker != "" {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			database.Close(db)
			rediscommon.Close(redisClient)
			return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
		}
		syncConsumer = consumer.NewSyncConsumer(mqttClient, devicesRepo, cfg.Sync.Topic, cfg.MQTT.QoS, logger, wakers...)
	}

	authService := authorization.NewService(devicesRepo, authRepo, tokenEndpoint, tokenVault, oauth, nil, logger)

	var metricsServer *metrics.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, registry, logger)
	}

	return &CollectorService{
		config:        cfg,
		logger:        logger,
		db:            db,
		redis:         redisClient,
		mqttClient:    mqttClient,
		devices:       devicesRepo,
		orchestrators: orchestrators,
		syncConsumer:  syncConsumer,
		authService:   authService,
		analytics:     analytics.NewService(metricsRepo, analytics.DefaultMaxGap, logger),
		metricsServer: metricsServer,
	}, nil
}

// Authorization 授权服务，供外部入口（Web 层）调用
func (s *CollectorService) Authorization() *authorization.Service { return s.authService }

// Analytics 统计服务
func (s *CollectorService) Analytics() *analytics.Service { return s.analytics }

// Start 启动所有组件，阻塞到 ctx 取消
func (s *CollectorService) Start(ctx context.Context) error {
	names := make([]string, 0, len(s.orchestrators))
	for _, o := range s.orchestrators {
		names = append(names, o.Name())
	}
	s.logger.Info("Starting collector service",
		zap.Strings("collectors", names),
		zap.Bool("sync_consumer", s.syncConsumer != nil),
	)

	for _, o := range s.orchestrators {
		s.goRun(func() { o.Run(ctx) })
	}

	if s.syncConsumer != nil {
		s.goRun(func() {
			if err := s.syncConsumer.Start(ctx); err != nil {
				s.logger.Error("Sync consumer failed", zap.Error(err))
			}
		})
	}

	if s.metricsServer != nil {
		go func() {
			if err := s.metricsServer.Start(); err != nil {
				s.logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	s.goRun(func() { s.runAuthCleanup(ctx) })
	s.goRun(func() { s.runHealthReport(ctx) })

	<-ctx.Done()
	return nil
}

func (s *CollectorService) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// runAuthCleanup 定期删除过期的待完成授权
func (s *CollectorService) runAuthCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.config.Auth.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.authService.CleanupExpired(ctx); err != nil {
				s.logger.Error("Failed to cleanup expired authorizations", zap.Error(err))
			}
		}
	}
}

// runHealthReport 定期检查已授权设备的同步健康度
func (s *CollectorService) runHealthReport(ctx context.Context) {
	ticker := time.NewTicker(healthReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reportSyncHealth(ctx)
		}
	}
}

func (s *CollectorService) reportSyncHealth(ctx context.Context) {
	devices, err := s.devices.GetAllAuthorized(ctx)
	if err != nil {
		s.logger.Error("Failed to load devices for health report", zap.Error(err))
		return
	}

	for _, d := range devices {
		data := s.analytics.SyncData(d)
		if data.Status == analytics.SyncOK {
			continue
		}
		s.logger.Warn("Device sync health degraded",
			zap.Int64("device_id", d.ID),
			zap.String("status", string(data.Status)),
			zap.Int("sync_days", data.SyncDays),
			zap.Int("gap_days", data.GapDays),
		)
	}
}

// Stop 停止服务：等待各循环退出后关闭连接
func (s *CollectorService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping collector service")

	if s.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Error stopping metrics server", zap.Error(err))
		}
		cancel()
	}

	s.wg.Wait()

	if s.syncConsumer != nil {
		s.syncConsumer.Stop()
	}

	// 断开MQTT
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭Redis
	if s.redis != nil {
		rediscommon.Close(s.redis)
	}

	// 关闭数据库
	if s.db != nil {
		database.Close(s.db)
	}

	s.logger.Info("Collector service stopped")
	return nil
}
