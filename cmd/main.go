package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hcm999/staking-gana/internal/blockchain"
	"github.com/hcm999/staking-gana/internal/config"
	"github.com/hcm999/staking-gana/internal/handler"
	"github.com/hcm999/staking-gana/internal/models"
	"github.com/hcm999/staking-gana/internal/repository"
	"github.com/hcm999/staking-gana/internal/scheduler"
	"github.com/hcm999/staking-gana/internal/service"
	"github.com/hcm999/staking-gana/pkg/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer closeDatabase(db)

	if err := db.AutoMigrate(&models.StakePool{}, &models.StakeRecord{}, &models.DailySnapshot{}); err != nil {
		logger.Fatal("Failed to migrate database:", err)
	}

	poolRepo := repository.NewPoolRepository(db)
	stakeRepo := repository.NewStakeRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	if err := seedPools(cfg, poolRepo); err != nil {
		logger.Fatal("Failed to seed stake pools:", err)
	}

	nodePool := blockchain.NewNodePool(
		cfg.Chain.RPCURLs,
		blockchain.NewRandomPolicy(),
		time.Duration(cfg.Chain.NodeCooldown)*time.Second,
		blockchain.SystemClock,
	)
	blockCache := blockchain.NewCache(
		time.Duration(cfg.Ingest.BlockCacheTTL)*time.Second,
		blockchain.SystemClock,
	)

	chainClient, err := blockchain.NewClient(&cfg.Chain, nodePool, blockCache)
	if err != nil {
		logger.Fatal("Failed to create chain client:", err)
	}
	defer chainClient.Close()

	matcher := service.NewFIFOMatcher(stakeRepo)
	ingestSvc := service.NewIngestService(
		chainClient, poolRepo, stakeRepo, snapshotRepo, matcher,
		cfg.Pools, cfg.Chain.ScanWindow, blockchain.SystemClock,
	)

	ingestScheduler := scheduler.NewIngestScheduler(
		ingestSvc, cfg.Ingest.Cron,
		time.Duration(cfg.Ingest.RunTimeout)*time.Second,
	)
	if err := ingestScheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler:", err)
	}
	defer ingestScheduler.Stop()

	router := setupHTTPRouter(cfg, ingestScheduler, poolRepo, snapshotRepo)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting on port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error:", err)
	}

	logger.Info("Server stopped")
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	return db, nil
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database instance:", err)
		return
	}
	sqlDB.Close()
}

// seedPools 按配置初始化质押池，已存在的池只更新配置字段
func seedPools(cfg *config.Config, poolRepo *repository.PoolRepository) error {
	pools := make([]models.StakePool, 0, len(cfg.Pools))
	for _, p := range cfg.Pools {
		pools = append(pools, models.StakePool{
			ID:       p.ID,
			LockDays: p.LockDays,
			MinStake: decimal.NewFromFloat(p.MinStake),
			MaxStake: decimal.NewFromFloat(p.MaxStake),
		})
	}
	return poolRepo.Seed(context.Background(), pools)
}

func setupHTTPRouter(
	cfg *config.Config,
	ingestScheduler *scheduler.IngestScheduler,
	poolRepo *repository.PoolRepository,
	snapshotRepo *repository.SnapshotRepository,
) http.Handler {
	router := http.NewServeMux()

	ingestHandler := handler.NewIngestHandler(ingestScheduler, cfg.Ingest.CronSecret)
	snapshotHandler := handler.NewSnapshotHandler(snapshotRepo)
	poolHandler := handler.NewPoolHandler(poolRepo)
	statsHandler := handler.NewStatsHandler(snapshotRepo)

	router.HandleFunc("/api/cron/fetch-stake-data", ingestHandler.TriggerFetch)
	router.HandleFunc("/api/snapshots", snapshotHandler.GetSnapshots)
	router.HandleFunc("/api/pools", poolHandler.GetPools)
	router.HandleFunc("/api/stats", statsHandler.GetLatestStats)
	router.HandleFunc("/health", handler.HandleHealth)

	return router
}
