package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campwise-data/internal/config"
	"campwise-data/internal/database"
	"campwise-data/internal/domain"
	httpapi "campwise-data/internal/http"
	"campwise-data/internal/logger"
	"campwise-data/internal/repository"
	"campwise-data/internal/service"
	"campwise-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "campwise-data")
	if err != nil {
		zlog, _ = zap.NewProduction()
	}
	defer zlog.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)

	// Repositories: DB-backed when available, in-memory fallback otherwise.
	var db *sql.DB
	var (
		campsRepo     repository.CampsRepository
		bedsRepo      repository.BedsRepository
		personsRepo   repository.PersonsRepository
		transfersRepo repository.TransferRequestsRepository
		logsRepo      repository.TransferLogsRepository
		policiesRepo  repository.SchedulePoliciesRepository
	)
	if cfg.DBEnabled {
		if d, derr := database.NewPostgresDB(&cfg.Database); derr == nil {
			db = d
			zlog.Info("DB enabled for campwise-data")
		} else {
			zlog.Warn("DB enabled but connection failed, falling back to in-memory repos", zap.Error(derr))
		}
	}
	if db != nil {
		catalog := repository.NewPostgresCatalogRepository(db)
		campsRepo = catalog
		bedsRepo = catalog
		personsRepo = repository.NewPostgresPersonsRepository(db)
		transfersRepo = repository.NewPostgresTransfersRepository(db)
		logsRepo = repository.NewPostgresTransferLogsRepository(db)
		policiesRepo = repository.NewPostgresSchedulePoliciesRepository(db)
	} else {
		// DB 未就绪：内存 repo 支持联测，预置一套最小营地/床位数据
		catalog := repository.NewMemoryCatalogRepo()
		campsRepo = catalog
		bedsRepo = catalog
		personsRepo = repository.NewMemoryPersonsRepo()
		transfersRepo = repository.NewMemoryTransfersRepo()
		logsRepo = repository.NewMemoryTransferLogsRepo()
		policiesRepo = repository.NewMemorySchedulePoliciesRepo()
		if os.Getenv("SEED_DEMO") != "false" {
			seedDemoData(catalog)
		}
	}

	// exit_case 资格判定：HR_BASE_URL 为空时退化为内置 stub（全部不可离职）
	var exitCheck service.ExitEligibilityChecker
	if cfg.HR.BaseURL != "" {
		exitCheck = service.NewHRClient(cfg.HR.BaseURL, cfg.HR.APIKey, zlog)
	} else {
		exitCheck = service.StaticExitEligibility{}
	}

	locks := service.NewLockRegistry()
	transferSvc := service.NewTransferService(campsRepo, personsRepo, bedsRepo, transfersRepo, policiesRepo, exitCheck, locks, zlog)
	allocationSvc := service.NewAllocationService(campsRepo, personsRepo, bedsRepo, transfersRepo, exitCheck, locks, zlog)
	arrivalSvc := service.NewArrivalService(campsRepo, personsRepo, bedsRepo, transfersRepo, logsRepo, locks, zlog)
	occupancySvc := service.NewOccupancyService(campsRepo, bedsRepo, kv, zlog)

	router := httpapi.NewRouter(zlog)
	router.RegisterTransferRoutes(httpapi.NewTransferHandler(transferSvc, allocationSvc, arrivalSvc, occupancySvc, logsRepo, zlog))
	router.RegisterOccupancyRoutes(httpapi.NewOccupancyHandler(occupancySvc, zlog))

	srv := service.NewServer(cfg.HTTP.Addr, router, zlog)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}

// seedDemoData 预置一个入营营地和一个常规营地，便于无 DB 联测
func seedDemoData(catalog *repository.MemoryCatalogRepo) {
	inductionID := catalog.SeedCamp("North Induction", domain.CampTypeInduction)
	regularID := catalog.SeedCamp("Eastgate Regular", domain.CampTypeRegular)

	inductionRoom := catalog.SeedRoom(inductionID, "I-101", "male")
	regularRoom := catalog.SeedRoom(regularID, "R-101", "male")

	for _, roomID := range []string{inductionRoom, regularRoom} {
		catalog.SeedBed(roomID, "1")
		catalog.SeedBed(roomID, "2")
	}
}
