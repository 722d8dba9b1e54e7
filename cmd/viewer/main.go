package main

import (
	"context"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"greenhouse/internal/config"
	"greenhouse/internal/db"
	"greenhouse/internal/handler"
	"greenhouse/internal/logger"
	gormrepository "greenhouse/internal/repository/gorm"
	"greenhouse/internal/viewer"
)

func main() {
	cfgPath := os.Getenv("GH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("GH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	dbConn, err := db.Open(cfg.Artifact)
	if err != nil {
		log.Fatal("artifact open failed", zap.String("path", cfg.Artifact.Path), zap.Error(err))
	}
	defer db.Close(dbConn)

	// The artifact is read once at startup; every filter change re-derives
	// views from this snapshot without touching the file again.
	repo := gormrepository.New(dbConn.Gorm, cfg.Artifact.BatchSize)
	ctx := context.Background()

	run, err := repo.LatestRun(ctx)
	if err != nil {
		log.Fatal("load run metadata failed", zap.Error(err))
	}
	if run == nil {
		log.Fatal("artifact holds no pipeline run; run cmd/pipeline first",
			zap.String("path", cfg.Artifact.Path))
	}
	rows, err := repo.LoadEnriched(ctx)
	if err != nil {
		log.Fatal("load enriched readings failed", zap.Error(err))
	}
	findings, err := repo.ListFindings(ctx)
	if err != nil {
		log.Fatal("load validation findings failed", zap.Error(err))
	}

	dataset := viewer.NewDataset(rows, run, findings)
	log.Info("artifact loaded",
		zap.String("run_id", run.RunID),
		zap.Int("rows", dataset.Rows()),
		zap.Int("findings", len(findings)))

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)

	staticHandler := &handler.StaticHandler{}
	staticHandler.Register(engine)

	dashboardHandler := &handler.DashboardHandler{
		Dataset:          dataset,
		DistributionBins: cfg.Viewer.DistributionBins,
		Logger:           log,
	}
	dashboardHandler.Register(engine)

	chartHandler := &handler.ChartHandler{
		Dataset:          dataset,
		DistributionBins: cfg.Viewer.DistributionBins,
		Logger:           log,
	}
	chartHandler.Register(engine)

	log.Info("viewer listening", zap.String("addr", cfg.Server.HTTPAddr))
	if err := engine.Run(cfg.Server.HTTPAddr); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}
