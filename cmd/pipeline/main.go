package main

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"greenhouse/internal/config"
	"greenhouse/internal/db"
	"greenhouse/internal/logger"
	"greenhouse/internal/pipeline"
	gormrepository "greenhouse/internal/repository/gorm"
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

	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	runner := &pipeline.Runner{
		Config: cfg,
		Logger: log,
		Repo:   gormrepository.New(dbConn.Gorm, cfg.Artifact.BatchSize),
	}

	result, err := runner.Run(context.Background())
	if err != nil {
		log.Fatal("pipeline run failed", zap.Error(err))
	}

	log.Info("pipeline complete",
		zap.String("run_id", result.RunID),
		zap.String("artifact", cfg.Artifact.Path),
		zap.Int("rows", result.Rows),
		zap.Int("outliers", result.Outliers),
		zap.Int("findings", len(result.Report.Findings)))
}
