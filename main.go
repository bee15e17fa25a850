package main

import (
	"context"
	"flag"

	"github.com/dailychallenge/server/config"
	"github.com/dailychallenge/server/middleware"
	"github.com/dailychallenge/server/models"
	"github.com/dailychallenge/server/routes"
	"github.com/dailychallenge/server/storage"
	"github.com/dailychallenge/server/utils"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(cfg, models.All()...)

	rc := utils.NewRedis(cfg)
	if rc != nil {
		defer rc.Close()
	}

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Fatalf("init storage: %v", err)
	}

	ginLogger := utils.Logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg, cfg.GinPath)
		if err != nil {
			utils.Sugar.Warnf("gin log %s unavailable, using app logger: %v", cfg.GinPath, err)
		} else {
			ginLogger = gl
		}
	}

	r := routes.SetupRouter(routes.Dependencies{
		Config:        cfg,
		DB:            db,
		Store:         store,
		Cache:         utils.NewCache(rc, cfg.CacheTTL),
		Tokens:        utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Blacklist:     utils.NewTokenBlacklist(rc),
		RegisterGuard: utils.NewRegisterGuard(rc, cfg.RegisterMaxPerIPPerDay, cfg.RegisterCooldown),
		Metrics:       middleware.NewMetrics(),
		GinLogger:     ginLogger,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
