package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/questforge/server/api/rest"
	"github.com/questforge/server/audit"
	"github.com/questforge/server/cache"
	"github.com/questforge/server/config"
	dbadapter "github.com/questforge/server/db"
	"github.com/questforge/server/game/badge"
	"github.com/questforge/server/game/progression"
	mw "github.com/questforge/server/middleware"
	"github.com/questforge/server/model"
	"github.com/questforge/server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	if err := seedBadgeCatalog(db); err != nil {
		log.Fatalf("badge catalog: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache ----
	c, err := cache.New(cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Progression Engine ----
	co := progression.NewCoordinator(
		progression.NewGormStore(db), c, logger, cfg.Game.CommitRetries)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	questH := apirest.NewQuestHandler(db)
	progH := apirest.NewProgressionHandler(db, co, cfg.Game, auditSvc)
	profileH := apirest.NewProfileHandler(db)
	rankH := apirest.NewRankingHandler(db, c, cfg.Game.RankingSize, logger)
	adminH := apirest.NewAdminHandler(db, co, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		questsG := api.Group("/quests")
		questsG.GET("", questH.List)
		questsG.GET("/:id", questH.Detail)
		authed := questsG.Group("", mw.Auth(cfg.Security, c))
		{
			authed.POST("/:id/start", progH.Start)
			authed.POST("/:id/submit", progH.Submit)
			authed.POST("/:id/complete", progH.Complete)
			authed.POST("/:id/abandon", progH.Abandon)
			authed.GET("/:id/progress", progH.Progress)
		}

		api.GET("/profile", mw.Auth(cfg.Security, c), profileH.Show)

		rankG := api.Group("/ranking")
		rankG.GET("/xp", rankH.TopXP)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		if len(cfg.Server.AdminIPs) > 0 {
			adminG.Use(mw.IPWhitelist(cfg.Server.AdminIPs))
		}
		adminG.POST("/quests", adminH.CreateQuest)
		adminG.PUT("/quests/:id", adminH.UpdateQuest)
		adminG.GET("/submissions", adminH.ListSubmissions)
		adminG.POST("/submissions/:id/review", adminH.ReviewSubmission)
		adminG.POST("/users/:id/ban", adminH.BanUser)
		adminG.POST("/ranking/refresh", rankH.Refresh)
		adminG.GET("/metrics", adminH.Metrics)
	}

	// ---- Periodic Jobs ----
	refresh := time.Duration(cfg.Game.RankingRefreshS) * time.Second
	sched.RunEvery("ranking_rebuild", refresh, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := rankH.RebuildFromDB(ctx); err != nil {
			logger.Warn("ranking rebuild failed", zap.Error(err))
		} else {
			logger.Debug("ranking rebuilt", zap.Int("entries", n))
		}
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// seedBadgeCatalog upserts the badge catalog so profile lookups always
// resolve unlock IDs to names.
func seedBadgeCatalog(db *gorm.DB) error {
	catalog := badge.CatalogModels()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "rarity"}),
	}).Create(&catalog).Error
}
