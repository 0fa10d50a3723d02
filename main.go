package main

import (
	"context"
	"fmt"
	"log"
	"os"

	apirest "github.com/emberveil-online/guildserver/api/rest"
	"github.com/emberveil-online/guildserver/cache"
	"github.com/emberveil-online/guildserver/config"
	"github.com/emberveil-online/guildserver/content"
	dbadapter "github.com/emberveil-online/guildserver/db"
	"github.com/emberveil-online/guildserver/game/bootstrap"
	"github.com/emberveil-online/guildserver/game/event"
	"github.com/emberveil-online/guildserver/game/guild"
	"github.com/emberveil-online/guildserver/game/project"
	"github.com/emberveil-online/guildserver/game/raid"
	"github.com/emberveil-online/guildserver/game/territory"
	"github.com/emberveil-online/guildserver/game/war"
	mw "github.com/emberveil-online/guildserver/middleware"
	"github.com/emberveil-online/guildserver/model"
	"github.com/emberveil-online/guildserver/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
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

	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; all API requests will be rejected")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Content Templates ----
	registry, err := content.Load(cfg.Content.TemplatesPath)
	if err != nil {
		log.Fatalf("content: %v", err)
	}
	logger.Info("Content templates loaded",
		zap.Int("projects", len(registry.ProjectNames())),
		zap.Int("raids", len(registry.RaidNames())),
		zap.Int("events", len(registry.EventNames())))

	// ---- Services ----
	guildSvc := guild.NewService(db, c, pubsub, cfg.Guild, logger)
	territorySvc := territory.NewService(db, cfg.Guild, logger)
	projectSvc := project.NewService(db, registry, logger)
	raidSvc := raid.NewService(db, registry, cfg.Guild, logger)
	warSvc := war.NewService(db, c, cfg.Guild, guildSvc, logger)
	eventSvc := event.NewService(db, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	sched.AddTicker("raid_expiry_sweep", cfg.Guild.RaidSweepInterval, func() {
		if _, err := raidSvc.SweepExpired(context.Background()); err != nil {
			logger.Error("raid expiry sweep failed", zap.Error(err))
		}
	})
	sched.AddTicker("weekly_contribution_reset", cfg.Guild.WeeklyResetInterval, func() {
		if _, err := guildSvc.ResetWeeklyContributions(context.Background()); err != nil {
			logger.Error("weekly contribution reset failed", zap.Error(err))
		}
	})

	// ---- Demo Data (optional) ----
	if n := cfg.Server.DemoGuilds; n > 0 {
		gen := bootstrap.NewGenerator(db, guildSvc, territorySvc, projectSvc, raidSvc, eventSvc, registry, logger)
		if _, err := gen.Generate(context.Background(), n); err != nil {
			logger.Warn("demo guild generation failed", zap.Error(err))
		}
	}

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
	guildH := apirest.NewGuildHandler(guildSvc)
	territoryH := apirest.NewTerritoryHandler(territorySvc)
	projectH := apirest.NewProjectHandler(projectSvc)
	raidH := apirest.NewRaidHandler(raidSvc)
	warH := apirest.NewWarHandler(warSvc)
	eventH := apirest.NewEventHandler(eventSvc)

	api := r.Group("/api")
	api.Use(mw.Auth(cfg.Security))
	{
		guildsG := api.Group("/guilds")
		guildsG.GET("", guildH.List)
		guildsG.POST("", guildH.Create)
		guildsG.GET("/ranking/honor", guildH.TopHonor)
		guildsG.GET("/:id", guildH.Detail)
		guildsG.POST("/:id/join", guildH.Join)
		guildsG.POST("/:id/leave", guildH.Leave)
		guildsG.POST("/:id/kick/:char_id", guildH.Kick)
		guildsG.PUT("/:id/members/:char_id/rank", guildH.SetRank)
		guildsG.POST("/:id/deposit", guildH.Deposit)

		guildsG.GET("/:id/territories", territoryH.List)
		guildsG.POST("/:id/territories", territoryH.Claim)
		guildsG.POST("/:id/territories/release", territoryH.Release)
		guildsG.POST("/:id/territories/upgrade", territoryH.Upgrade)
		guildsG.GET("/:id/territories/production", territoryH.Production)

		guildsG.GET("/:id/projects", projectH.List)
		guildsG.POST("/:id/projects", projectH.Start)
		guildsG.GET("/:id/raids", raidH.List)
		guildsG.POST("/:id/raids", raidH.Start)
		guildsG.POST("/:id/wars", warH.Declare)
		guildsG.GET("/:id/events", eventH.ListUpcoming)
		guildsG.POST("/:id/events", eventH.Create)

		projectsG := api.Group("/projects")
		projectsG.POST("/:id/contribute", projectH.Contribute)

		raidsG := api.Group("/raids")
		raidsG.GET("/:id", raidH.Detail)
		raidsG.POST("/:id/join", raidH.Join)
		raidsG.POST("/:id/damage", raidH.Damage)

		warsG := api.Group("/wars")
		warsG.GET("", warH.ListActive)
		warsG.POST("/:id/activate", warH.Activate)
		warsG.POST("/:id/score", warH.Score)
		warsG.POST("/:id/resolve", warH.Resolve)

		eventsG := api.Group("/events")
		eventsG.POST("/:id/join", eventH.Join)
		eventsG.POST("/:id/cancel", eventH.Cancel)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Guild server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
