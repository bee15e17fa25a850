package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dailychallenge/server/config"
	"github.com/dailychallenge/server/controllers"
	"github.com/dailychallenge/server/middleware"
	"github.com/dailychallenge/server/services"
	"github.com/dailychallenge/server/storage"
	"github.com/dailychallenge/server/utils"
)

// Dependencies are the long lived collaborators the router hands to controllers.
type Dependencies struct {
	Config    config.AppConfig
	DB        *gorm.DB
	Store     storage.Store
	Cache     *utils.Cache
	Tokens    *utils.TokenIssuer
	Blacklist *utils.TokenBlacklist
	// RegisterGuard may be nil, which disables sign up throttling.
	RegisterGuard *utils.RegisterGuard
	Metrics       *middleware.Metrics
	// GinLogger receives request and panic logs; the global logger is used when nil.
	GinLogger *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	gl := deps.GinLogger
	if gl == nil {
		gl = utils.Logger
	}
	r := gin.New()
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	metrics := deps.Metrics
	if metrics == nil {
		metrics = middleware.NewMetrics()
	}
	r.Use(metrics.Middleware())

	r.GET("/health", func(ctx *gin.Context) {
		if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50300, "database unavailable")
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler(cfg.MetricsUser, cfg.MetricsPassword))

	// images stored on local disk are served by the app itself
	if local, ok := deps.Store.(*storage.Local); ok && strings.HasPrefix(local.BaseURL(), "/") {
		r.Static(local.BaseURL(), local.Dir())
	}

	users := services.NewUserService(deps.DB, deps.Store, deps.Cache, deps.Tokens)
	badges := services.NewBadgeService(deps.DB)
	hashtags := services.NewHashtagService(deps.DB)
	challenges := services.NewChallengeService(deps.DB, deps.Store, deps.Cache)
	joins := services.NewUserChallengeService(deps.DB)
	comments := services.NewCommentService(deps.DB, deps.Store, deps.Cache)

	userController := controllers.NewUserController(users, badges, deps.Blacklist, deps.RegisterGuard)
	challengeController := controllers.NewChallengeController(challenges, joins, hashtags)
	commentController := controllers.NewCommentController(comments)

	auth := middleware.AuthRequired(deps.Tokens, deps.Blacklist, cfg.IsAdminEmail)
	limit := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute).Middleware()

	userGroup := r.Group("/user")
	userGroup.POST("/new", limit, userController.Register)
	userGroup.POST("/login", limit, userController.Login)
	userGroup.POST("/check", limit, userController.CheckEmail)
	userGroup.POST("/logout", auth, userController.Logout)
	userGroup.GET("/:userId", userController.Get)
	userGroup.POST("/:userId", auth, limit, userController.Update)
	userGroup.DELETE("/:userId", auth, userController.Delete)
	userGroup.POST("/:userId/check", auth, limit, userController.CheckPassword)
	userGroup.GET("/:userId/badges", userController.Badges)
	userGroup.GET("/:userId/comment", commentController.ListByUser)

	challengeGroup := r.Group("/challenge")
	challengeGroup.GET("", challengeController.Search)
	challengeGroup.POST("/new", auth, limit, challengeController.Create)
	challengeGroup.GET("/:id", challengeController.Get)
	challengeGroup.POST("/:id", auth, limit, challengeController.Update)
	challengeGroup.DELETE("/:id", auth, challengeController.Delete)
	challengeGroup.POST("/:id/participate", auth, challengeController.Participate)
	challengeGroup.POST("/:id/success", auth, challengeController.Success)
	challengeGroup.GET("/:id/participants", challengeController.Participants)

	r.GET("/hashtag/popular", challengeController.PopularHashtags)

	// comment routes sit at the root: /{challengeId}/comment... and /{commentId}/like
	r.GET("/:id/comment", commentController.ListByChallenge)
	r.POST("/:id/comment/new", auth, limit, commentController.Create)
	r.POST("/:id/comment/:commentId", auth, limit, commentController.Update)
	r.DELETE("/:id/comment/:commentId", auth, commentController.Delete)
	r.POST("/:id/like", auth, commentController.Like)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
