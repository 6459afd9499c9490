package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"serotonyl.ru/gaqt-backend/internal/api/middleware"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/admin"
	"serotonyl.ru/gaqt-backend/internal/features/auth"
	"serotonyl.ru/gaqt-backend/internal/features/leaderboard"
	"serotonyl.ru/gaqt-backend/internal/features/quests"
	"serotonyl.ru/gaqt-backend/internal/features/referrals"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/telegram/initdata"
)

// Handlers — обработчики всех фич.
type Handlers struct {
	Auth         *auth.Handler
	Users        *users.Handler
	Quests       *quests.Handler
	Referrals    *referrals.Handler
	Achievements *achievements.Handler
	Leaderboard  *leaderboard.Handler
	Admin        *admin.Handler
}

// Options — общие middleware роутера.
type Options struct {
	Verifier       initdata.Verifier
	Resolver       middleware.UserResolver
	RateLimiter    *middleware.RateLimiter // nil — без ограничения
	RequestTimeout time.Duration
	AllowedOrigins []string // пусто — любой origin
}

// NewRouter собирает gin-роутер со всеми маршрутами.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.Middleware())
	}

	// Открытые маршруты
	api.POST("/auth/init", h.Auth.Init)
	api.GET("/leaderboard", h.Leaderboard.Top)

	// Маршруты пользователя: личность только из initData
	private := api.Group("", middleware.Auth(opts.Verifier, opts.Resolver))
	{
		private.GET("/user/me", h.Users.Me)
		private.POST("/user/sync", h.Users.Sync)
		private.POST("/wallet/connect", h.Users.ConnectWallet)

		private.GET("/quest", h.Quests.List)
		private.GET("/quest/mine", h.Quests.Mine)
		private.GET("/quest/daily", h.Quests.Daily)
		private.POST("/quest", h.Quests.Start)
		private.PUT("/quest", h.Quests.Complete)

		private.GET("/referral", h.Referrals.List)
		private.POST("/referral", h.Referrals.Apply)

		private.GET("/achievements", h.Achievements.List)
	}

	if h.Admin != nil {
		adm := api.Group("/admin", h.Admin.RequirePassword())
		adm.POST("/daily-quests", h.Admin.CreateDaily)
		adm.POST("/achievements", h.Admin.AwardAchievement)
		adm.POST("/energy/regenerate", h.Admin.RegenerateEnergy)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", admin.PasswordHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
