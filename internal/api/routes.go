package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playarena/backend/internal/api/handlers"
	"github.com/playarena/backend/internal/authz"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Match endpoints
		matches := v1.Group("/matches")
		matches.Use(middleware.PlayerAuth(cfg))
		{
			matches.GET("", handlers.ListMatches(db))
			matches.GET("/:id", handlers.GetMatch(db))
			matches.POST("/:id/join", middleware.RequireAction(authz.ActionMatchJoin), handlers.JoinMatch(db, cfg))
			matches.POST("/:id/leave", middleware.RequireAction(authz.ActionMatchLeave), handlers.LeaveMatch(db, cfg))
			matches.POST("/:id/screenshot", middleware.RequireAction(authz.ActionScreenshotPost), handlers.UploadScreenshot(db, rdb, cfg))
			matches.POST("/create-challenge", middleware.RequireAction(authz.ActionChallengeCreate), handlers.CreateChallenge(db, cfg))
			matches.POST("/:id/accept-challenge", middleware.RequireAction(authz.ActionMatchJoin), handlers.AcceptChallenge(db, cfg))
			matches.POST("/:id/cancel-challenge", middleware.RequireAction(authz.ActionChallengeCancel), handlers.CancelChallenge(db))
		}

		// Wallet endpoints
		wallet := v1.Group("/wallet")
		wallet.Use(middleware.PlayerAuth(cfg), middleware.RequireAction(authz.ActionWalletView))
		{
			wallet.GET("/balance", handlers.GetBalance(db))
			wallet.GET("/transactions", handlers.GetTransactions(db))
			wallet.GET("/summary", handlers.GetWalletSummary(db))
		}

		// Operator endpoints
		admin := v1.Group("/admin")
		admin.Use(middleware.OperatorAuth(db, cfg))
		{
			admin.POST("/matches", middleware.RequireAction(authz.ActionMatchCreate), handlers.AdminCreateMatch(db, cfg))
			admin.POST("/matches/:id/reschedule", middleware.RequireAction(authz.ActionMatchCreate), handlers.AdminRescheduleMatch(db, cfg))
			admin.POST("/matches/:id/cancel", middleware.RequireAction(authz.ActionMatchCancel), handlers.AdminCancelMatch(db))
			admin.POST("/matches/:id/verify-result", middleware.RequireAction(authz.ActionResultVerify), handlers.AdminVerifyResult(db))
			admin.POST("/matches/:id/declare-winners", middleware.RequireAction(authz.ActionResultDeclare), handlers.AdminDeclareWinners(db))
			admin.GET("/rules", middleware.RequireAction(authz.ActionRuleManage), handlers.AdminListPrizeRules(db))
			admin.POST("/rules", middleware.RequireAction(authz.ActionRuleManage), handlers.AdminCreatePrizeRule(db))
			admin.PUT("/rules/:id", middleware.RequireAction(authz.ActionRuleManage), handlers.AdminUpdatePrizeRule(db))
			admin.GET("/audit", handlers.AdminAuditLogs(db))
		}
	}
}
