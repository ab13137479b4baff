package api

import (
	"net/http"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/attempt"
	"github.com/SlpAus/daily-date-trivia-backend/internal/profile"
	"github.com/SlpAus/daily-date-trivia-backend/internal/stats"
	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/caldate"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

// adminAuthMiddleware 校验管理操作的HMAC签名。
// 签名覆盖 {操作名, 当天日期}，密钥在服务启动时生成并由运维侧分发。
func adminAuthMiddleware(operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader("X-Admin-Signature")
		payload := token.AdminPayload{Operation: operation, Date: caldate.Today()}
		if signature == "" || !token.ValidateAdminSignature(payload, signature) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "管理操作签名无效"})
			return
		}
		c.Next()
	}
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// 玩家路由，全部要求已验证的用户身份
		player := api.Group("", user.RequireIdentityMiddleware())
		{
			// 分配相关的路由
			player.GET("/allocations/:scope", allocation.GetAllocation)
			player.GET("/readiness/personal", allocation.GetPersonalReadiness)

			// Attempt相关的路由
			player.POST("/attempts", attempt.CreateOrUpdateAttempt)
			player.PATCH("/attempts/:id", attempt.UpdateAttemptByID)
			player.POST("/attempts/:id/guesses", attempt.SubmitGuess)
			player.GET("/attempts/:id/guesses", attempt.GetGuesses)
			player.GET("/attempts", attempt.GetAttempts)

			// 统计相关的路由
			player.GET("/stats", stats.GetStatistics)
			player.GET("/stats/percentile", stats.GetPercentileHandler)

			// 资料与冷却相关的路由
			player.GET("/profile/restrictions/:field", profile.GetRestriction)
			player.PUT("/profile", profile.UpdateProfileHandler)
		}

		// 管理路由，要求操作级HMAC签名
		admin := api.Group("/admin")
		{
			admin.POST("/stats/recalculate", adminAuthMiddleware("stats_recalculate"), stats.RecalculateAllHandler)
			admin.POST("/forgiveness", adminAuthMiddleware("grant_forgiveness"), stats.GrantForgivenessHandler)
			admin.PUT("/restrictions", adminAuthMiddleware("set_restriction"), profile.SetPolicyHandler)
		}
	}
}
