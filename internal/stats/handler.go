package stats

import (
	"fmt"
	"net/http"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// StatisticsResponse 是统计快照的API响应模型。
type StatisticsResponse struct {
	UserID               string      `json:"userId"`
	Scope                string      `json:"scope"`
	CurrentStreak        int         `json:"currentStreak"`
	MaxStreak            int         `json:"maxStreak"`
	GamesPlayed          int         `json:"gamesPlayed"`
	GamesWon             int         `json:"gamesWon"`
	GuessDistribution    map[int]int `json:"guessDistribution"`
	AverageGuesses       float64     `json:"averageGuesses"`
	MissedYesterdayFlag  bool        `json:"missedYesterdayFlag"`
	NextHolidayResetDate *string     `json:"nextHolidayResetDate"`
}

func formatSnapshot(st *UserStatistics) *StatisticsResponse {
	return &StatisticsResponse{
		UserID:               st.UserID,
		Scope:                string(st.Scope),
		CurrentStreak:        st.CurrentStreak,
		MaxStreak:            st.MaxStreak,
		GamesPlayed:          st.GamesPlayed,
		GamesWon:             st.GamesWon,
		GuessDistribution:    st.Distribution(),
		AverageGuesses:       st.AverageGuesses(),
		MissedYesterdayFlag:  st.MissedYesterdayFlag,
		NextHolidayResetDate: st.NextHolidayResetDate,
	}
}

// GetStatistics 处理 GET /api/stats?scope=
// 命中短时缓存直接返回，否则按需全量重算并异步回填缓存。
func GetStatistics(c *gin.Context) {
	scope, err := allocation.ParseScope(c.DefaultQuery("scope", string(allocation.ScopeShared)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的作用域"})
		return
	}

	u := user.MustCurrentUser(c)

	if cached := GetSnapshotCache(scope, u.UUID); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	st, err := Recalculate(u.UUID, scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重算统计数据失败"})
		return
	}

	resp := formatSnapshot(st)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("严重错误: 缓存统计快照的goroutine发生panic: %v\n", r)
			}
		}()
		_ = SetSnapshotCache(scope, u.UUID, resp)
	}()

	c.JSON(http.StatusOK, resp)
}

// GetPercentileHandler 处理 GET /api/stats/percentile?scope=&metric=
func GetPercentileHandler(c *gin.Context) {
	scope, err := allocation.ParseScope(c.DefaultQuery("scope", string(allocation.ScopeShared)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的作用域"})
		return
	}
	metric, err := ParseMetric(c.DefaultQuery("metric", string(MetricGamesWon)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的排名指标"})
		return
	}

	u := user.MustCurrentUser(c)

	percentile, err := GetPercentile(u.UUID, scope, metric)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "计算百分位失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"scope": scope, "metric": metric, "percentile": percentile})
}

// RecalculateAllHandler 处理 POST /api/admin/stats/recalculate?scope=
// 管理员专用的全量重建入口。
func RecalculateAllHandler(c *gin.Context) {
	scope, err := allocation.ParseScope(c.DefaultQuery("scope", string(allocation.ScopeShared)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的作用域"})
		return
	}

	count, err := RecalculateAll(scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "全量重算失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "全量重算完成", "users": count})
}

// GrantForgivenessRequestBody 定义了宽恕授予请求体的JSON结构
type GrantForgivenessRequestBody struct {
	UserID    string `json:"userId" binding:"required"`
	Scope     string `json:"scope" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
	ResetDate string `json:"resetDate"`
}

// GrantForgivenessHandler 处理 POST /api/admin/forgiveness
func GrantForgivenessHandler(c *gin.Context) {
	var body GrantForgivenessRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	scope, err := allocation.ParseScope(body.Scope)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的作用域"})
		return
	}

	if err := GrantForgiveness(body.UserID, scope, ForgivenessKind(body.Kind), body.ResetDate); err != nil {
		if appErr := apperror.AsError(err); appErr != nil {
			c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "授予宽恕失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "宽恕已授予"})
}
