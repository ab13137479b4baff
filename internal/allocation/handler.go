package allocation

import (
	"net/http"

	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/caldate"
	"github.com/gin-gonic/gin"
)

// AllocationResponse 是分配查询的API响应模型。
// 注意不包含AnswerYear，答案只存在于服务端。
type AllocationResponse struct {
	Status       string `json:"status"`
	AllocationID uint   `json:"allocationId,omitempty"`
	PuzzleDate   string `json:"puzzleDate,omitempty"`
	Scope        string `json:"scope,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	Category     string `json:"category,omitempty"`
}

// GetAllocation 处理 GET /api/allocations/:scope?date=
// 个人池“尚未生成”返回200与status=generating，而不是404。
func GetAllocation(c *gin.Context) {
	scope, err := ParseScope(c.Param("scope"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的作用域"})
		return
	}

	date := c.Query("date")
	if date == "" {
		date = caldate.Today()
	}

	u := user.MustCurrentUser(c)

	res, err := ResolveForUser(u.UUID, u.Region, scope, date)
	if err != nil {
		if appErr := apperror.AsError(err); appErr != nil {
			c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询分配失败"})
		return
	}

	switch res.Status {
	case StatusMissing:
		c.JSON(http.StatusNotFound, gin.H{"error": "该日期没有可用的题目"})
	case StatusGenerating:
		c.JSON(http.StatusOK, AllocationResponse{Status: string(StatusGenerating)})
	case StatusReady:
		c.JSON(http.StatusOK, AllocationResponse{
			Status:       string(StatusReady),
			AllocationID: res.Allocation.ID,
			PuzzleDate:   res.Allocation.PuzzleDate,
			Scope:        string(res.Allocation.Scope),
			Prompt:       res.Item.Prompt,
			Category:     res.Item.CategoryLabel,
		})
	}
}

// GetPersonalReadiness 处理 GET /api/readiness/personal?date=
// 这是就绪探测轮询的专用轻量端点。
func GetPersonalReadiness(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = caldate.Today()
	}

	u := user.MustCurrentUser(c)

	ready, err := IsPersonalReady(u.UUID, date)
	if err != nil {
		if appErr := apperror.AsError(err); appErr != nil {
			c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "就绪检查失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "ready": ready})
}
