package attempt

import (
	"net/http"
	"strconv"

	"github.com/SlpAus/daily-date-trivia-backend/internal/allocation"
	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// CreateAttemptRequestBody 定义了create-or-update请求体的JSON结构。
// userId与allocationId之外的身份字段一律不接受：userId来自身份中间件，
// 请求体中出现userId会被直接拒绝，防止客户端伪装他人。
type CreateAttemptRequestBody struct {
	AllocationID uint    `json:"allocationId" binding:"required"`
	Result       *string `json:"result"`
	NumGuesses   *int    `json:"numGuesses"`

	// UserID 仅用于探测非法输入，出现即拒绝
	UserID *string `json:"userId"`
}

// GuessRequestBody 定义了提交猜测请求体的JSON结构
type GuessRequestBody struct {
	Value int `json:"value" binding:"required"`
}

// respondError 将内部错误统一转换为API响应。
func respondError(c *gin.Context, err error, fallback string) {
	if appErr := apperror.AsError(err); appErr != nil {
		body := gin.H{"error": appErr.Message}
		if appErr.NextAllowedAt != nil {
			body["nextAllowedAt"] = appErr.NextAllowedAt
		}
		c.JSON(appErr.HTTPStatus(), body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// CreateOrUpdateAttempt 处理 POST /api/attempts
// 重复与乱序的客户端重试在这里不是错误，它们通过幂等语义收敛。
func CreateOrUpdateAttempt(c *gin.Context) {
	var body CreateAttemptRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if body.UserID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不允许在请求体中指定userId"})
		return
	}

	u := user.MustCurrentUser(c)

	patch := Patch{NumGuesses: body.NumGuesses}
	if body.Result != nil {
		r := Result(*body.Result)
		patch.Result = &r
	}

	att, err := GetOrCreateAttempt(u.UUID, body.AllocationID, patch)
	if err != nil {
		respondError(c, err, "处理Attempt失败")
		return
	}

	c.JSON(http.StatusOK, att)
}

// SubmitGuess 处理 POST /api/attempts/:id/guesses
// 非所有者返回403，已终局返回409，两者绝不混入笼统的500。
func SubmitGuess(c *gin.Context) {
	attemptID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的Attempt ID"})
		return
	}

	var body GuessRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	u := user.MustCurrentUser(c)

	guess, att, err := RecordGuess(uint(attemptID), u.UUID, body.Value)
	if err != nil {
		respondError(c, err, "处理猜测失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"guess": guess, "attempt": att})
}

// UpdateAttemptByID 处理 PATCH /api/attempts/:id
func UpdateAttemptByID(c *gin.Context) {
	attemptID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的Attempt ID"})
		return
	}

	var body CreateAttemptRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if body.UserID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不允许在请求体中指定userId"})
		return
	}

	u := user.MustCurrentUser(c)

	patch := Patch{NumGuesses: body.NumGuesses}
	if body.Result != nil {
		r := Result(*body.Result)
		patch.Result = &r
	}

	att, err := UpdateAttempt(uint(attemptID), u.UUID, patch)
	if err != nil {
		respondError(c, err, "更新Attempt失败")
		return
	}

	c.JSON(http.StatusOK, att)
}

// GetGuesses 处理 GET /api/attempts/:id/guesses
func GetGuesses(c *gin.Context) {
	attemptID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的Attempt ID"})
		return
	}

	u := user.MustCurrentUser(c)

	att, err := GetAttemptForUser(uint(attemptID), u.UUID)
	if err != nil {
		respondError(c, err, "查询Attempt失败")
		return
	}

	guesses, err := ListGuesses(att.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询猜测流水失败"})
		return
	}

	c.JSON(http.StatusOK, guesses)
}

// GetAttempts 处理 GET /api/attempts?scope=
func GetAttempts(c *gin.Context) {
	scope, err := allocation.ParseScope(c.DefaultQuery("scope", string(allocation.ScopeShared)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的作用域"})
		return
	}

	u := user.MustCurrentUser(c)

	attempts, err := ListAttempts(u.UUID, scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询Attempt列表失败"})
		return
	}

	c.JSON(http.StatusOK, attempts)
}
