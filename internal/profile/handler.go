package profile

import (
	"net/http"
	"time"

	"github.com/SlpAus/daily-date-trivia-backend/internal/user"
	"github.com/SlpAus/daily-date-trivia-backend/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// UpdateProfileRequestBody 定义了资料修改请求体的JSON结构
type UpdateProfileRequestBody struct {
	Postcode     *string `json:"postcode"`
	Region       *string `json:"region"`
	CategoryPref *string `json:"categoryPref"`
	DigitMode    *string `json:"digitMode"`
}

// ProfileResponse 是用户资料的API响应模型
type ProfileResponse struct {
	UserID       string `json:"userId"`
	Postcode     string `json:"postcode"`
	Region       string `json:"region"`
	CategoryPref string `json:"categoryPref"`
	DigitMode    string `json:"digitMode"`
}

func formatProfile(u *user.User) ProfileResponse {
	return ProfileResponse{
		UserID:       u.UUID,
		Postcode:     u.Postcode,
		Region:       u.Region,
		CategoryPref: u.CategoryPref,
		DigitMode:    string(u.DigitModePref),
	}
}

// GetRestriction 处理 GET /api/profile/restrictions/:field
// 供资料编辑界面在提交前预检冷却状态。
func GetRestriction(c *gin.Context) {
	class, err := ParseFieldClass(c.Param("field"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的字段类别"})
		return
	}

	u := user.MustCurrentUser(c)

	restriction, err := CheckFieldRestriction(u, class, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "冷却检查失败"})
		return
	}

	c.JSON(http.StatusOK, restriction)
}

// UpdateProfileHandler 处理 PUT /api/profile
// 冷却期内的修改返回类型化的限制错误，携带精确的解禁时间。
func UpdateProfileHandler(c *gin.Context) {
	var body UpdateProfileRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	u := user.MustCurrentUser(c)

	updated, err := UpdateProfile(u.UUID, ProfilePatch{
		Postcode:     body.Postcode,
		Region:       body.Region,
		CategoryPref: body.CategoryPref,
		DigitMode:    body.DigitMode,
	}, time.Now())
	if err != nil {
		if appErr := apperror.AsError(err); appErr != nil {
			resp := gin.H{"error": appErr.Message}
			if appErr.NextAllowedAt != nil {
				resp["nextAllowedAt"] = appErr.NextAllowedAt
			}
			c.JSON(appErr.HTTPStatus(), resp)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新资料失败"})
		return
	}

	c.JSON(http.StatusOK, formatProfile(updated))
}

// SetPolicyRequestBody 定义了管理员设置冷却策略请求体的JSON结构
type SetPolicyRequestBody struct {
	FieldClass   string `json:"fieldClass" binding:"required"`
	CooldownDays *int   `json:"cooldownDays" binding:"required"`
}

// SetPolicyHandler 处理 PUT /api/admin/restrictions
func SetPolicyHandler(c *gin.Context) {
	var body SetPolicyRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	class, err := ParseFieldClass(body.FieldClass)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的字段类别"})
		return
	}

	if err := SetPolicy(class, *body.CooldownDays); err != nil {
		if appErr := apperror.AsError(err); appErr != nil {
			c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存冷却策略失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "冷却策略已更新"})
}
