package user

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// IdentityHeader 是身份提供方注入的、已验证的用户UUID头。
	// 引擎信任该值，只做授权（所有权校验），不做认证。
	IdentityHeader = "X-User-ID"

	// CurrentUserKey 是已加载用户在Gin上下文中的键。
	CurrentUserKey = "currentUser"
)

// RequireIdentityMiddleware 要求请求携带已验证的用户身份。
// 首次见到的UUID会被激活（写入SQLite与Redis已知用户集合），
// 随后将完整的用户记录放入Gin上下文供下游handler使用。
func RequireIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(IdentityHeader)
		if userID == "" || !IsValidUUID(userID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少有效的用户身份"})
			return
		}

		if err := ActivateUser(userID); err != nil {
			fmt.Printf("激活用户 %s 时发生错误: %v\n", userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法初始化用户"})
			return
		}

		u, err := GetUserByUUID(userID)
		if err != nil || u == nil {
			fmt.Printf("加载用户 %s 时发生错误: %v\n", userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法加载用户"})
			return
		}

		c.Set(CurrentUserKey, u)
		c.Next()
	}
}

// MustCurrentUser 从Gin上下文取出已加载的用户。
// 只能在 RequireIdentityMiddleware 之后的handler中调用。
func MustCurrentUser(c *gin.Context) *User {
	u, exists := c.Get(CurrentUserKey)
	if !exists {
		panic("handler在身份中间件之外调用了MustCurrentUser")
	}
	return u.(*User)
}
