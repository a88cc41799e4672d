package middleware

import (
	"pengpeng/internal/model"
	"pengpeng/internal/service"
	"pengpeng/pkg/jwt"
	"pengpeng/pkg/logger"
	"pengpeng/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextUserKey 当前用户文档在gin.Context中的键名
const ContextUserKey = "current_user"

// CurrentUser 在JWT认证之后装载完整用户文档
// 装载时应用特征过期屏蔽：过期特征只保留性别，后续handler据此要求重新提交
func CurrentUser(users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := jwt.GetUsername(c)
		if username == "" {
			response.Unauthorized(c, "认证错误!")
			c.Abort()
			return
		}

		user, err := users.GetAuthenticated(c.Request.Context(), username)
		if err != nil {
			logger.Error("装载当前用户失败", zap.String("username", username), zap.Error(err))
			response.InternalError(c, "认证错误!")
			c.Abort()
			return
		}
		if user == nil {
			response.Unauthorized(c, "认证错误!")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// GetUser 从gin.Context中取当前用户
func GetUser(c *gin.Context) *model.User {
	if v, exists := c.Get(ContextUserKey); exists {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}
