package handler

import (
	"errors"

	"pengpeng/internal/apperr"
	"pengpeng/pkg/logger"
	"pengpeng/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// bindJSON 绑定请求体，校验失败时折叠成携带字段路径的ValidationError
func bindJSON(c *gin.Context, obj interface{}) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return &apperr.ValidationError{Fields: fields}
	}
	return &apperr.ValidationError{}
}

// parseMeetID meetId参数解析
func parseMeetID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, &apperr.ValidationError{Fields: []string{"meetId"}}
	}
	return id, nil
}

// fail 把service层错误映射到统一响应
// 业务规则失败对用户可见，存储/连接失败只回通用错误并记日志
func fail(c *gin.Context, err error) {
	var coolDown *apperr.CoolDownError
	var invalid *apperr.ValidationError

	switch {
	case errors.As(err, &coolDown):
		response.ErrorWithData(c, 400, coolDown.Error(), gin.H{"remaining": coolDown.Remaining})
	case errors.As(err, &invalid):
		response.ErrorWithData(c, 400, invalid.Error(), gin.H{"fields": invalid.Fields})
	case errors.Is(err, apperr.ErrBadCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, apperr.ErrStorageConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, apperr.ErrUserExists),
		errors.Is(err, apperr.ErrStaleAppearance),
		errors.Is(err, apperr.ErrStaleLocation),
		errors.Is(err, apperr.ErrTargetNotFound),
		errors.Is(err, apperr.ErrNoMeetFound),
		errors.Is(err, apperr.ErrNoRepliesLeft),
		errors.Is(err, apperr.ErrDuplicateInvite),
		errors.Is(err, apperr.ErrAlreadyFriends):
		response.BadRequest(c, err.Error())
	default:
		logger.Error("请求处理失败",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		response.InternalError(c, "服务器内部错误")
	}
}
