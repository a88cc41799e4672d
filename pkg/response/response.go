package response

import (
	"net/http"
	"time"

	"pengpeng/internal/model"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`            // 状态码：0表示成功，其他表示错误
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据
	Error   string      `json:"error,omitempty"` // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData 带附加数据的错误响应（如冷却剩余秒数、校验字段）
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, message)
}

// Conflict 409错误（并发冲突，调用方可重试）
func Conflict(c *gin.Context, message string) {
	Error(c, 409, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	Error(c, 500, message)
}

// UserInfo 用户信息（隐藏敏感字段）
type UserInfo struct {
	Username         string           `json:"username"`
	Nickname         string           `json:"nickname"`
	SpecialInfo      model.Appearance `json:"specialInfo"`
	SpecialPic       string           `json:"specialPic,omitempty"`
	SpecialInfoTime  string           `json:"specialInfoTime,omitempty"`
	LastLocation     *model.GeoPoint  `json:"lastLocation,omitempty"`
	LastLocationTime string           `json:"lastLocationTime,omitempty"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}

	info := &UserInfo{
		Username:     user.Username,
		Nickname:     user.Nickname,
		SpecialInfo:  user.SpecialInfo,
		SpecialPic:   user.SpecialPic,
		LastLocation: user.LastLocation,
	}
	if user.SpecialInfoTime != nil {
		info.SpecialInfoTime = user.SpecialInfoTime.Format(time.RFC3339)
	}
	if user.LastLocationTime != nil {
		info.LastLocationTime = user.LastLocationTime.Format(time.RFC3339)
	}
	return info
}

// LoginResponse 登录响应
type LoginResponse struct {
	User        *UserInfo `json:"user"`
	AccessToken string    `json:"access_token"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

// LocationResponse 位置响应
type LocationResponse struct {
	LastLocation     *model.GeoPoint `json:"lastLocation,omitempty"`
	LastLocationTime string          `json:"lastLocationTime,omitempty"`
}

// AppearanceResponse 特征信息响应
type AppearanceResponse struct {
	SpecialInfo model.Appearance `json:"specialInfo"`
	SpecialPic  string           `json:"specialPic,omitempty"`
}

// CandidateInfo 候选人条目（照片墙）
type CandidateInfo struct {
	Username   string `json:"username"`
	SpecialPic string `json:"specialPic,omitempty"`
	Score      int    `json:"score"`
}

// ReplyEntry 回复匹配成功后的选择项（真实创建者+固定数量的混淆项）
type ReplyEntry struct {
	Username   string `json:"username"`
	SpecialPic string `json:"specialPic"`
}

// ReadMeetResponse 已读标记结果，两侧独立，均可为空
type ReadMeetResponse struct {
	Creater *model.Meet `json:"creater,omitempty"`
	Target  *model.Meet `json:"target,omitempty"`
}
