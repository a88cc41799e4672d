package handler

import (
	"path/filepath"
	"time"

	"pengpeng/internal/middleware"
	"pengpeng/internal/model"
	"pengpeng/internal/service"
	"pengpeng/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	service   *service.UserService
	uploadDir string
}

func NewUserHandler(s *service.UserService, uploadDir string) *UserHandler {
	return &UserHandler{service: s, uploadDir: uploadDir}
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Nickname string `json:"nickname" binding:"required"`
		Sex      string `json:"sex" binding:"required,oneof=男 女"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user, token, err := h.service.Register(c.Request.Context(), r.Username, r.Password, r.Nickname, r.Sex)
	if err != nil {
		fail(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", &response.RegisterResponse{
		Username:    user.Username,
		AccessToken: token,
	})
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user, token, err := h.service.Login(c.Request.Context(), r.Username, r.Password)
	if err != nil {
		fail(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", &response.LoginResponse{
		User:        response.FilterUserInfo(user),
		AccessToken: token,
	})
}

// UpdateLocation 更新最近位置
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	type req struct {
		Lng *float64 `json:"lng" binding:"required"`
		Lat *float64 `json:"lat" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	updated, err := h.service.UpdateLocation(c.Request.Context(), user.Username, *r.Lng, *r.Lat)
	if err != nil {
		fail(c, err)
		return
	}

	resp := &response.LocationResponse{LastLocation: updated.LastLocation}
	if updated.LastLocationTime != nil {
		resp.LastLocationTime = updated.LastLocationTime.Format(time.RFC3339)
	}
	response.Success(c, resp)
}

// GetLastLocation 取最近位置
func (h *UserHandler) GetLastLocation(c *gin.Context) {
	user := middleware.GetUser(c)
	resp := &response.LocationResponse{LastLocation: user.LastLocation}
	if user.LastLocationTime != nil {
		resp.LastLocationTime = user.LastLocationTime.Format(time.RFC3339)
	}
	response.Success(c, resp)
}

// SendMeetCheck 客户端预检发送门槛
func (h *UserHandler) SendMeetCheck(c *gin.Context) {
	if err := h.service.SendMeetCheck(middleware.GetUser(c)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// SelectFake 记录一次“都不是”选择
func (h *UserHandler) SelectFake(c *gin.Context) {
	user := middleware.GetUser(c)
	if _, err := h.service.SelectFake(c.Request.Context(), user.Username); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// UpdateSpecialInfo 更新特征信息与照片
func (h *UserHandler) UpdateSpecialInfo(c *gin.Context) {
	type req struct {
		Hair         string `json:"hair" binding:"required"`
		Glasses      string `json:"glasses" binding:"required"`
		ClothesType  string `json:"clothesType" binding:"required"`
		ClothesColor string `json:"clothesColor" binding:"required"`
		ClothesStyle string `json:"clothesStyle" binding:"required"`
		SpecialPic   string `json:"specialPic" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	info := model.Appearance{
		Hair:         r.Hair,
		Glasses:      r.Glasses,
		ClothesType:  r.ClothesType,
		ClothesColor: r.ClothesColor,
		ClothesStyle: r.ClothesStyle,
	}
	updated, err := h.service.UpdateAppearance(c.Request.Context(), user.Username, info, r.SpecialPic)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"specialInfoTime": updated.SpecialInfoTime.Format(time.RFC3339)})
}

// GetSpecialInfo 取特征信息，未设置或已过期时返回空数据
func (h *UserHandler) GetSpecialInfo(c *gin.Context) {
	user := middleware.GetUser(c)
	if user.SpecialInfo.Hair == "" {
		response.Success(c, nil)
		return
	}
	response.Success(c, &response.AppearanceResponse{
		SpecialInfo: user.SpecialInfo,
		SpecialPic:  user.SpecialPic,
	})
}

// UploadSpecialPic 上传特征照片，返回存储文件名
func (h *UserHandler) UploadSpecialPic(c *gin.Context) {
	file, err := c.FormFile("specialPic")
	if err != nil {
		response.BadRequest(c, "没有指定上传文件!")
		return
	}
	name := uuid.NewString() + filepath.Ext(file.Filename)
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, name)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, name)
}

// UpdateDeviceToken 更新离线推送设备令牌
func (h *UserHandler) UpdateDeviceToken(c *gin.Context) {
	type req struct {
		DeviceToken string `json:"deviceToken" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	if err := h.service.UpdateDeviceToken(c.Request.Context(), user.Username, r.DeviceToken); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
