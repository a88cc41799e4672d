package handler

import (
	"pengpeng/internal/middleware"
	"pengpeng/internal/service"
	"pengpeng/pkg/response"

	"github.com/gin-gonic/gin"
)

type FriendHandler struct {
	service *service.FriendService
}

func NewFriendHandler(s *service.FriendService) *FriendHandler {
	return &FriendHandler{service: s}
}

// GetFriends 取本人全部好友记录
func (h *FriendHandler) GetFriends(c *gin.Context) {
	user := middleware.GetUser(c)
	friends, err := h.service.List(c.Request.Context(), user.Username)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, friends)
}
