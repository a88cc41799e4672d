package handler

import (
	"pengpeng/internal/middleware"
	"pengpeng/internal/service"
	"pengpeng/pkg/response"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service *service.MessageService
}

func NewMessageHandler(s *service.MessageService) *MessageHandler {
	return &MessageHandler{service: s}
}

// SendMsg 发送消息
func (h *MessageHandler) SendMsg(c *gin.Context) {
	type req struct {
		FriendUsername string `json:"friendUsername" binding:"required"`
		Content        string `json:"content" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	msg, err := h.service.Send(c.Request.Context(), user, r.FriendUsername, r.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, msg)
}

// GetMsg 取与某好友的会话消息
func (h *MessageHandler) GetMsg(c *gin.Context) {
	type req struct {
		FriendUsername string `json:"friendUsername" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	msgs, err := h.service.List(c.Request.Context(), user.Username, r.FriendUsername)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, msgs)
}

// ReadMsg 把某好友发来的未读消息全部置为已读
func (h *MessageHandler) ReadMsg(c *gin.Context) {
	type req struct {
		FriendUsername string `json:"friendUsername" binding:"required"`
	}
	var r req
	if err := bindJSON(c, &r); err != nil {
		fail(c, err)
		return
	}
	user := middleware.GetUser(c)
	updated, err := h.service.MarkRead(c.Request.Context(), user.Username, r.FriendUsername)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"updated": updated})
}
