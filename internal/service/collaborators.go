package service

import (
	"pengpeng/internal/model"
	"pengpeng/pkg/logger"
	"pengpeng/pkg/push"

	"go.uber.org/zap"
)

// Presence 在线状态查询（redis心跳）
type Presence interface {
	IsOnline(username string) (bool, error)
}

// Pusher 离线推送（APNs）
type Pusher interface {
	Send(deviceToken string, variant push.Variant) error
}

// Mirror 外部同步镜像
type Mirror interface {
	Push(collection, id string, record interface{}) error
}

// Collaborators 尽力而为的外部协作方
// 所有调用都是fire-and-forget：失败只记Warn日志，绝不影响主流程结果
type Collaborators struct {
	Presence Presence
	Pusher   Pusher
	Mirror   Mirror
}

// MirrorAsync 异步镜像一条记录
func (c Collaborators) MirrorAsync(collection, id string, record interface{}) {
	if c.Mirror == nil {
		return
	}
	go func() {
		if err := c.Mirror.Push(collection, id, record); err != nil {
			logger.Warn("镜像同步失败",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err))
		}
	}()
}

// NotifyOffline 对方不在线时异步推送通知
func (c Collaborators) NotifyOffline(target *model.User, variant push.Variant) {
	if c.Pusher == nil || c.Presence == nil || target.DeviceToken == "" {
		return
	}
	username := target.Username
	deviceToken := target.DeviceToken
	go func() {
		online, err := c.Presence.IsOnline(username)
		if err != nil {
			logger.Warn("在线状态查询失败", zap.String("username", username), zap.Error(err))
			return
		}
		if online {
			return
		}
		if err := c.Pusher.Send(deviceToken, variant); err != nil {
			logger.Warn("离线推送失败", zap.String("username", username), zap.Error(err))
		}
	}()
}
