package push

import (
	"fmt"
	"time"

	"pengpeng/config"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Variant 推送文案类型
type Variant int

const (
	// VariantNewInvite 收到新邀请
	VariantNewInvite Variant = iota
	// VariantNewFriend 新加好友
	VariantNewFriend
)

func (v Variant) alert() string {
	switch v {
	case VariantNewFriend:
		return "你有新加好友!"
	default:
		return "你收到新的邀请!"
	}
}

// Notifier APNs离线推送
// 所有推送都是尽力而为：失败只记日志，绝不影响主流程
type Notifier struct {
	client *apns2.Client
	topic  string
	ttl    time.Duration
}

// NewNotifier 创建APNs推送器，未启用时返回nil（调用方需容忍nil）
func NewNotifier(cfg config.PushConfig) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("加载APNs密钥失败: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &Notifier{
		client: client,
		topic:  cfg.Topic,
		ttl:    time.Duration(cfg.TTL) * time.Second,
	}, nil
}

// Send 向设备推送一条通知
func (n *Notifier) Send(deviceToken string, variant Variant) error {
	if n == nil {
		return nil
	}
	if deviceToken == "" {
		return fmt.Errorf("设备令牌为空")
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       n.topic,
		Expiration:  time.Now().Add(n.ttl),
		Payload:     payload.NewPayload().Alert(variant.alert()).Badge(1).Sound("default"),
	}

	res, err := n.client.Push(notification)
	if err != nil {
		return fmt.Errorf("推送请求失败: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("推送被拒绝: %s", res.Reason)
	}
	return nil
}
