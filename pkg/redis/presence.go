package redis

import (
	"fmt"
	"time"
)

// 在线状态相关常量
const (
	PresenceKeyPrefix = "pp:online:user:" // 用户在线状态key前缀
	OnlineUsersKey    = "pp:online:users" // 在线用户集合key
	PresenceTTL       = 2 * time.Minute   // 在线状态TTL（2倍心跳周期）
)

// SetUserOnline 标记用户在线，带TTL
func SetUserOnline(username string) error {
	if client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	key := PresenceKeyPrefix + username
	if err := client.Set(ctx, key, time.Now().UnixMilli(), PresenceTTL).Err(); err != nil {
		return fmt.Errorf("设置用户在线状态失败: %w", err)
	}
	if err := client.SAdd(ctx, OnlineUsersKey, username).Err(); err != nil {
		return fmt.Errorf("更新在线用户集合失败: %w", err)
	}
	return nil
}

// RefreshUserOnline 心跳续期（延长TTL）
func RefreshUserOnline(username string) error {
	key := PresenceKeyPrefix + username
	ok, err := client.Expire(ctx, key, PresenceTTL).Result()
	if err != nil {
		return fmt.Errorf("刷新用户在线状态失败: %w", err)
	}
	if !ok {
		// TTL已过期，重新标记在线
		return SetUserOnline(username)
	}
	return nil
}

// SetUserOffline 移除用户在线状态
func SetUserOffline(username string) error {
	key := PresenceKeyPrefix + username
	if err := client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("删除用户在线状态失败: %w", err)
	}
	if err := client.SRem(ctx, OnlineUsersKey, username).Err(); err != nil {
		return fmt.Errorf("从在线用户集合移除失败: %w", err)
	}
	return nil
}

// IsUserOnline 检查用户是否在线
func IsUserOnline(username string) (bool, error) {
	if client == nil {
		return false, fmt.Errorf("redis客户端未初始化")
	}

	exists, err := client.Exists(ctx, PresenceKeyPrefix+username).Result()
	if err != nil {
		return false, fmt.Errorf("检查用户在线状态失败: %w", err)
	}
	return exists > 0, nil
}

// Checker 在线状态查询器，供通知链路判断是否需要离线推送
type Checker struct{}

// IsOnline 实现service.Presence
func (Checker) IsOnline(username string) (bool, error) {
	return IsUserOnline(username)
}
