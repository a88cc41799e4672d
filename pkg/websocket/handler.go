package websocket

import (
	"net/http"
	"strings"
	"time"

	"pengpeng/config"
	"pengpeng/pkg/jwt"
	"pengpeng/pkg/logger"
	"pengpeng/pkg/redis"
	"pengpeng/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

const (
	pingInterval = 30 * time.Second // 心跳间隔
	readTimeout  = 90 * time.Second // 读超时（未收到任何数据则断开）
)

// WsHandler 在线状态心跳连接
// 连接期间用户视为在线（离线推送不触发），断开或超时即下线
func WsHandler(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Sec-WebSocket-Protocol"), "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "缺少令牌!")
		return
	}

	jwtCfg := c.MustGet("jwt_config").(config.JWTConfig) // 需在main.go注入
	jwtSvc := jwt.NewJWTService(jwtCfg)
	claims, err := jwtSvc.ValidateToken(token)
	if err != nil || claims.Subject == "" {
		response.Unauthorized(c, "认证错误!")
		return
	}
	username := claims.Subject

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		return
	}

	client := &Client{Username: username, Conn: conn}
	GetManager().AddClient(username, client)
	if err := redis.SetUserOnline(username); err != nil {
		logger.Warn("标记用户在线失败", zap.String("username", username), zap.Error(err))
	}

	logger.Info("用户上线", zap.String("username", username))

	// 心跳写循环：定期发ping，pong续期在线状态
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		if err := redis.RefreshUserOnline(username); err != nil {
			logger.Warn("刷新在线状态失败", zap.String("username", username), zap.Error(err))
		}
		return nil
	})

	// 读循环：忽略数据帧内容，只用于驱动控制帧和超时
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
	}

	close(done)
	conn.Close()
	if GetManager().RemoveClient(username, client) {
		if err := redis.SetUserOffline(username); err != nil {
			logger.Warn("标记用户离线失败", zap.String("username", username), zap.Error(err))
		}
		logger.Info("用户下线", zap.String("username", username))
	}
}
