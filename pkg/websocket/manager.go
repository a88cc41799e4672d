package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client 代表一个心跳连接的用户
type Client struct {
	Username string
	Conn     *websocket.Conn
}

// Manager 管理所有在线用户的心跳连接
// 连接本身只承载在线状态，不做消息投递
type Manager struct {
	clients map[string]*Client // 在线用户
	lock    sync.RWMutex
}

var manager = &Manager{
	clients: make(map[string]*Client),
}

// GetManager 获取全局WebSocket管理器
func GetManager() *Manager {
	return manager
}

// AddClient 添加新连接，同名旧连接被顶掉
func (m *Manager) AddClient(username string, client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if old, ok := m.clients[username]; ok {
		old.Conn.Close()
	}
	m.clients[username] = client
}

// RemoveClient 移除连接（仅当仍是当前连接时）
func (m *Manager) RemoveClient(username string, client *Client) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	if c, ok := m.clients[username]; ok && c == client {
		delete(m.clients, username)
		return true
	}
	return false
}

// IsConnected 判断用户是否有活跃连接
func (m *Manager) IsConnected(username string) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, ok := m.clients[username]
	return ok
}
