package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message 消息记录：单纯的追加+已读标记日志
type Message struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	From    string             `bson:"from" json:"from"`
	To      string             `bson:"to" json:"to"`
	Content string             `bson:"content" json:"content"`
	Time    time.Time          `bson:"time" json:"time"`
	Unread  bool               `bson:"unread" json:"unread"`
}

// ConversationKey 会话键：无序用户名对，小写后按字典序以下划线连接
func (m *Message) ConversationKey() string {
	f := strings.ToLower(m.From)
	t := strings.ToLower(m.To)
	if f > t {
		return t + "_" + f
	}
	return f + "_" + t
}
