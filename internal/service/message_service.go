package service

import (
	"context"
	"time"

	"pengpeng/internal/model"
)

// MessageStore message集合的存储契约
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	ListConversation(ctx context.Context, a, b string) ([]model.Message, error)
	MarkRead(ctx context.Context, from, to string) (int64, error)
}

// MessageService 单纯的追加+已读标记消息日志
type MessageService struct {
	store  MessageStore
	collab Collaborators
	now    func() time.Time
}

func NewMessageService(store MessageStore, collab Collaborators) *MessageService {
	return &MessageService{store: store, collab: collab, now: time.Now}
}

// Send 追加一条未读消息
func (s *MessageService) Send(ctx context.Context, from *model.User, friendUsername, content string) (*model.Message, error) {
	msg := &model.Message{
		From:    from.Username,
		To:      friendUsername,
		Content: content,
		Time:    s.now(),
		Unread:  true,
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.collab.MirrorAsync("messages", msg.ID.Hex(), msg)
	return msg, nil
}

// List 与某好友的全部消息，按时间正序
func (s *MessageService) List(ctx context.Context, username, friendUsername string) ([]model.Message, error) {
	return s.store.ListConversation(ctx, username, friendUsername)
}

// MarkRead 把对方发给自己的未读消息全部置为已读
func (s *MessageService) MarkRead(ctx context.Context, username, friendUsername string) (int64, error) {
	return s.store.MarkRead(ctx, friendUsername, username)
}
