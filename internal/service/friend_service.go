package service

import (
	"context"

	"pengpeng/internal/apperr"
	"pengpeng/internal/model"
	"pengpeng/pkg/push"
)

// FriendStore friend集合的存储契约
type FriendStore interface {
	Upsert(ctx context.Context, friend *model.Friend) (*model.Friend, bool, error)
	GetByPair(ctx context.Context, a, b string) (*model.Friend, error)
	ListByUsername(ctx context.Context, username string) ([]model.Friend, error)
}

// FriendService 好友物化与查询，实现meet侧的Friends契约
type FriendService struct {
	store  FriendStore
	users  UserStore
	collab Collaborators
}

func NewFriendService(store FriendStore, users UserStore, collab Collaborators) *FriendService {
	return &FriendService{store: store, users: users, collab: collab}
}

// Materialize 把一次成功的互相确认物化为好友记录
// 双方昵称与照片取物化时刻的快照；按pairKey幂等，
// 重复调用返回已有记录，镜像与推送只在真正新建时触发
func (s *FriendService) Materialize(ctx context.Context, self *model.User, targetUsername string) (*model.Friend, error) {
	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.ErrTargetNotFound
	}

	friend := &model.Friend{
		PairKey:     model.FriendPairKey(self.Username, target.Username),
		Username1:   self.Username,
		Nickname1:   self.Nickname,
		FriendLogo1: self.SpecialPic,
		Username2:   target.Username,
		Nickname2:   target.Nickname,
		FriendLogo2: target.SpecialPic,
	}
	stored, created, err := s.store.Upsert(ctx, friend)
	if err != nil {
		return nil, err
	}
	if created {
		s.collab.MirrorAsync("friends", stored.ID.Hex(), stored)
		s.collab.NotifyOffline(target, push.VariantNewFriend)
	}
	return stored, nil
}

// AreFriends 两人是否已是好友
func (s *FriendService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	f, err := s.store.GetByPair(ctx, a, b)
	if err != nil {
		return false, err
	}
	return f != nil, nil
}

// List 返回涉及该用户的全部好友记录
func (s *FriendService) List(ctx context.Context, username string) ([]model.Friend, error) {
	return s.store.ListByUsername(ctx, username)
}
