package service

import (
	"context"
	"time"

	"pengpeng/internal/apperr"
	"pengpeng/internal/model"
	"pengpeng/pkg/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MeetStore meet集合的存储契约，状态推进都是条件更新：
// 返回 (nil, nil) 表示过滤条件未命中
type MeetStore interface {
	Create(ctx context.Context, meet *model.Meet) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Meet, error)
	FindPendingBetween(ctx context.Context, creater, target string) (*model.Meet, error)
	PendingTargets(ctx context.Context, creater string) ([]string, error)
	GetOpenByCreater(ctx context.Context, id primitive.ObjectID, creater string) (*model.Meet, error)
	BindTarget(ctx context.Context, id primitive.ObjectID, creater string, target *model.User) (*model.Meet, error)
	ResolveOpenSucceeded(ctx context.Context, id primitive.ObjectID, creater string, target *model.User, now time.Time) (*model.Meet, error)
	MarkSucceeded(ctx context.Context, id primitive.ObjectID, now time.Time) (*model.Meet, error)
	ConfirmDirect(ctx context.Context, id primitive.ObjectID, target, creater string, now time.Time) (*model.Meet, error)
	DecrementReply(ctx context.Context, id primitive.ObjectID, target string) (*model.Meet, error)
	ClearCreaterUnread(ctx context.Context, id primitive.ObjectID, username string) (*model.Meet, error)
	ClearTargetUnread(ctx context.Context, id primitive.ObjectID, username string) (*model.Meet, error)
}

// Friends 好友物化与查询（由FriendService实现）
type Friends interface {
	Materialize(ctx context.Context, self *model.User, targetUsername string) (*model.Friend, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)
	List(ctx context.Context, username string) ([]model.Friend, error)
}

// 回复成功时的掩护假目标
const (
	decoyUsername = "fake"
	decoyPic      = "fake.png"
	decoyCount    = 4
)

// ReplyCard 回复结果中的一个可点击对象
type ReplyCard struct {
	Username   string `json:"username"`
	SpecialPic string `json:"specialPic"`
}

// ReplyOutcome 特征匹配回复的结果
// 不匹配不是错误：Matched为false、Cards为空
type ReplyOutcome struct {
	Matched bool
	Cards   []ReplyCard
}

// ReadResult 清除未读标记的结果，双侧各自独立，都为nil也是合法结果
type ReadResult struct {
	Creater *model.Meet `json:"creater"`
	Target  *model.Meet `json:"target"`
}

// MeetService meet生命周期的协调者
type MeetService struct {
	meets   MeetStore
	users   UserStore
	friends Friends
	collab  Collaborators
	now     func() time.Time
}

func NewMeetService(meets MeetStore, users UserStore, friends Friends, collab Collaborators) *MeetService {
	return &MeetService{
		meets:   meets,
		users:   users,
		friends: friends,
		collab:  collab,
		now:     time.Now,
	}
}

// CreateOpen 创建开放meet（只有目标特征描述，没有具体目标）
func (s *MeetService) CreateOpen(ctx context.Context, user *model.User, mapLoc model.MapLoc, descriptor model.Appearance) (*model.Meet, error) {
	now := s.now()
	if err := gateCheck(user, now); err != nil {
		return nil, err
	}
	if err := s.users.StampMeetCreate(ctx, user.Username, now, false); err != nil {
		return nil, err
	}

	meet := &model.Meet{
		CreaterUsername:   user.Username,
		CreaterNickname:   user.Username,
		CreaterSpecialPic: user.SpecialPic,
		CreaterUnread:     false,
		Status:            model.MeetPendingConfirm,
		ReplyLeft:         model.InitialReplyLeft,
		MapLoc:            mapLoc,
		PersonLoc:         *user.LastLocation,
		SpecialInfo:       descriptor,
	}
	if err := s.meets.Create(ctx, meet); err != nil {
		return nil, err
	}
	s.collab.MirrorAsync("meets", meet.ID.Hex(), meet)
	return meet, nil
}

// CreateTargeted 对指定用户创建meet
// 若对方已有发给自己的待回复meet（互发），不再创建新meet，
// 而是物化好友并把对方的meet推进到成功
func (s *MeetService) CreateTargeted(ctx context.Context, user *model.User, mapLoc model.MapLoc, targetUsername string) (*model.Meet, error) {
	now := s.now()
	if err := gateCheck(user, now); err != nil {
		return nil, err
	}
	if err := s.preInviteChecks(ctx, user, targetUsername); err != nil {
		return nil, err
	}
	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.ErrTargetNotFound
	}

	reciprocal, err := s.meets.FindPendingBetween(ctx, targetUsername, user.Username)
	if err != nil {
		return nil, err
	}
	if reciprocal != nil {
		return s.resolveMutualCreate(ctx, user, target, reciprocal, now)
	}

	if err := s.users.StampMeetCreate(ctx, user.Username, now, true); err != nil {
		return nil, err
	}
	meet := &model.Meet{
		CreaterUsername:   user.Username,
		CreaterNickname:   user.Nickname,
		CreaterSpecialPic: user.SpecialPic,
		CreaterUnread:     false,
		TargetUsername:    target.Username,
		TargetNickname:    target.Nickname,
		TargetSpecialPic:  target.SpecialPic,
		TargetUnread:      true,
		Status:            model.MeetPendingReply,
		ReplyLeft:         model.InitialReplyLeft,
		MapLoc:            mapLoc,
		PersonLoc:         *user.LastLocation,
		SpecialInfo:       target.SpecialInfo,
	}
	if err := s.meets.Create(ctx, meet); err != nil {
		return nil, err
	}
	s.collab.MirrorAsync("meets", meet.ID.Hex(), meet)
	s.collab.NotifyOffline(target, push.VariantNewInvite)
	return meet, nil
}

// FindCandidates 按调用方提供的特征描述检索附近候选人
func (s *MeetService) FindCandidates(ctx context.Context, user *model.User, descriptor model.Appearance) ([]model.Candidate, error) {
	now := s.now()
	if user.LastLocation == nil {
		return nil, apperr.ErrStaleLocation
	}
	exclude, err := s.excludeSet(ctx, user)
	if err != nil {
		return nil, err
	}
	lng, lat := user.LastLocation.Coordinates[0], user.LastLocation.Coordinates[1]
	return s.users.FindCandidates(ctx, descriptor, lng, lat, exclude, now)
}

// CandidatesForOpenMeet 用已存开放meet的特征描述重新检索候选人
func (s *MeetService) CandidatesForOpenMeet(ctx context.Context, user *model.User, meetID primitive.ObjectID) ([]model.Candidate, error) {
	meet, err := s.meets.GetOpenByCreater(ctx, meetID, user.Username)
	if err != nil {
		return nil, err
	}
	if meet == nil {
		return nil, apperr.ErrNoMeetFound
	}
	return s.FindCandidates(ctx, user, meet.SpecialInfo)
}

// ConfirmOpen 创建者把检索到的目标绑定到自己的开放meet上
// 互发时双方meet都推进到成功并物化好友
func (s *MeetService) ConfirmOpen(ctx context.Context, user *model.User, meetID primitive.ObjectID, targetUsername string) (*model.Meet, error) {
	now := s.now()
	if !user.AppearanceFresh(now) {
		return nil, apperr.ErrStaleAppearance
	}
	if err := s.preInviteChecks(ctx, user, targetUsername); err != nil {
		return nil, err
	}
	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.ErrTargetNotFound
	}

	reciprocal, err := s.meets.FindPendingBetween(ctx, targetUsername, user.Username)
	if err != nil {
		return nil, err
	}
	if reciprocal != nil {
		own, err := s.meets.ResolveOpenSucceeded(ctx, meetID, user.Username, target, now)
		if err != nil {
			return nil, err
		}
		if own == nil {
			return nil, apperr.ErrNoMeetFound
		}
		s.collab.MirrorAsync("meets", own.ID.Hex(), own)
		if _, err := s.friends.Materialize(ctx, user, targetUsername); err != nil {
			return nil, err
		}
		other, err := s.meets.MarkSucceeded(ctx, reciprocal.ID, now)
		if err != nil {
			return nil, err
		}
		// other为nil说明对方的meet已被并发推进，好友已物化，无需补救
		if other != nil {
			s.collab.MirrorAsync("meets", other.ID.Hex(), other)
		}
		return own, nil
	}

	updated, err := s.meets.BindTarget(ctx, meetID, user.Username, target)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.ErrNoMeetFound
	}
	s.collab.MirrorAsync("meets", updated.ID.Hex(), updated)
	s.collab.NotifyOffline(target, push.VariantNewInvite)
	return updated, nil
}

// ReplyWithAttributeMatch 目标方凭特征描述猜测创建者
// 每次调用无论是否匹配都原子扣减一次回复次数；
// 匹配成功返回创建者和4个假目标，不匹配是合法结果而非错误
func (s *MeetService) ReplyWithAttributeMatch(ctx context.Context, user *model.User, meetID primitive.ObjectID, guess model.Appearance) (*ReplyOutcome, error) {
	meet, err := s.meets.GetByID(ctx, meetID)
	if err != nil {
		return nil, err
	}
	if meet == nil || meet.TargetUsername != user.Username {
		return nil, apperr.ErrNoMeetFound
	}
	if meet.ReplyLeft <= 0 {
		return nil, apperr.ErrNoRepliesLeft
	}

	updated, err := s.meets.DecrementReply(ctx, meetID, user.Username)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// 读到的次数被并发回复用完了
		return nil, apperr.ErrNoRepliesLeft
	}
	s.collab.MirrorAsync("meets", updated.ID.Hex(), updated)

	creater, err := s.users.GetByUsername(ctx, meet.CreaterUsername)
	if err != nil {
		return nil, err
	}
	if creater == nil {
		return nil, apperr.ErrTargetNotFound
	}

	if creater.SpecialInfo.Score(guess) < model.MatchThreshold {
		return &ReplyOutcome{Matched: false}, nil
	}
	cards := make([]ReplyCard, 0, decoyCount+1)
	cards = append(cards, ReplyCard{Username: creater.Username, SpecialPic: creater.SpecialPic})
	for i := 0; i < decoyCount; i++ {
		cards = append(cards, ReplyCard{Username: decoyUsername, SpecialPic: decoyPic})
	}
	return &ReplyOutcome{Matched: true, Cards: cards}, nil
}

// ConfirmByDirectSelection 目标方直接指认创建者
// (meetId, 目标=caller, 待回复, 创建者=指认对象)四条件原子命中才成功
func (s *MeetService) ConfirmByDirectSelection(ctx context.Context, user *model.User, meetID primitive.ObjectID, createrUsername string) (*model.Meet, error) {
	updated, err := s.meets.ConfirmDirect(ctx, meetID, user.Username, createrUsername, s.now())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.ErrNoMeetFound
	}
	s.collab.MirrorAsync("meets", updated.ID.Hex(), updated)
	if _, err := s.friends.Materialize(ctx, user, createrUsername); err != nil {
		return nil, err
	}
	if err := s.users.ClearFakeTime(ctx, user.Username); err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkRead 按调用方角色独立清除两侧未读标记，双侧都未命中也是合法结果
func (s *MeetService) MarkRead(ctx context.Context, user *model.User, meetID primitive.ObjectID) (*ReadResult, error) {
	creater, err := s.meets.ClearCreaterUnread(ctx, meetID, user.Username)
	if err != nil {
		return nil, err
	}
	target, err := s.meets.ClearTargetUnread(ctx, meetID, user.Username)
	if err != nil {
		return nil, err
	}
	if mirrored := firstMeet(creater, target); mirrored != nil {
		s.collab.MirrorAsync("meets", mirrored.ID.Hex(), mirrored)
	}
	return &ReadResult{Creater: creater, Target: target}, nil
}

// preInviteChecks 创建/确认邀请前的守卫：未重复邀请且尚非好友
func (s *MeetService) preInviteChecks(ctx context.Context, user *model.User, targetUsername string) error {
	pending, err := s.meets.FindPendingBetween(ctx, user.Username, targetUsername)
	if err != nil {
		return err
	}
	if pending != nil {
		return apperr.ErrDuplicateInvite
	}
	already, err := s.friends.AreFriends(ctx, user.Username, targetUsername)
	if err != nil {
		return err
	}
	if already {
		return apperr.ErrAlreadyFriends
	}
	return nil
}

// resolveMutualCreate 互发解决：物化好友并把对方的meet推进到成功
func (s *MeetService) resolveMutualCreate(ctx context.Context, user *model.User, target *model.User, reciprocal *model.Meet, now time.Time) (*model.Meet, error) {
	if _, err := s.friends.Materialize(ctx, user, target.Username); err != nil {
		return nil, err
	}
	updated, err := s.meets.MarkSucceeded(ctx, reciprocal.ID, now)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.ErrStorageConflict
	}
	s.collab.MirrorAsync("meets", updated.ID.Hex(), updated)
	return updated, nil
}

// excludeSet 候选检索排除集：自己、已邀请未回复的目标、已有好友
func (s *MeetService) excludeSet(ctx context.Context, user *model.User) ([]string, error) {
	exclude := []string{user.Username}
	targets, err := s.meets.PendingTargets(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	exclude = append(exclude, targets...)
	friends, err := s.friends.List(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	for i := range friends {
		exclude = append(exclude, friends[i].Other(user.Username))
	}
	return exclude, nil
}

func firstMeet(meets ...*model.Meet) *model.Meet {
	for _, m := range meets {
		if m != nil {
			return m
		}
	}
	return nil
}
