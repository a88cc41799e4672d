package service

import (
	"context"
	"math"
	"time"

	"pengpeng/internal/apperr"
	"pengpeng/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 内存版存储实现，条件更新语义与mongo仓储一致

type fakeUserStore struct {
	users       map[string]*model.User
	lastExclude []string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}

func (f *fakeUserStore) Create(ctx context.Context, user *model.User) error {
	if _, ok := f.users[user.Username]; ok {
		return apperr.ErrUserExists
	}
	user.ID = primitive.NewObjectID()
	f.users[user.Username] = cloneUser(user)
	return nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (f *fakeUserStore) UpdateLocation(ctx context.Context, username string, lng, lat float64, now time.Time) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, nil
	}
	u.LastLocation = model.NewGeoPoint(lng, lat)
	t := now
	u.LastLocationTime = &t
	return cloneUser(u), nil
}

func (f *fakeUserStore) UpdateAppearance(ctx context.Context, username string, info model.Appearance, pic string, now time.Time) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, nil
	}
	sex := u.SpecialInfo.Sex
	u.SpecialInfo = info
	u.SpecialInfo.Sex = sex
	u.SpecialPic = pic
	t := now
	u.SpecialInfoTime = &t
	return cloneUser(u), nil
}

func (f *fakeUserStore) UpdateDeviceToken(ctx context.Context, username, deviceToken string) error {
	if u, ok := f.users[username]; ok {
		u.DeviceToken = deviceToken
	}
	return nil
}

func (f *fakeUserStore) StampMeetCreate(ctx context.Context, username string, now time.Time, clearFake bool) error {
	u, ok := f.users[username]
	if !ok {
		return apperr.ErrStorageConflict
	}
	if u.LastMeetCreateTime != nil && u.LastMeetCreateTime.After(now.Add(-model.MeetCoolDown)) {
		return apperr.ErrStorageConflict
	}
	t := now
	u.LastMeetCreateTime = &t
	if clearFake {
		u.LastFakeTime = nil
	}
	return nil
}

func (f *fakeUserStore) SelectFake(ctx context.Context, username string, now time.Time) (bool, error) {
	u, ok := f.users[username]
	if !ok {
		return false, nil
	}
	if u.LastFakeTime != nil && u.LastFakeTime.After(now.Add(-model.FakeCoolDown)) {
		t := now
		u.LastMeetCreateTime = &t
		u.LastFakeTime = nil
		return true, nil
	}
	t := now
	u.LastFakeTime = &t
	return false, nil
}

func (f *fakeUserStore) ClearFakeTime(ctx context.Context, username string) error {
	if u, ok := f.users[username]; ok {
		u.LastFakeTime = nil
	}
	return nil
}

func (f *fakeUserStore) FindCandidates(ctx context.Context, guess model.Appearance, lng, lat float64, exclude []string, now time.Time) ([]model.Candidate, error) {
	f.lastExclude = exclude
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	out := make([]model.Candidate, 0)
	for _, u := range f.users {
		if excluded[u.Username] {
			continue
		}
		if u.SpecialInfoTime == nil || !u.SpecialInfoTime.After(model.StartOfDay(now)) {
			continue
		}
		if u.LastLocationTime == nil || !u.LastLocationTime.After(now.Add(-model.LocationFreshness)) {
			continue
		}
		if u.LastLocation == nil || u.SpecialInfo.Sex != guess.Sex {
			continue
		}
		if metersApart(lng, lat, u.LastLocation.Coordinates[0], u.LastLocation.Coordinates[1]) > model.CandidateRadius {
			continue
		}
		score := u.SpecialInfo.Score(guess)
		if score < model.MatchThreshold {
			continue
		}
		out = append(out, model.Candidate{Username: u.Username, SpecialPic: u.SpecialPic, Score: score})
	}
	return out, nil
}

// metersApart 等距圆柱近似，测试里的距离都远离临界值
func metersApart(lng1, lat1, lng2, lat2 float64) float64 {
	const earthRadius = 6371000.0
	toRad := math.Pi / 180
	x := (lng2 - lng1) * toRad * math.Cos((lat1+lat2)/2*toRad)
	y := (lat2 - lat1) * toRad
	return math.Sqrt(x*x+y*y) * earthRadius
}

type fakeMeetStore struct {
	meets map[primitive.ObjectID]*model.Meet
}

func newFakeMeetStore() *fakeMeetStore {
	return &fakeMeetStore{meets: make(map[primitive.ObjectID]*model.Meet)}
}

func cloneMeet(m *model.Meet) *model.Meet {
	c := *m
	return &c
}

func (f *fakeMeetStore) Create(ctx context.Context, meet *model.Meet) error {
	meet.ID = primitive.NewObjectID()
	f.meets[meet.ID] = cloneMeet(meet)
	return nil
}

func (f *fakeMeetStore) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok {
		return nil, nil
	}
	return cloneMeet(m), nil
}

func (f *fakeMeetStore) FindPendingBetween(ctx context.Context, creater, target string) (*model.Meet, error) {
	for _, m := range f.meets {
		if m.CreaterUsername == creater && m.TargetUsername == target && m.Status == model.MeetPendingReply {
			return cloneMeet(m), nil
		}
	}
	return nil, nil
}

func (f *fakeMeetStore) PendingTargets(ctx context.Context, creater string) ([]string, error) {
	targets := make([]string, 0)
	for _, m := range f.meets {
		if m.CreaterUsername == creater && m.Status == model.MeetPendingReply {
			targets = append(targets, m.TargetUsername)
		}
	}
	return targets, nil
}

func (f *fakeMeetStore) GetOpenByCreater(ctx context.Context, id primitive.ObjectID, creater string) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok || m.CreaterUsername != creater || m.Status != model.MeetPendingConfirm {
		return nil, nil
	}
	return cloneMeet(m), nil
}

func (f *fakeMeetStore) BindTarget(ctx context.Context, id primitive.ObjectID, creater string, target *model.User) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok || m.CreaterUsername != creater || m.Status != model.MeetPendingConfirm {
		return nil, nil
	}
	m.TargetUsername = target.Username
	m.TargetNickname = target.Username
	m.TargetSpecialPic = target.SpecialPic
	m.TargetUnread = false
	m.Status = model.MeetPendingReply
	return cloneMeet(m), nil
}

func (f *fakeMeetStore) ResolveOpenSucceeded(ctx context.Context, id primitive.ObjectID, creater string, target *model.User, now time.Time) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok || m.CreaterUsername != creater || m.Status != model.MeetPendingConfirm {
		return nil, nil
	}
	m.TargetUsername = target.Username
	m.TargetNickname = target.Username
	m.TargetSpecialPic = target.SpecialPic
	m.TargetUnread = false
	m.Status = model.MeetSucceeded
	t := now
	m.ConfirmTime = &t
	return cloneMeet(m), nil
}

func (f *fakeMeetStore) MarkSucceeded(ctx context.Context, id primitive.ObjectID, now time.Time) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok || m.Status != model.MeetPendingReply {
		return nil, nil
	}
	m.Status = model.MeetSucceeded
	t := now
	m.ConfirmTime = &t
	return cloneMeet(m), nil
}

func (f *fakeMeetStore) ConfirmDirect(ctx context.Context, id primitive.ObjectID, target, creater string, now time.Time) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok || m.TargetUsername != target || m.Status != model.MeetPendingReply || m.CreaterUsername != creater {
		return nil, nil
	}
	m.Status = model.MeetSucceeded
	t := now
	m.ConfirmTime = &t
	return cloneMeet(m), nil
}

func (f *fakeMeetStore) DecrementReply(ctx context.Context, id primitive.ObjectID, target string) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok || m.TargetUsername != target || m.ReplyLeft <= 0 {
		return nil, nil
	}
	m.ReplyLeft--
	return cloneMeet(m), nil
}

func (f *fakeMeetStore) ClearCreaterUnread(ctx context.Context, id primitive.ObjectID, username string) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok || m.CreaterUsername != username || !m.CreaterUnread {
		return nil, nil
	}
	m.CreaterUnread = false
	return cloneMeet(m), nil
}

func (f *fakeMeetStore) ClearTargetUnread(ctx context.Context, id primitive.ObjectID, username string) (*model.Meet, error) {
	m, ok := f.meets[id]
	if !ok || m.TargetUsername != username || !m.TargetUnread {
		return nil, nil
	}
	m.TargetUnread = false
	return cloneMeet(m), nil
}

type fakeFriendStore struct {
	friends map[string]*model.Friend
}

func newFakeFriendStore() *fakeFriendStore {
	return &fakeFriendStore{friends: make(map[string]*model.Friend)}
}

func (f *fakeFriendStore) Upsert(ctx context.Context, friend *model.Friend) (*model.Friend, bool, error) {
	if existing, ok := f.friends[friend.PairKey]; ok {
		c := *existing
		return &c, false, nil
	}
	friend.ID = primitive.NewObjectID()
	stored := *friend
	f.friends[friend.PairKey] = &stored
	c := stored
	return &c, true, nil
}

func (f *fakeFriendStore) GetByPair(ctx context.Context, a, b string) (*model.Friend, error) {
	if existing, ok := f.friends[model.FriendPairKey(a, b)]; ok {
		c := *existing
		return &c, nil
	}
	return nil, nil
}

func (f *fakeFriendStore) ListByUsername(ctx context.Context, username string) ([]model.Friend, error) {
	out := make([]model.Friend, 0)
	for _, fr := range f.friends {
		if fr.Involves(username) {
			out = append(out, *fr)
		}
	}
	return out, nil
}

type fakeMessageStore struct {
	messages []*model.Message
}

func (f *fakeMessageStore) Create(ctx context.Context, msg *model.Message) error {
	msg.ID = primitive.NewObjectID()
	stored := *msg
	f.messages = append(f.messages, &stored)
	return nil
}

func (f *fakeMessageStore) ListConversation(ctx context.Context, a, b string) ([]model.Message, error) {
	out := make([]model.Message, 0)
	for _, m := range f.messages {
		if (m.From == a && m.To == b) || (m.From == b && m.To == a) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) MarkRead(ctx context.Context, from, to string) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.From == from && m.To == to && m.Unread {
			m.Unread = false
			n++
		}
	}
	return n, nil
}

// env 测试环境：内存存储 + 可拨动的时钟
type env struct {
	users     *fakeUserStore
	meets     *fakeMeetStore
	friends   *fakeFriendStore
	userSvc   *UserService
	meetSvc   *MeetService
	friendSvc *FriendService
	now       time.Time
}

func newEnv() *env {
	e := &env{
		users:   newFakeUserStore(),
		meets:   newFakeMeetStore(),
		friends: newFakeFriendStore(),
		now:     time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local),
	}
	clock := func() time.Time { return e.now }

	e.userSvc = NewUserService(e.users, nil)
	e.userSvc.now = clock
	e.friendSvc = NewFriendService(e.friends, e.users, Collaborators{})
	e.meetSvc = NewMeetService(e.meets, e.users, e.friendSvc, Collaborators{})
	e.meetSvc.now = clock
	return e
}

func (e *env) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

// addUser 添加一个特征与位置都新鲜的用户
func (e *env) addUser(username, sex string, lng, lat float64) *model.User {
	infoTime := e.now.Add(-time.Hour)
	locTime := e.now.Add(-time.Minute)
	u := &model.User{
		ID:       primitive.NewObjectID(),
		Username: username,
		Nickname: username + "昵称",
		SpecialInfo: model.Appearance{
			Sex:          sex,
			Hair:         "短发",
			Glasses:      "无",
			ClothesType:  "T恤",
			ClothesColor: "黑",
			ClothesStyle: "运动",
		},
		SpecialPic:       username + ".png",
		SpecialInfoTime:  &infoTime,
		LastLocation:     model.NewGeoPoint(lng, lat),
		LastLocationTime: &locTime,
	}
	e.users.users[username] = u
	return cloneUser(u)
}

func (e *env) reload(username string) *model.User {
	u, _ := e.users.GetByUsername(context.Background(), username)
	return u
}
