package service

import (
	"context"
	"time"

	"pengpeng/internal/apperr"
	"pengpeng/internal/model"
	"pengpeng/pkg/jwt"
	"pengpeng/pkg/password"
)

// UserStore user集合的存储契约
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateLocation(ctx context.Context, username string, lng, lat float64, now time.Time) (*model.User, error)
	UpdateAppearance(ctx context.Context, username string, info model.Appearance, pic string, now time.Time) (*model.User, error)
	UpdateDeviceToken(ctx context.Context, username, deviceToken string) error
	StampMeetCreate(ctx context.Context, username string, now time.Time, clearFake bool) error
	SelectFake(ctx context.Context, username string, now time.Time) (bool, error)
	ClearFakeTime(ctx context.Context, username string) error
	FindCandidates(ctx context.Context, guess model.Appearance, lng, lat float64, exclude []string, now time.Time) ([]model.Candidate, error)
}

// gateCheck 发送meet前的速率门槛：
// 特征当天更新过、位置24小时内更新过、距上次发送超过30秒
func gateCheck(u *model.User, now time.Time) error {
	if !u.AppearanceFresh(now) {
		return apperr.ErrStaleAppearance
	}
	if !u.LocationFresh(now) {
		return apperr.ErrStaleLocation
	}
	if remaining := u.MeetCoolDownRemaining(now); remaining > 0 {
		seconds := int64((remaining + time.Second - 1) / time.Second)
		return &apperr.CoolDownError{Remaining: seconds}
	}
	return nil
}

type UserService struct {
	store UserStore
	jwt   *jwt.JWTService
	now   func() time.Time
}

func NewUserService(store UserStore, jwtService *jwt.JWTService) *UserService {
	return &UserService{store: store, jwt: jwtService, now: time.Now}
}

// Register 注册新用户并签发访问令牌，密码只存bcrypt哈希
func (s *UserService) Register(ctx context.Context, username, plainPassword, nickname, sex string) (*model.User, string, error) {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Nickname:     nickname,
		SpecialInfo:  model.Appearance{Sex: sex},
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.jwt.GenerateToken(user.Username, nil)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login 校验凭证并签发访问令牌
func (s *UserService) Login(ctx context.Context, username, plainPassword string) (*model.User, string, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !password.Verify(plainPassword, user.PasswordHash) {
		return nil, "", apperr.ErrBadCredentials
	}
	token, err := s.jwt.GenerateToken(user.Username, nil)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SendMeetCheck 客户端预检速率门槛
func (s *UserService) SendMeetCheck(user *model.User) error {
	return gateCheck(user, s.now())
}

// SelectFake 记录一次跳过，返回是否折叠进了发送冷却
func (s *UserService) SelectFake(ctx context.Context, username string) (bool, error) {
	return s.store.SelectFake(ctx, username, s.now())
}

func (s *UserService) UpdateLocation(ctx context.Context, username string, lng, lat float64) (*model.User, error) {
	user, err := s.store.UpdateLocation(ctx, username, lng, lat, s.now())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrTargetNotFound
	}
	return user, nil
}

func (s *UserService) UpdateAppearance(ctx context.Context, username string, info model.Appearance, pic string) (*model.User, error) {
	user, err := s.store.UpdateAppearance(ctx, username, info, pic, s.now())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrTargetNotFound
	}
	return user, nil
}

func (s *UserService) UpdateDeviceToken(ctx context.Context, username, deviceToken string) error {
	return s.store.UpdateDeviceToken(ctx, username, deviceToken)
}

// GetAuthenticated 认证后装载用户并应用特征过期屏蔽
func (s *UserService) GetAuthenticated(ctx context.Context, username string) (*model.User, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	user.MaskStaleAppearance(s.now())
	return user, nil
}
