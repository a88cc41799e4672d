package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 冷却与新鲜度窗口
const (
	MeetCoolDown      = 30 * time.Second // 两次发送meet之间的最小间隔
	FakeCoolDown      = 30 * time.Second // fake折叠窗口
	LocationFreshness = 24 * time.Hour   // 位置有效期
	// AppearanceGrace 特征信息在当天零点前的宽限时长：
	// 认证时早于（当天零点-8小时）更新的特征视为过期，仅保留性别
	AppearanceGrace = 8 * time.Hour
)

// CandidateRadius 候选检索的球面半径（米）
const CandidateRadius = 500

// Candidate 候选检索结果：只暴露照片，不暴露照片与得分之外的资料
type Candidate struct {
	Username   string  `bson:"username" json:"username"`
	SpecialPic string  `bson:"specialPic" json:"specialPic"`
	Distance   float64 `bson:"distance" json:"-"`
	Score      int     `bson:"score" json:"score"`
}

// User 用户文档
// 密码仅存储哈希（PasswordHash），不存储明文
// LastLocation 建有2dsphere索引，坐标顺序为 lng, lat
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Username           string             `bson:"username" json:"username"`
	PasswordHash       string             `bson:"passwordHash" json:"-"`
	Nickname           string             `bson:"nickname" json:"nickname"`
	SpecialInfo        Appearance         `bson:"specialInfo" json:"specialInfo"`
	SpecialPic         string             `bson:"specialPic,omitempty" json:"specialPic,omitempty"`
	SpecialInfoTime    *time.Time         `bson:"specialInfoTime,omitempty" json:"specialInfoTime,omitempty"`
	LastLocation       *GeoPoint          `bson:"lastLocation,omitempty" json:"lastLocation,omitempty"`
	LastLocationTime   *time.Time         `bson:"lastLocationTime,omitempty" json:"lastLocationTime,omitempty"`
	LastMeetCreateTime *time.Time         `bson:"lastMeetCreateTime,omitempty" json:"-"`
	LastFakeTime       *time.Time         `bson:"lastFakeTime,omitempty" json:"-"`
	DeviceToken        string             `bson:"deviceToken,omitempty" json:"-"`
}

// GeoPoint GeoJSON点，坐标顺序为 lng, lat
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint 根据经纬度构造GeoJSON点
func NewGeoPoint(lng, lat float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// StartOfDay 返回t所在本地日的零点
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AppearanceFresh 特征信息是否当天更新过（发送meet与候选检索的门槛）
func (u *User) AppearanceFresh(now time.Time) bool {
	return u.SpecialInfoTime != nil && u.SpecialInfoTime.After(StartOfDay(now))
}

// LocationFresh 位置是否在24小时内更新过
func (u *User) LocationFresh(now time.Time) bool {
	return u.LastLocationTime != nil && u.LastLocationTime.After(now.Add(-LocationFreshness))
}

// MeetCoolDownRemaining 距离允许再次发送meet的剩余时间，<=0表示可以发送
func (u *User) MeetCoolDownRemaining(now time.Time) time.Duration {
	if u.LastMeetCreateTime == nil {
		return 0
	}
	return u.LastMeetCreateTime.Add(MeetCoolDown).Sub(now)
}

// MaskStaleAppearance 认证时的过期屏蔽：
// 特征信息早于（当天零点-8小时）即视为缺失，仅保留性别，调用方需重新提交
func (u *User) MaskStaleAppearance(now time.Time) {
	cutoff := StartOfDay(now).Add(-AppearanceGrace)
	if u.SpecialInfoTime == nil || u.SpecialInfoTime.Before(cutoff) {
		u.SpecialInfo = Appearance{Sex: u.SpecialInfo.Sex}
	}
}
