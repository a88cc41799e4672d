package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MeetStatus meet生命周期状态
type MeetStatus string

const (
	// MeetPendingConfirm 待确认：创建者还在浏览候选人，尚未绑定目标
	MeetPendingConfirm MeetStatus = "pending_confirm"
	// MeetPendingReply 待回复：已绑定目标，等待对方回应
	MeetPendingReply MeetStatus = "pending_reply"
	// MeetSucceeded 成功：终态，之后仅允许清除未读标记
	MeetSucceeded MeetStatus = "succeeded"
)

// InitialReplyLeft 目标方的初始回复次数
const InitialReplyLeft = 2

// Meet 一次邀约记录
// creater/target两侧的昵称与照片是创建/确认时刻的快照，不随资料修改回填
// meet只推进状态，从不删除
type Meet struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreaterUsername   string             `bson:"createrUsername" json:"createrUsername"`
	CreaterNickname   string             `bson:"createrNickname,omitempty" json:"createrNickname,omitempty"`
	CreaterSpecialPic string             `bson:"createrSpecialPic,omitempty" json:"createrSpecialPic,omitempty"`
	CreaterUnread     bool               `bson:"createrUnread" json:"createrUnread"`
	TargetUsername    string             `bson:"targetUsername,omitempty" json:"targetUsername,omitempty"`
	TargetNickname    string             `bson:"targetNickname,omitempty" json:"targetNickname,omitempty"`
	TargetSpecialPic  string             `bson:"targetSpecialPic,omitempty" json:"targetSpecialPic,omitempty"`
	TargetUnread      bool               `bson:"targetUnread" json:"targetUnread"`
	ConfirmTime       *time.Time         `bson:"confirmTime,omitempty" json:"confirmTime,omitempty"`
	Status            MeetStatus         `bson:"status" json:"status"`
	ReplyLeft         int                `bson:"replyLeft" json:"replyLeft"`
	MapLoc            MapLoc             `bson:"mapLoc" json:"mapLoc"`
	PersonLoc         GeoPoint           `bson:"personLoc" json:"personLoc"`
	SpecialInfo       Appearance         `bson:"specialInfo" json:"specialInfo"`
}

// MapLoc 地图地点（检索结果快照）
type MapLoc struct {
	Name    string `bson:"name" json:"name"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`
	UID     string `bson:"uid" json:"uid"`
}

// CreatedTime meet的展示时间：确认后用确认时间，否则用ObjectID自带的创建时间
func (m *Meet) CreatedTime() time.Time {
	if m.ConfirmTime != nil {
		return *m.ConfirmTime
	}
	return m.ID.Timestamp()
}
