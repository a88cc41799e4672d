package model

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Friend 好友关系，双方昵称与照片为建立时刻的快照
// PairKey 为无序用户名对的幂等键，建有唯一索引，
// 保证互发确认的竞态下同一对用户至多生成一条记录
type Friend struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PairKey     string             `bson:"pairKey" json:"-"`
	Username1   string             `bson:"username1" json:"username1"`
	Nickname1   string             `bson:"nickname1" json:"nickname1"`
	FriendLogo1 string             `bson:"friendLogo1" json:"friendLogo1"`
	Username2   string             `bson:"username2" json:"username2"`
	Nickname2   string             `bson:"nickname2" json:"nickname2"`
	FriendLogo2 string             `bson:"friendLogo2" json:"friendLogo2"`
}

// FriendPairKey 无序用户名对的键：小写后按字典序以下划线连接
func FriendPairKey(a, b string) string {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// Involves f是否包含该用户
func (f *Friend) Involves(username string) bool {
	return f.Username1 == username || f.Username2 == username
}

// Other 返回对方用户名
func (f *Friend) Other(username string) string {
	if f.Username1 == username {
		return f.Username2
	}
	return f.Username1
}
