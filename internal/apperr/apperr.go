package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// 业务错误定义
// 所有业务规则失败都是用户可见的非致命错误，存储/连接类错误才视为请求级致命错误

var (
	ErrUserExists      = errors.New("用户名已存在!")
	ErrBadCredentials  = errors.New("用户名或密码错误!")
	ErrStaleAppearance = errors.New("请更新特征信息!")
	ErrStaleLocation   = errors.New("无法定位最新位置!")
	ErrTargetNotFound  = errors.New("没有找到对应目标!")
	ErrNoMeetFound     = errors.New("没有对应meet!")
	ErrNoRepliesLeft   = errors.New("无回复次数!")
	ErrDuplicateInvite = errors.New("已对此人发过邀请!")
	ErrAlreadyFriends  = errors.New("此人已是你好友!")
	// ErrStorageConflict 条件更新未命中任何记录（记录已被并发修改）
	ErrStorageConflict = errors.New("操作冲突,请重试!")
)

// CoolDownError 发送冷却未结束，携带剩余整秒数
type CoolDownError struct {
	Remaining int64 // 剩余秒数（向上取整）
}

func (e *CoolDownError) Error() string {
	return fmt.Sprintf("距离允许发送新邀请还有:%d秒", e.Remaining)
}

// ValidationError 必填项缺失或格式错误，携带出错字段路径
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "缺少必填项!"
	}
	return "缺少必填项: " + strings.Join(e.Fields, ", ")
}
