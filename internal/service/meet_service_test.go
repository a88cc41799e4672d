package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pengpeng/internal/apperr"
	"pengpeng/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testMapLoc = model.MapLoc{Name: "星巴克", Address: "某路1号", UID: "poi-1"}

func descriptorOf(u *model.User) model.Appearance { return u.SpecialInfo }

// offDescriptor 返回与u相差n项属性的描述
func offDescriptor(u *model.User, n int) model.Appearance {
	d := u.SpecialInfo
	if n >= 1 {
		d.Hair = "长发"
	}
	if n >= 2 {
		d.Glasses = "有"
	}
	return d
}

func TestCreateOpen(t *testing.T) {
	e := newEnv()
	alice := e.addUser("alice", "女", 121.5, 31.2)
	ctx := context.Background()

	meet, err := e.meetSvc.CreateOpen(ctx, alice, testMapLoc, offDescriptor(alice, 1))
	if err != nil {
		t.Fatalf("创建开放meet失败: %v", err)
	}
	if meet.Status != model.MeetPendingConfirm {
		t.Errorf("status = %s, want %s", meet.Status, model.MeetPendingConfirm)
	}
	if meet.ReplyLeft != model.InitialReplyLeft {
		t.Errorf("replyLeft = %d, want %d", meet.ReplyLeft, model.InitialReplyLeft)
	}
	if meet.CreaterNickname != "alice" {
		t.Errorf("开放meet的创建者昵称快照应为用户名, got %q", meet.CreaterNickname)
	}
	if u := e.reload("alice"); u.LastMeetCreateTime == nil || !u.LastMeetCreateTime.Equal(e.now) {
		t.Error("创建meet应盖章lastMeetCreateTime")
	}

	// 10秒后再次创建：冷却中
	e.advance(10 * time.Second)
	_, err = e.meetSvc.CreateOpen(ctx, e.reload("alice"), testMapLoc, offDescriptor(alice, 1))
	var coolDown *apperr.CoolDownError
	if !errors.As(err, &coolDown) {
		t.Fatalf("冷却中创建应返回CoolDownError, got %v", err)
	}

	// 31秒后可以再次创建
	e.advance(21 * time.Second)
	if _, err := e.meetSvc.CreateOpen(ctx, e.reload("alice"), testMapLoc, offDescriptor(alice, 1)); err != nil {
		t.Errorf("冷却结束后创建应成功, got %v", err)
	}
}

func TestCreateTargeted(t *testing.T) {
	e := newEnv()
	alice := e.addUser("alice", "女", 121.5, 31.2)
	bob := e.addUser("bob", "男", 121.501, 31.2)
	fakeTime := e.now.Add(-5 * time.Second)
	e.users.users["alice"].LastFakeTime = &fakeTime
	ctx := context.Background()

	meet, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob")
	if err != nil {
		t.Fatalf("创建定向meet失败: %v", err)
	}
	if meet.Status != model.MeetPendingReply {
		t.Errorf("status = %s, want %s", meet.Status, model.MeetPendingReply)
	}
	if meet.CreaterNickname != alice.Nickname || meet.TargetNickname != bob.Nickname {
		t.Errorf("双方昵称快照错误: %q / %q", meet.CreaterNickname, meet.TargetNickname)
	}
	if !meet.TargetUnread {
		t.Error("定向meet创建后目标侧应为未读")
	}
	if meet.SpecialInfo != bob.SpecialInfo {
		t.Error("定向meet应快照目标的特征描述")
	}
	if u := e.reload("alice"); u.LastFakeTime != nil {
		t.Error("定向创建应清空lastFakeTime")
	}

	// 对同一人重复邀请
	e.advance(time.Minute)
	if _, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob"); !errors.Is(err, apperr.ErrDuplicateInvite) {
		t.Errorf("重复邀请应返回ErrDuplicateInvite, got %v", err)
	}
}

func TestCreateTargetedTargetNotFound(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)

	_, err := e.meetSvc.CreateTargeted(context.Background(), e.reload("alice"), testMapLoc, "ghost")
	if !errors.Is(err, apperr.ErrTargetNotFound) {
		t.Errorf("目标不存在应返回ErrTargetNotFound, got %v", err)
	}
}

func TestCreateTargetedAlreadyFriends(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	ctx := context.Background()
	if _, err := e.friendSvc.Materialize(ctx, e.reload("alice"), "bob"); err != nil {
		t.Fatal(err)
	}

	_, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob")
	if !errors.Is(err, apperr.ErrAlreadyFriends) {
		t.Errorf("已是好友应返回ErrAlreadyFriends, got %v", err)
	}
}

func TestCreateTargetedMutual(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	ctx := context.Background()

	first, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob")
	if err != nil {
		t.Fatal(err)
	}

	// bob反向邀请：不创建新meet，alice的meet推进到成功，好友物化
	resolved, err := e.meetSvc.CreateTargeted(ctx, e.reload("bob"), testMapLoc, "alice")
	if err != nil {
		t.Fatalf("互发解决失败: %v", err)
	}
	if resolved.ID != first.ID {
		t.Error("互发时应返回对方已有的meet而不是新建")
	}
	if resolved.Status != model.MeetSucceeded {
		t.Errorf("互发后meet状态 = %s, want %s", resolved.Status, model.MeetSucceeded)
	}
	if len(e.meets.meets) != 1 {
		t.Errorf("互发不应创建第二条meet, got %d", len(e.meets.meets))
	}
	if len(e.friends.friends) != 1 {
		t.Errorf("互发应物化一条好友记录, got %d", len(e.friends.friends))
	}
}

// 并发竞态下双方的定向meet都已落库时，双方先后确认：
// 两种顺序的终态一致——好友恰好一条，两条meet都成功
func TestMutualConfirmationBothOrderings(t *testing.T) {
	orderings := []struct {
		name  string
		first string
	}{
		{"alice先确认", "alice"},
		{"bob先确认", "bob"},
	}
	for _, tc := range orderings {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			e.addUser("alice", "女", 121.5, 31.2)
			e.addUser("bob", "男", 121.501, 31.2)
			ctx := context.Background()

			seed := func(creater, target string) primitive.ObjectID {
				m := &model.Meet{
					CreaterUsername: creater,
					TargetUsername:  target,
					TargetUnread:    true,
					Status:          model.MeetPendingReply,
					ReplyLeft:       model.InitialReplyLeft,
					MapLoc:          testMapLoc,
				}
				if err := e.meets.Create(ctx, m); err != nil {
					t.Fatal(err)
				}
				return m.ID
			}
			meetToBob := seed("alice", "bob")
			meetToAlice := seed("bob", "alice")

			confirm := func(who string) {
				var meetID primitive.ObjectID
				var creater string
				if who == "alice" {
					meetID, creater = meetToAlice, "bob"
				} else {
					meetID, creater = meetToBob, "alice"
				}
				if _, err := e.meetSvc.ConfirmByDirectSelection(ctx, e.reload(who), meetID, creater); err != nil {
					t.Fatalf("%s确认失败: %v", who, err)
				}
			}
			second := "bob"
			if tc.first == "bob" {
				second = "alice"
			}
			confirm(tc.first)
			confirm(second)

			if len(e.friends.friends) != 1 {
				t.Errorf("好友记录数 = %d, want 1", len(e.friends.friends))
			}
			for _, id := range []primitive.ObjectID{meetToBob, meetToAlice} {
				m, _ := e.meets.GetByID(ctx, id)
				if m.Status != model.MeetSucceeded {
					t.Errorf("meet %s 状态 = %s, want %s", id.Hex(), m.Status, model.MeetSucceeded)
				}
			}
		})
	}
}

func TestConfirmOpenBindsTarget(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	ctx := context.Background()

	open, err := e.meetSvc.CreateOpen(ctx, e.reload("alice"), testMapLoc, offDescriptor(e.reload("bob"), 1))
	if err != nil {
		t.Fatal(err)
	}

	bound, err := e.meetSvc.ConfirmOpen(ctx, e.reload("alice"), open.ID, "bob")
	if err != nil {
		t.Fatalf("绑定目标失败: %v", err)
	}
	if bound.Status != model.MeetPendingReply {
		t.Errorf("status = %s, want %s", bound.Status, model.MeetPendingReply)
	}
	if bound.TargetNickname != "bob" {
		t.Errorf("绑定时目标昵称快照应为用户名, got %q", bound.TargetNickname)
	}
	if bound.TargetUnread {
		t.Error("绑定目标后目标侧应为已读")
	}

	// 再次绑定：状态已不是待确认
	if _, err := e.meetSvc.ConfirmOpen(ctx, e.reload("alice"), open.ID, "bob"); !errors.Is(err, apperr.ErrDuplicateInvite) {
		// 绑定成功后bob已是待回复目标，先命中重复邀请守卫
		t.Errorf("重复绑定应被守卫拦下, got %v", err)
	}
}

func TestConfirmOpenMutual(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	ctx := context.Background()

	open, err := e.meetSvc.CreateOpen(ctx, e.reload("alice"), testMapLoc, offDescriptor(e.reload("bob"), 1))
	if err != nil {
		t.Fatal(err)
	}
	e.advance(time.Minute)
	reciprocal, err := e.meetSvc.CreateTargeted(ctx, e.reload("bob"), testMapLoc, "alice")
	if err != nil {
		t.Fatal(err)
	}

	own, err := e.meetSvc.ConfirmOpen(ctx, e.reload("alice"), open.ID, "bob")
	if err != nil {
		t.Fatalf("互发确认失败: %v", err)
	}
	if own.Status != model.MeetSucceeded || own.TargetUsername != "bob" {
		t.Errorf("己方meet应绑定目标并成功, got %s/%s", own.Status, own.TargetUsername)
	}
	other, _ := e.meets.GetByID(ctx, reciprocal.ID)
	if other.Status != model.MeetSucceeded {
		t.Errorf("对方meet状态 = %s, want %s", other.Status, model.MeetSucceeded)
	}
	if len(e.friends.friends) != 1 {
		t.Errorf("好友记录数 = %d, want 1", len(e.friends.friends))
	}
}

func TestConfirmOpenStaleAppearance(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	ctx := context.Background()

	open, err := e.meetSvc.CreateOpen(ctx, e.reload("alice"), testMapLoc, offDescriptor(e.reload("bob"), 1))
	if err != nil {
		t.Fatal(err)
	}
	stale := model.StartOfDay(e.now).Add(-time.Hour)
	e.users.users["alice"].SpecialInfoTime = &stale

	if _, err := e.meetSvc.ConfirmOpen(ctx, e.reload("alice"), open.ID, "bob"); !errors.Is(err, apperr.ErrStaleAppearance) {
		t.Errorf("过期特征应返回ErrStaleAppearance, got %v", err)
	}
}

func TestReplyWithAttributeMatch(t *testing.T) {
	e := newEnv()
	alice := e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	ctx := context.Background()

	meet, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob")
	if err != nil {
		t.Fatal(err)
	}

	// 第一次：两项不同，不匹配但仍扣次数
	outcome, err := e.meetSvc.ReplyWithAttributeMatch(ctx, e.reload("bob"), meet.ID, offDescriptor(alice, 2))
	if err != nil {
		t.Fatalf("不匹配不应是错误: %v", err)
	}
	if outcome.Matched || len(outcome.Cards) != 0 {
		t.Errorf("两项不同不应匹配, got %+v", outcome)
	}
	if m, _ := e.meets.GetByID(ctx, meet.ID); m.ReplyLeft != 1 {
		t.Errorf("不匹配也应扣减回复次数, replyLeft = %d", m.ReplyLeft)
	}

	// 第二次：一项不同，匹配成功，返回创建者+4个假目标
	outcome, err = e.meetSvc.ReplyWithAttributeMatch(ctx, e.reload("bob"), meet.ID, offDescriptor(alice, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Matched {
		t.Fatal("一项不同应匹配成功")
	}
	if len(outcome.Cards) != decoyCount+1 {
		t.Fatalf("卡片数 = %d, want %d", len(outcome.Cards), decoyCount+1)
	}
	if outcome.Cards[0].Username != "alice" || outcome.Cards[0].SpecialPic != alice.SpecialPic {
		t.Errorf("第一张卡片应是创建者, got %+v", outcome.Cards[0])
	}
	for _, card := range outcome.Cards[1:] {
		if card.Username != decoyUsername || card.SpecialPic != decoyPic {
			t.Errorf("假目标卡片错误: %+v", card)
		}
	}

	// 第三次：次数用尽
	if _, err := e.meetSvc.ReplyWithAttributeMatch(ctx, e.reload("bob"), meet.ID, offDescriptor(alice, 1)); !errors.Is(err, apperr.ErrNoRepliesLeft) {
		t.Errorf("次数用尽应返回ErrNoRepliesLeft, got %v", err)
	}
	if m, _ := e.meets.GetByID(ctx, meet.ID); m.ReplyLeft != 0 {
		t.Errorf("replyLeft不应低于0, got %d", m.ReplyLeft)
	}
}

func TestReplySexMismatchScoresZero(t *testing.T) {
	e := newEnv()
	alice := e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	ctx := context.Background()

	meet, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob")
	if err != nil {
		t.Fatal(err)
	}
	guess := descriptorOf(alice)
	guess.Sex = "男"
	outcome, err := e.meetSvc.ReplyWithAttributeMatch(ctx, e.reload("bob"), meet.ID, guess)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Matched {
		t.Error("性别不一致时即使其余全中也不应匹配")
	}
}

func TestReplyWrongTarget(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	carol := e.addUser("carol", "女", 121.502, 31.2)
	ctx := context.Background()

	meet, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.meetSvc.ReplyWithAttributeMatch(ctx, carol, meet.ID, descriptorOf(carol)); !errors.Is(err, apperr.ErrNoMeetFound) {
		t.Errorf("非目标用户回复应返回ErrNoMeetFound, got %v", err)
	}
}

func TestConfirmByDirectSelection(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	ctx := context.Background()

	meet, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob")
	if err != nil {
		t.Fatal(err)
	}
	fakeTime := e.now
	e.users.users["bob"].LastFakeTime = &fakeTime

	// 指认错了创建者：复合条件不命中
	if _, err := e.meetSvc.ConfirmByDirectSelection(ctx, e.reload("bob"), meet.ID, "carol"); !errors.Is(err, apperr.ErrNoMeetFound) {
		t.Errorf("指认错创建者应返回ErrNoMeetFound, got %v", err)
	}
	if m, _ := e.meets.GetByID(ctx, meet.ID); m.Status != model.MeetPendingReply {
		t.Error("指认失败不应推进状态")
	}

	confirmed, err := e.meetSvc.ConfirmByDirectSelection(ctx, e.reload("bob"), meet.ID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if confirmed.Status != model.MeetSucceeded {
		t.Errorf("status = %s, want %s", confirmed.Status, model.MeetSucceeded)
	}
	if len(e.friends.friends) != 1 {
		t.Errorf("好友记录数 = %d, want 1", len(e.friends.friends))
	}
	if u := e.reload("bob"); u.LastFakeTime != nil {
		t.Error("直选确认后应清空lastFakeTime")
	}
}

func TestMarkRead(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	e.addUser("bob", "男", 121.501, 31.2)
	e.addUser("carol", "女", 121.502, 31.2)
	ctx := context.Background()

	meet, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "bob")
	if err != nil {
		t.Fatal(err)
	}

	// 与此meet无关的用户：空结果，不是错误
	result, err := e.meetSvc.MarkRead(ctx, e.reload("carol"), meet.ID)
	if err != nil {
		t.Fatalf("旁观者清除未读不应出错: %v", err)
	}
	if result.Creater != nil || result.Target != nil {
		t.Error("旁观者应得到双侧皆空的结果")
	}
	if m, _ := e.meets.GetByID(ctx, meet.ID); !m.TargetUnread {
		t.Error("旁观者不应清除任何标记")
	}

	// 目标清除自己一侧
	result, err = e.meetSvc.MarkRead(ctx, e.reload("bob"), meet.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Target == nil || result.Target.TargetUnread {
		t.Error("目标侧未读应被清除")
	}
	if result.Creater != nil {
		t.Error("目标清除时创建者侧应为空")
	}
}

func TestFindCandidates(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	bob := e.addUser("bob", "男", 121.502, 31.2) // ~190米
	e.addUser("dave", "男", 121.52, 31.2)        // ~1900米，超出半径
	e.addUser("carol", "男", 121.501, 31.2)      // 已是好友
	e.addUser("pete", "男", 121.501, 31.2)       // 已被邀请
	ctx := context.Background()

	if _, err := e.friendSvc.Materialize(ctx, e.reload("alice"), "carol"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.meetSvc.CreateTargeted(ctx, e.reload("alice"), testMapLoc, "pete"); err != nil {
		t.Fatal(err)
	}

	candidates, err := e.meetSvc.FindCandidates(ctx, e.reload("alice"), offDescriptor(bob, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].Username != "bob" {
		t.Fatalf("候选应只有bob, got %+v", candidates)
	}
	if candidates[0].Score != 4 {
		t.Errorf("一项不同的候选得分 = %d, want 4", candidates[0].Score)
	}

	// 排除集 = 自己 + 待回复目标 + 好友
	excluded := map[string]bool{}
	for _, name := range e.users.lastExclude {
		excluded[name] = true
	}
	for _, want := range []string{"alice", "pete", "carol"} {
		if !excluded[want] {
			t.Errorf("排除集缺少 %s: %v", want, e.users.lastExclude)
		}
	}
}

// 端到端：开放meet -> 候选检索 -> 绑定 -> 直选确认 -> 好友
func TestOpenMeetEndToEnd(t *testing.T) {
	e := newEnv()
	e.addUser("alice", "女", 121.5, 31.2)
	bob := e.addUser("bob", "男", 121.502, 31.2)
	ctx := context.Background()

	open, err := e.meetSvc.CreateOpen(ctx, e.reload("alice"), testMapLoc, offDescriptor(bob, 1))
	if err != nil {
		t.Fatal(err)
	}

	candidates, err := e.meetSvc.CandidatesForOpenMeet(ctx, e.reload("alice"), open.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].Username != "bob" {
		t.Fatalf("候选应只有bob, got %+v", candidates)
	}

	if _, err := e.meetSvc.ConfirmOpen(ctx, e.reload("alice"), open.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.meetSvc.ConfirmByDirectSelection(ctx, e.reload("bob"), open.ID, "alice"); err != nil {
		t.Fatal(err)
	}

	m, _ := e.meets.GetByID(ctx, open.ID)
	if m.Status != model.MeetSucceeded {
		t.Errorf("status = %s, want %s", m.Status, model.MeetSucceeded)
	}
	f, _ := e.friends.GetByPair(ctx, "alice", "bob")
	if f == nil {
		t.Fatal("应存在alice与bob的好友记录")
	}
}
