package repository

import (
	"context"
	"errors"
	"time"

	"pengpeng/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MeetRepository meet集合的数据访问层
// 所有状态推进都是带复合过滤条件的单文档原子更新：
// 过滤条件未命中返回nil，由上层判定为前置条件失败或并发冲突
type MeetRepository struct {
	coll *mongo.Collection
}

func NewMeetRepository(db *mongo.Database) *MeetRepository {
	return &MeetRepository{coll: db.Collection("meet")}
}

func (r *MeetRepository) Create(ctx context.Context, meet *model.Meet) error {
	res, err := r.coll.InsertOne(ctx, meet)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		meet.ID = oid
	}
	return nil
}

// GetByID 按ID查找，不存在时返回 (nil, nil)
func (r *MeetRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Meet, error) {
	var m model.Meet
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindPendingBetween 查找creater发给target的待回复meet
// 正向查是重复邀请检查，反向查是互相确认检测
func (r *MeetRepository) FindPendingBetween(ctx context.Context, creater, target string) (*model.Meet, error) {
	var m model.Meet
	err := r.coll.FindOne(ctx, bson.M{
		"createrUsername": creater,
		"targetUsername":  target,
		"status":          model.MeetPendingReply,
	}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// PendingTargets 自己所有待回复meet的目标用户名（候选检索的排除集）
func (r *MeetRepository) PendingTargets(ctx context.Context, creater string) ([]string, error) {
	cursor, err := r.coll.Find(ctx, bson.M{
		"createrUsername": creater,
		"status":          model.MeetPendingReply,
	}, options.Find().SetProjection(bson.M{"targetUsername": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TargetUsername string `bson:"targetUsername"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, row.TargetUsername)
	}
	return targets, nil
}

// GetOpenByCreater 按(ID, 创建者, 待确认)取自己的开放meet，未命中返回 (nil, nil)
func (r *MeetRepository) GetOpenByCreater(ctx context.Context, id primitive.ObjectID, creater string) (*model.Meet, error) {
	var m model.Meet
	err := r.coll.FindOne(ctx, bson.M{
		"_id":             id,
		"createrUsername": creater,
		"status":          model.MeetPendingConfirm,
	}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// BindTarget 把选中的目标绑定到自己的开放meet上：待确认 -> 待回复
// 返回更新后的meet，过滤条件未命中（已被别的请求推进）时返回 (nil, nil)
func (r *MeetRepository) BindTarget(ctx context.Context, id primitive.ObjectID, creater string, target *model.User) (*model.Meet, error) {
	filter := bson.M{
		"_id":             id,
		"createrUsername": creater,
		"status":          model.MeetPendingConfirm,
	}
	update := bson.M{"$set": bson.M{
		"targetUsername":   target.Username,
		"targetNickname":   target.Username,
		"targetSpecialPic": target.SpecialPic,
		"targetUnread":     false,
		"status":           model.MeetPendingReply,
	}}
	return r.findOneAndUpdate(ctx, filter, update)
}

// ResolveOpenSucceeded 互相确认时把自己的开放meet直接推到成功并绑定目标
func (r *MeetRepository) ResolveOpenSucceeded(ctx context.Context, id primitive.ObjectID, creater string, target *model.User, now time.Time) (*model.Meet, error) {
	filter := bson.M{
		"_id":             id,
		"createrUsername": creater,
		"status":          model.MeetPendingConfirm,
	}
	update := bson.M{"$set": bson.M{
		"targetUsername":   target.Username,
		"targetNickname":   target.Username,
		"targetSpecialPic": target.SpecialPic,
		"targetUnread":     false,
		"status":           model.MeetSucceeded,
		"confirmTime":      now,
	}}
	return r.findOneAndUpdate(ctx, filter, update)
}

// MarkSucceeded 待回复 -> 成功（互相确认时推进对方的meet）
func (r *MeetRepository) MarkSucceeded(ctx context.Context, id primitive.ObjectID, now time.Time) (*model.Meet, error) {
	filter := bson.M{"_id": id, "status": model.MeetPendingReply}
	update := bson.M{"$set": bson.M{
		"status":      model.MeetSucceeded,
		"confirmTime": now,
	}}
	return r.findOneAndUpdate(ctx, filter, update)
}

// ConfirmDirect 目标方直选创建者：(ID, 目标=caller, 待回复, 创建者=指认对象)
// 四个条件同时命中才推进到成功，否则返回 (nil, nil)，不区分是哪个条件失败
func (r *MeetRepository) ConfirmDirect(ctx context.Context, id primitive.ObjectID, target, creater string, now time.Time) (*model.Meet, error) {
	filter := bson.M{
		"_id":             id,
		"targetUsername":  target,
		"status":          model.MeetPendingReply,
		"createrUsername": creater,
	}
	update := bson.M{"$set": bson.M{
		"status":      model.MeetSucceeded,
		"confirmTime": now,
	}}
	return r.findOneAndUpdate(ctx, filter, update)
}

// DecrementReply 原子扣减回复次数
// replyLeft>0进入过滤条件，两个并发回复不可能把1各自扣成0后都成功
func (r *MeetRepository) DecrementReply(ctx context.Context, id primitive.ObjectID, target string) (*model.Meet, error) {
	filter := bson.M{
		"_id":            id,
		"targetUsername": target,
		"replyLeft":      bson.M{"$gt": 0},
	}
	update := bson.M{"$inc": bson.M{"replyLeft": -1}}
	return r.findOneAndUpdate(ctx, filter, update)
}

// ClearCreaterUnread 清除创建者侧未读标记，caller不是创建者或标记已清时返回 (nil, nil)
func (r *MeetRepository) ClearCreaterUnread(ctx context.Context, id primitive.ObjectID, username string) (*model.Meet, error) {
	filter := bson.M{"_id": id, "createrUsername": username, "createrUnread": true}
	return r.findOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"createrUnread": false}})
}

// ClearTargetUnread 清除目标侧未读标记
func (r *MeetRepository) ClearTargetUnread(ctx context.Context, id primitive.ObjectID, username string) (*model.Meet, error) {
	filter := bson.M{"_id": id, "targetUsername": username, "targetUnread": true}
	return r.findOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"targetUnread": false}})
}

func (r *MeetRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.Meet, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m model.Meet
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
