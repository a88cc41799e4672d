package repository

import (
	"context"
	"errors"

	"pengpeng/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FriendRepository struct {
	coll *mongo.Collection
}

func NewFriendRepository(db *mongo.Database) *FriendRepository {
	return &FriendRepository{coll: db.Collection("friend")}
}

// Upsert 按pairKey幂等写入好友记录
// pairKey有唯一索引，互相确认竞态下重复物化只会落下一条记录
// 返回库中记录与是否为本次新建
func (r *FriendRepository) Upsert(ctx context.Context, friend *model.Friend) (*model.Friend, bool, error) {
	filter := bson.M{"pairKey": friend.PairKey}
	res, err := r.coll.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": friend},
		options.Update().SetUpsert(true))
	if err != nil {
		// 并发upsert可能双双走插入分支，输掉唯一索引的一方重查即可
		if !mongo.IsDuplicateKeyError(err) {
			return nil, false, err
		}
		res = &mongo.UpdateResult{}
	}

	var stored model.Friend
	if err := r.coll.FindOne(ctx, filter).Decode(&stored); err != nil {
		return nil, false, err
	}
	return &stored, res.UpsertedCount > 0, nil
}

// GetByPair 查找两人的好友记录，不存在时返回 (nil, nil)
func (r *FriendRepository) GetByPair(ctx context.Context, a, b string) (*model.Friend, error) {
	var f model.Friend
	err := r.coll.FindOne(ctx, bson.M{"pairKey": model.FriendPairKey(a, b)}).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByUsername 返回涉及该用户的全部好友记录
func (r *FriendRepository) ListByUsername(ctx context.Context, username string) ([]model.Friend, error) {
	cursor, err := r.coll.Find(ctx, bson.M{
		"$or": []bson.M{
			{"username1": username},
			{"username2": username},
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	friends := make([]model.Friend, 0)
	if err := cursor.All(ctx, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}
