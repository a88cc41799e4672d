package repository

import (
	"context"

	"pengpeng/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{coll: db.Collection("message")}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	res, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

// ListConversation 两人之间的全部消息，按时间正序
func (r *MessageRepository) ListConversation(ctx context.Context, a, b string) ([]model.Message, error) {
	filter := bson.M{"$or": []bson.M{
		{"from": a, "to": b},
		{"from": b, "to": a},
	}}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "time", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := make([]model.Message, 0)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead 把对方发给自己的未读消息全部置为已读，返回清除条数
func (r *MessageRepository) MarkRead(ctx context.Context, from, to string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"from": from, "to": to, "unread": true},
		bson.M{"$set": bson.M{"unread": false}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
