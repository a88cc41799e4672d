package mongodb

import (
	"context"
	"fmt"

	"pengpeng/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	client *mongo.Client
	db     *mongo.Database
)

// InitMongo 初始化MongoDB连接
func InitMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	c, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb连接失败: %w", err)
	}

	// 测试连接
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongodb连接测试失败: %w", err)
	}

	client = c
	db = c.Database(cfg.Database)
	return db, nil
}

// EnsureIndexes 创建集合索引：
// 用户名唯一、位置2dsphere、meet位置2dsphere、好友pairKey唯一、消息会话查询
func EnsureIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "lastLocation", Value: "2dsphere"}},
		},
	}
	if _, err := db.Collection("user").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("创建user索引失败: %w", err)
	}

	meetIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "personLoc", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "createrUsername", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "targetUsername", Value: 1}, {Key: "status", Value: 1}},
		},
	}
	if _, err := db.Collection("meet").Indexes().CreateMany(ctx, meetIndexes); err != nil {
		return fmt.Errorf("创建meet索引失败: %w", err)
	}

	// pairKey唯一索引是好友记录幂等生成的保证
	friendIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "pairKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection("friend").Indexes().CreateOne(ctx, friendIndex); err != nil {
		return fmt.Errorf("创建friend索引失败: %w", err)
	}

	messageIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "from", Value: 1}, {Key: "to", Value: 1}, {Key: "time", Value: 1}},
	}
	if _, err := db.Collection("message").Indexes().CreateOne(ctx, messageIndex); err != nil {
		return fmt.Errorf("创建message索引失败: %w", err)
	}

	return nil
}

// GetDB 获取数据库实例
func GetDB() *mongo.Database {
	return db
}

// Close 关闭MongoDB连接
func Close(ctx context.Context) error {
	if client != nil {
		return client.Disconnect(ctx)
	}
	return nil
}

// HealthCheck MongoDB健康检查
func HealthCheck(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("mongodb未初始化")
	}
	return client.Ping(ctx, readpref.Primary())
}
