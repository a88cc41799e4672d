package repository

import (
	"context"
	"errors"
	"time"

	"pengpeng/internal/apperr"
	"pengpeng/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection("user")}
}

// Create 创建用户，用户名重复返回 apperr.ErrUserExists
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.ErrUserExists
		}
		return err
	}
	return nil
}

// GetByUsername 按用户名查找，不存在时返回 (nil, nil)
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateLocation 更新最近位置与时间戳
func (r *UserRepository) UpdateLocation(ctx context.Context, username string, lng, lat float64, now time.Time) (*model.User, error) {
	update := bson.M{"$set": bson.M{
		"lastLocation":     model.NewGeoPoint(lng, lat),
		"lastLocationTime": now,
	}}
	return r.findOneAndUpdate(ctx, bson.M{"username": username}, update)
}

// UpdateAppearance 更新特征信息、照片及其时间戳（性别不在此处修改）
func (r *UserRepository) UpdateAppearance(ctx context.Context, username string, info model.Appearance, pic string, now time.Time) (*model.User, error) {
	update := bson.M{"$set": bson.M{
		"specialInfo.hair":         info.Hair,
		"specialInfo.glasses":      info.Glasses,
		"specialInfo.clothesType":  info.ClothesType,
		"specialInfo.clothesColor": info.ClothesColor,
		"specialInfo.clothesStyle": info.ClothesStyle,
		"specialPic":               pic,
		"specialInfoTime":          now,
	}}
	return r.findOneAndUpdate(ctx, bson.M{"username": username}, update)
}

// UpdateDeviceToken 更新离线推送设备令牌
func (r *UserRepository) UpdateDeviceToken(ctx context.Context, username, deviceToken string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"username": username},
		bson.M{"$set": bson.M{"deviceToken": deviceToken}})
	return err
}

// StampMeetCreate 原子盖章最近发送meet时间
// 过滤条件要求冷却窗口已经结束（或从未发送过），条件不满足说明
// 并发请求已经先行盖章，返回 apperr.ErrStorageConflict
func (r *UserRepository) StampMeetCreate(ctx context.Context, username string, now time.Time, clearFake bool) error {
	filter := bson.M{
		"username": username,
		"$or": []bson.M{
			{"lastMeetCreateTime": bson.M{"$exists": false}},
			{"lastMeetCreateTime": bson.M{"$lte": now.Add(-model.MeetCoolDown)}},
		},
	}
	update := bson.M{"$set": bson.M{"lastMeetCreateTime": now}}
	if clearFake {
		update["$unset"] = bson.M{"lastFakeTime": ""}
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrStorageConflict
	}
	return nil
}

// SelectFake 记录一次“都不是/跳过”选择
// 30秒内重复跳过会折叠进发送冷却：lastMeetCreateTime改为now并清空fake时间
// 返回是否发生了折叠。两个分支各自都是单条原子条件更新
func (r *UserRepository) SelectFake(ctx context.Context, username string, now time.Time) (bool, error) {
	// 先尝试折叠分支
	foldFilter := bson.M{
		"username":     username,
		"lastFakeTime": bson.M{"$gt": now.Add(-model.FakeCoolDown)},
	}
	foldUpdate := bson.M{
		"$set":   bson.M{"lastMeetCreateTime": now},
		"$unset": bson.M{"lastFakeTime": ""},
	}
	res, err := r.coll.UpdateOne(ctx, foldFilter, foldUpdate)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// 普通分支：只记录fake时间
	_, err = r.coll.UpdateOne(ctx, bson.M{"username": username},
		bson.M{"$set": bson.M{"lastFakeTime": now}})
	return false, err
}

// ClearFakeTime 清空fake时间（直接确认真人后调用）
func (r *UserRepository) ClearFakeTime(ctx context.Context, username string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"username": username},
		bson.M{"$unset": bson.M{"lastFakeTime": ""}})
	return err
}

// FindCandidates 按位置与特征匹配附近候选人
// $geoNear取500米球面范围内、今天更新过特征、24小时内更新过位置、
// 性别一致的用户，逐项比对5个特征求分，保留得分>=4的，近者优先
func (r *UserRepository) FindCandidates(ctx context.Context, guess model.Appearance, lng, lat float64, exclude []string, now time.Time) ([]model.Candidate, error) {
	attrScore := func(field string, want string) bson.M {
		return bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$specialInfo." + field, want}}, 1, 0}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near":          model.NewGeoPoint(lng, lat),
			"distanceField": "distance",
			"maxDistance":   model.CandidateRadius,
			"spherical":     true,
			"key":           "lastLocation",
			"query": bson.M{
				"username":         bson.M{"$nin": exclude},
				"specialInfoTime":  bson.M{"$gt": model.StartOfDay(now)},
				"lastLocationTime": bson.M{"$gt": now.Add(-model.LocationFreshness)},
				"specialInfo.sex":  guess.Sex,
			},
		}}},
		{{Key: "$project", Value: bson.M{
			"username":   1,
			"specialPic": 1,
			"distance":   1,
			"score": bson.M{"$add": bson.A{
				attrScore("hair", guess.Hair),
				attrScore("glasses", guess.Glasses),
				attrScore("clothesType", guess.ClothesType),
				attrScore("clothesColor", guess.ClothesColor),
				attrScore("clothesStyle", guess.ClothesStyle),
			}},
		}}},
		{{Key: "$match", Value: bson.M{"score": bson.M{"$gte": model.MatchThreshold}}}},
		{{Key: "$sort", Value: bson.D{{Key: "distance", Value: 1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []model.Candidate
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u model.User
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
