package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat_relay/internal/models"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoMessage 是 messages 集合中的文件格式
type mongoMessage struct {
	ID        primitive.ObjectID `bson:"_id"`
	Username  string             `bson:"username"`
	Avatar    string             `bson:"avatar"`
	Message   string             `bson:"message"`
	IsDeleted bool               `bson:"isDeleted"`
	Edited    bool               `bson:"edited"`
	Timestamp time.Time          `bson:"timestamp"`
}

func (d mongoMessage) toModel() models.Message {
	return models.Message{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Avatar:    d.Avatar,
		Body:      d.Message,
		IsDeleted: d.IsDeleted,
		Edited:    d.Edited,
		Timestamp: d.Timestamp.UTC(),
	}
}

type MongoMessageRepository struct {
	coll  *mongo.Collection
	clock *Clock
}

// NewMongoMessageRepository 使用 MongoDB 集合存放訊息，id 為 ObjectID 的十六進位字串
func NewMongoMessageRepository(coll *mongo.Collection) *MongoMessageRepository {
	return &MongoMessageRepository{coll: coll, clock: NewClock()}
}

// EnsureIndexes 建立歷史查詢使用的 {isDeleted, timestamp} 索引
func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "isDeleted", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("active_by_timestamp"),
	})
	if err != nil {
		return storageErr("mongo create index", err)
	}
	return nil
}

// SeedClock 讓時鐘從已存在的最新時間戳之後開始，重啟後系統時間倒退也不會破壞順序
func (r *MongoMessageRepository) SeedClock(ctx context.Context) error {
	var doc mongoMessage
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	err := r.coll.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return storageErr("mongo latest", err)
	}
	r.clock.Observe(doc.Timestamp)
	return nil
}

func (r *MongoMessageRepository) Append(ctx context.Context, username, avatar, body string) (*models.Message, error) {
	doc := mongoMessage{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Avatar:    avatar,
		Message:   body,
		Timestamp: r.clock.Now(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, storageErr("mongo append", err)
	}
	m := doc.toModel()
	return &m, nil
}

func (r *MongoMessageRepository) RecentActive(ctx context.Context, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cur, err := r.coll.Find(ctx, bson.M{"isDeleted": false}, opts)
	if err != nil {
		return nil, storageErr("mongo recent", err)
	}
	var docs []mongoMessage
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr("mongo recent decode", err)
	}

	out := lo.Map(docs, func(d mongoMessage, _ int) models.Message {
		return d.toModel()
	})
	return lo.Reverse(out), nil
}

func (r *MongoMessageRepository) SoftDelete(ctx context.Context, id string) error {
	return r.set(ctx, id, bson.M{"isDeleted": true})
}

func (r *MongoMessageRepository) Edit(ctx context.Context, id, body string) error {
	return r.set(ctx, id, bson.M{"message": body, "edited": true})
}

func (r *MongoMessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// 不是合法的 ObjectID，不可能存在
		return nil, ErrMessageNotFound
	}

	var doc mongoMessage
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, storageErr("mongo find", err)
	}
	m := doc.toModel()
	return &m, nil
}

func (r *MongoMessageRepository) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return storageErr("mongo update", err)
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}
