package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetflow/realtime/internal/models"
)

type mongoStore struct {
	col *mongo.Collection
}

// NewMongoStore wraps a notifications collection and ensures the indexes the
// list and count queries rely on.
func NewMongoStore(ctx context.Context, col *mongo.Collection) (Store, error) {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return &mongoStore{col: col}, nil
}

func (s *mongoStore) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, n)
	return err
}

func (s *mongoStore) List(ctx context.Context, userID string, page, pageSize int, f ListFilter) (*Page, error) {
	page, pageSize = normalizePage(page, pageSize)
	filter := bson.M{"user_id": userID}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.UnreadOnly {
		filter["is_read"] = false
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := make([]*models.Notification, 0, pageSize)
	for cur.Next(ctx) {
		var n models.Notification
		if err := cur.Decode(&n); err != nil {
			return nil, err
		}
		items = append(items, &n)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *mongoStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"user_id": userID, "is_read": false})
}

func (s *mongoStore) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var n models.Notification
	if err := res.Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *mongoStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
