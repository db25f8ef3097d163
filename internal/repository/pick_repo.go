package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"keyclue/internal/model"
)

// ErrDuplicatePick is returned when a player guesses twice in the same
// round; the first pick is never overwritten.
var ErrDuplicatePick = errors.New("player already picked for this round")

type PickRepo interface {
	Create(ctx context.Context, pick *model.Pick) error
	ListByRound(ctx context.Context, roundID string) ([]*model.Pick, error)
	CountByRound(ctx context.Context, roundID string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type pickRepo struct {
	collection *mongo.Collection
}

func NewPickRepo(db *mongo.Database) PickRepo {
	return &pickRepo{
		collection: db.Collection("picks"),
	}
}

// EnsureIndexes creates the unique (roundId, playerId) index that enforces
// one pick per player per round at the store layer.
func (r *pickRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roundId", Value: 1}, {Key: "playerId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *pickRepo) Create(ctx context.Context, pick *model.Pick) error {
	if pick.ID == "" {
		pick.ID = primitive.NewObjectID().Hex()
	}
	if pick.CreatedAt.IsZero() {
		pick.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, pick)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicatePick
	}
	return err
}

func (r *pickRepo) ListByRound(ctx context.Context, roundID string) ([]*model.Pick, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"roundId": roundID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var picks []*model.Pick
	if err = cursor.All(ctx, &picks); err != nil {
		return nil, err
	}
	return picks, nil
}

func (r *pickRepo) CountByRound(ctx context.Context, roundID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"roundId": roundID})
}
