package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"keyclue/internal/model"
)

type RoundRepo interface {
	Create(ctx context.Context, round *model.Round) error
	GetByID(ctx context.Context, id string) (*model.Round, error)
	GetPlaying(ctx context.Context, gameCode string) (*model.Round, error)
	Update(ctx context.Context, round *model.Round) error
	ListByGame(ctx context.Context, gameCode string) ([]*model.Round, error)
	CountByGame(ctx context.Context, gameCode string) (int64, error)
}

type roundRepo struct {
	collection *mongo.Collection
}

func NewRoundRepo(db *mongo.Database) RoundRepo {
	return &roundRepo{
		collection: db.Collection("rounds"),
	}
}

func (r *roundRepo) Create(ctx context.Context, round *model.Round) error {
	if round.ID == "" {
		round.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, round)
	return err
}

func (r *roundRepo) GetByID(ctx context.Context, id string) (*model.Round, error) {
	var round model.Round
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&round)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &round, nil
}

// GetPlaying returns the game's round in the playing state, if any. At most
// one round per game is ever playing.
func (r *roundRepo) GetPlaying(ctx context.Context, gameCode string) (*model.Round, error) {
	var round model.Round
	filter := bson.M{"gameCode": gameCode, "state": model.RoundPlaying}
	err := r.collection.FindOne(ctx, filter).Decode(&round)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &round, nil
}

func (r *roundRepo) Update(ctx context.Context, round *model.Round) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": round.ID}, round)
	return err
}

func (r *roundRepo) ListByGame(ctx context.Context, gameCode string) ([]*model.Round, error) {
	opts := options.Find().SetSort(bson.M{"position": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"gameCode": gameCode}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rounds []*model.Round
	if err = cursor.All(ctx, &rounds); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *roundRepo) CountByGame(ctx context.Context, gameCode string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"gameCode": gameCode})
}
