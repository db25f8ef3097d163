package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"keyclue/internal/model"
)

type PlayerRepo interface {
	Create(ctx context.Context, player *model.Player) error
	GetByID(ctx context.Context, id string) (*model.Player, error)
	ListByGame(ctx context.Context, gameCode string) ([]*model.Player, error)
	CountByGame(ctx context.Context, gameCode string) (int64, error)
	AddScore(ctx context.Context, id string, points int) error
}

type playerRepo struct {
	collection *mongo.Collection
}

func NewPlayerRepo(db *mongo.Database) PlayerRepo {
	return &playerRepo{
		collection: db.Collection("players"),
	}
}

func (r *playerRepo) Create(ctx context.Context, player *model.Player) error {
	if player.ID == "" {
		player.ID = primitive.NewObjectID().Hex()
	}
	if player.JoinedAt.IsZero() {
		player.JoinedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, player)
	return err
}

func (r *playerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	var player model.Player
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&player)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &player, nil
}

func (r *playerRepo) ListByGame(ctx context.Context, gameCode string) ([]*model.Player, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"gameCode": gameCode})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var players []*model.Player
	if err = cursor.All(ctx, &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *playerRepo) CountByGame(ctx context.Context, gameCode string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"gameCode": gameCode})
}

func (r *playerRepo) AddScore(ctx context.Context, id string, points int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"score": points}})
	return err
}
