package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"keyclue/internal/model"
)

type WordRepo interface {
	Create(ctx context.Context, word *model.Word) error
	GetByID(ctx context.Context, id string) (*model.Word, error)
	// Random draws one word of the given length, excluding already-used ids
	Random(ctx context.Context, length int, excludeIDs []string) (*model.Word, error)
	Count(ctx context.Context) (int64, error)
}

type wordRepo struct {
	collection *mongo.Collection
}

func NewWordRepo(db *mongo.Database) WordRepo {
	return &wordRepo{
		collection: db.Collection("words"),
	}
}

func (r *wordRepo) Create(ctx context.Context, word *model.Word) error {
	if word.ID == "" {
		word.ID = primitive.NewObjectID().Hex()
	}
	if word.Length == 0 {
		word.Length = len([]rune(word.Text))
	}
	_, err := r.collection.InsertOne(ctx, word)
	return err
}

func (r *wordRepo) GetByID(ctx context.Context, id string) (*model.Word, error) {
	var word model.Word
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&word)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &word, nil
}

func (r *wordRepo) Random(ctx context.Context, length int, excludeIDs []string) (*model.Word, error) {
	match := bson.M{"length": length}
	if len(excludeIDs) > 0 {
		match["_id"] = bson.M{"$nin": excludeIDs}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sample", Value: bson.M{"size": 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var words []*model.Word
	if err = cursor.All(ctx, &words); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, nil
	}
	return words[0], nil
}

func (r *wordRepo) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
