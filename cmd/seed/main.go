package main

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"keyclue/internal/config"
	"keyclue/internal/model"
	"keyclue/internal/repository"
)

// starter word catalog: target word + ordered keyword clues, easiest last
var catalog = []model.Word{
	{
		Text: "piano",
		Keywords: []model.Keyword{
			{ID: "piano-1", Text: "pedals"},
			{ID: "piano-2", Text: "grand"},
			{ID: "piano-3", Text: "keys"},
			{ID: "piano-4", Text: "instrument"},
		},
	},
	{
		Text: "tiger",
		Keywords: []model.Keyword{
			{ID: "tiger-1", Text: "bengal"},
			{ID: "tiger-2", Text: "stripes"},
			{ID: "tiger-3", Text: "predator"},
			{ID: "tiger-4", Text: "big cat"},
		},
	},
	{
		Text: "comet",
		Keywords: []model.Keyword{
			{ID: "comet-1", Text: "halley"},
			{ID: "comet-2", Text: "tail"},
			{ID: "comet-3", Text: "ice"},
			{ID: "comet-4", Text: "sky"},
		},
	},
	{
		Text: "bridge",
		Keywords: []model.Keyword{
			{ID: "bridge-1", Text: "suspension"},
			{ID: "bridge-2", Text: "river"},
			{ID: "bridge-3", Text: "cross"},
			{ID: "bridge-4", Text: "span"},
		},
	},
	{
		Text: "castle",
		Keywords: []model.Keyword{
			{ID: "castle-1", Text: "moat"},
			{ID: "castle-2", Text: "drawbridge"},
			{ID: "castle-3", Text: "knight"},
			{ID: "castle-4", Text: "fortress"},
		},
	},
	{
		Text: "violin",
		Keywords: []model.Keyword{
			{ID: "violin-1", Text: "bow"},
			{ID: "violin-2", Text: "strings"},
			{ID: "violin-3", Text: "orchestra"},
			{ID: "violin-4", Text: "fiddle"},
		},
	},
	{
		Text: "glacier",
		Keywords: []model.Keyword{
			{ID: "glacier-1", Text: "moraine"},
			{ID: "glacier-2", Text: "slow"},
			{ID: "glacier-3", Text: "ice"},
			{ID: "glacier-4", Text: "mountain"},
		},
	},
	{
		Text: "volcano",
		Keywords: []model.Keyword{
			{ID: "volcano-1", Text: "magma"},
			{ID: "volcano-2", Text: "crater"},
			{ID: "volcano-3", Text: "eruption"},
			{ID: "volcano-4", Text: "lava"},
		},
	},
}

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	wordRepo := repository.NewWordRepo(db)

	existing, err := wordRepo.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count words: %v", err)
	}
	if existing > 0 {
		log.Printf("Word catalog already has %d entries, skipping seed", existing)
		return
	}

	for i := range catalog {
		word := catalog[i]
		if err := wordRepo.Create(ctx, &word); err != nil {
			log.Fatalf("Failed to seed word %q: %v", word.Text, err)
		}
		log.Printf("Seeded word %q (%d keywords)", word.Text, len(word.Keywords))
	}

	log.Printf("Seeded %d words", len(catalog))
}
