package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const TrainPositionsCollection = "train_positions"

// positions not refreshed for a day are dropped by mongo
const trainPositionsExpirySeconds = 24 * 60 * 60

func createIndexes() {
	createTrainPositionsIndexes()
}

func createTrainPositionsIndexes() {
	trainPositionsCollection := GetCollection(TrainPositionsCollection)
	trainPositionsIndex := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "identifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "trainnumber", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys:    bson.D{{Key: "modificationdatetime", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(trainPositionsExpirySeconds),
		},
	}

	opts := options.CreateIndexes()
	_, err := trainPositionsCollection.Indexes().CreateMany(context.Background(), trainPositionsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
