package archiver

import (
	"context"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/trainservice"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BulkWriter is the part of *mongo.Collection the archiver needs
type BulkWriter interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

type Location struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

// TrainPositionDocument is the latest known state of one train
type TrainPositionDocument struct {
	ID     string `bson:"identifier"`
	Number string `bson:"trainnumber"`

	Location *Location `bson:"location,omitempty"`

	Speed     float64          `bson:"speed"`
	Heading   float64          `bson:"heading"`
	Status    ctdf.TrainStatus `bson:"status"`
	Timestamp time.Time        `bson:"recordedattime"`

	Type        string   `bson:"type"`
	Operator    string   `bson:"operator"`
	Origin      string   `bson:"origin"`
	Destination string   `bson:"destination"`
	Platform    string   `bson:"platform"`
	Delay       int      `bson:"delay"`
	Info        string   `bson:"info,omitempty"`
	Equipment   []string `bson:"equipment,omitempty"`

	ModificationDateTime time.Time `bson:"modificationdatetime"`
}

func NewTrainPositionDocument(record *ctdf.TrainRecord, now time.Time) (*TrainPositionDocument, error) {
	document := &TrainPositionDocument{}

	if err := copier.Copy(document, record); err != nil {
		return nil, err
	}
	if err := copier.Copy(document, &record.Details); err != nil {
		return nil, err
	}

	// GeoJSON wants longitude first
	if record.Position.InRange() {
		document.Location = &Location{
			Type:        "Point",
			Coordinates: []float64{record.Position.Lng, record.Position.Lat},
		}
	}
	document.ModificationDateTime = now

	return document, nil
}

type Archiver struct {
	Collection BulkWriter

	now func() time.Time
}

func New(collection BulkWriter) *Archiver {
	return &Archiver{
		Collection: collection,
		now:        time.Now,
	}
}

// Archive upserts the latest position of every record keyed on its identifier
func (a *Archiver) Archive(ctx context.Context, records []ctdf.TrainRecord) (int, error) {
	now := a.now()

	var batchItems []mongo.WriteModel
	for i := range records {
		if records[i].ID == "" {
			continue
		}

		document, err := NewTrainPositionDocument(&records[i], now)
		if err != nil {
			log.Error().Err(err).Str("train", records[i].ID).Msg("Failed to build train position document")
			continue
		}

		bsonRep, err := bson.Marshal(bson.M{"$set": document})
		if err != nil {
			log.Error().Err(err).Str("train", records[i].ID).Msg("Failed to encode train position document")
			continue
		}

		updateModel := mongo.NewUpdateOneModel()
		updateModel.SetFilter(bson.M{"identifier": document.ID})
		updateModel.SetUpdate(bsonRep)
		updateModel.SetUpsert(true)

		batchItems = append(batchItems, updateModel)
	}

	if len(batchItems) == 0 {
		return 0, nil
	}

	_, err := a.Collection.BulkWrite(ctx, batchItems, &options.BulkWriteOptions{})
	if err != nil {
		return 0, err
	}

	log.Info().Int("Length", len(batchItems)).Msg("Bulk write train positions")

	return len(batchItems), nil
}

func (a *Archiver) RefreshCallback() *trainservice.RefreshCallback {
	return trainservice.NewRefreshCallback("archiver", func(records []ctdf.TrainRecord, err error) error {
		if err != nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_, err = a.Archive(ctx, records)
		return err
	})
}
