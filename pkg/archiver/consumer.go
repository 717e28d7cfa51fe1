package archiver

import (
	"context"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/snapshotqueue"
	"golang.org/x/exp/slices"
)

type BatchConsumer struct {
	Archiver *Archiver
}

func NewBatchConsumer(archiver *Archiver) *BatchConsumer {
	return &BatchConsumer{
		Archiver: archiver,
	}
}

// Consume merges the batch oldest first so each train is archived at its newest position
func (c *BatchConsumer) Consume(batch rmq.Deliveries) {
	var messages []*snapshotqueue.SnapshotMessage

	for _, payload := range batch.Payloads() {
		message, err := snapshotqueue.Decode(payload)
		if err != nil {
			log.Error().Err(err).Msg("Failed to decode snapshot message")
			continue
		}

		messages = append(messages, message)
	}

	slices.SortStableFunc(messages, func(a, b *snapshotqueue.SnapshotMessage) int {
		return a.PublishedAt.Compare(b.PublishedAt)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := c.Archiver.Archive(ctx, latestPositions(messages)); err != nil {
		log.Error().Err(err).Msg("Failed to archive snapshots")

		if rejectErrors := batch.Reject(); len(rejectErrors) > 0 {
			for _, err := range rejectErrors {
				log.Error().Err(err).Msg("Failed to reject snapshot")
			}
		}
		return
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to consume from queue")
		}
	}
}

// latestPositions keeps the last record seen per train id
func latestPositions(messages []*snapshotqueue.SnapshotMessage) []ctdf.TrainRecord {
	seen := map[string]int{}
	var records []ctdf.TrainRecord

	for _, message := range messages {
		for _, record := range message.Records {
			if index, ok := seen[record.ID]; ok {
				records[index] = record
				continue
			}
			seen[record.ID] = len(records)
			records = append(records, record)
		}
	}

	return records
}
