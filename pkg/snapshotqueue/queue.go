package snapshotqueue

import (
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/trainservice"
)

const QueueName = "live-train-snapshots"

// SnapshotMessage is one successful refresh as published on the queue
type SnapshotMessage struct {
	PublishedAt time.Time          `json:"publishedAt"`
	Records     []ctdf.TrainRecord `json:"records"`
}

type Publisher struct {
	queue rmq.Queue
	now   func() time.Time
}

func NewPublisher(connection rmq.Connection) (*Publisher, error) {
	queue, err := connection.OpenQueue(QueueName)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		queue: queue,
		now:   time.Now,
	}, nil
}

func (p *Publisher) Publish(records []ctdf.TrainRecord) error {
	if records == nil {
		records = []ctdf.TrainRecord{}
	}

	messageBytes, err := json.Marshal(&SnapshotMessage{
		PublishedAt: p.now(),
		Records:     records,
	})
	if err != nil {
		return err
	}

	return p.queue.PublishBytes(messageBytes)
}

// RefreshCallback publishes every successful refresh. Failed refreshes are not queued.
func (p *Publisher) RefreshCallback() *trainservice.RefreshCallback {
	return trainservice.NewRefreshCallback("snapshotqueue", func(records []ctdf.TrainRecord, err error) error {
		if err != nil {
			return nil
		}

		if err := p.Publish(records); err != nil {
			return err
		}

		log.Debug().Int("records", len(records)).Str("queue", QueueName).Msg("Published snapshot")
		return nil
	})
}

func Decode(payload string) (*SnapshotMessage, error) {
	var message SnapshotMessage
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		return nil, err
	}

	return &message, nil
}
