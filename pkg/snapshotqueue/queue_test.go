package snapshotqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/livetrains/pkg/ctdf"
)

func newTestPublisher(t *testing.T) (*Publisher, rmq.TestConnection) {
	connection := rmq.NewTestConnection()

	publisher, err := NewPublisher(connection)
	require.NoError(t, err)
	publisher.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	return publisher, connection
}

func TestPublish(t *testing.T) {
	publisher, connection := newTestPublisher(t)

	records := []ctdf.TrainRecord{
		{ID: "101", Number: "101", Status: ctdf.TrainStatusOnTime, Position: &ctdf.TrainPosition{Lat: 52, Lng: 5}},
	}
	require.NoError(t, publisher.Publish(records))

	deliveries := connection.GetDeliveries(QueueName)
	require.Len(t, deliveries, 1)

	message, err := Decode(deliveries[0])
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), message.PublishedAt)
	assert.Equal(t, records, message.Records)
}

func TestPublishEmptySnapshot(t *testing.T) {
	publisher, connection := newTestPublisher(t)

	require.NoError(t, publisher.Publish(nil))

	message, err := Decode(connection.GetDelivery(QueueName, 0))
	require.NoError(t, err)
	assert.NotNil(t, message.Records)
	assert.Empty(t, message.Records)
}

func TestRefreshCallbackSkipsFailures(t *testing.T) {
	publisher, connection := newTestPublisher(t)
	callback := publisher.RefreshCallback()

	require.NoError(t, callback.Call(nil, errors.New("fetch failed")))
	assert.Empty(t, connection.GetDeliveries(QueueName))

	require.NoError(t, callback.Call([]ctdf.TrainRecord{{ID: "1"}}, nil))
	assert.Len(t, connection.GetDeliveries(QueueName), 1)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode("not json")
	assert.Error(t, err)
}
