package nsapi

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/travigo/livetrains/pkg/ctdf"
)

type fakeJourneyFetcher struct {
	calls atomic.Int32
}

func (f *fakeJourneyFetcher) FetchJourneyDetails(ctx context.Context, trainNumber string) (*ctdf.JourneyDetails, error) {
	f.calls.Add(1)

	if trainNumber == "999" {
		return nil, errors.New("journey not found")
	}

	return &ctdf.JourneyDetails{
		TrainNumber:         trainNumber,
		NextStopDestination: "Utrecht Centraal",
		DelayInSeconds:      len(trainNumber) * 60,
	}, nil
}

func TestLookupJourneys(t *testing.T) {
	fetcher := &fakeJourneyFetcher{}
	trainNumbers := []string{"1", "22", "999", "4444", "55555", "6"}

	lookups := LookupJourneys(context.Background(), fetcher, trainNumbers)

	assert.Equal(t, int32(len(trainNumbers)), fetcher.calls.Load())
	assert.Len(t, lookups, len(trainNumbers))

	for i, lookup := range lookups {
		assert.Equal(t, trainNumbers[i], lookup.TrainNumber)
	}

	assert.Equal(t, "journey not found", lookups[2].Error)
	assert.Nil(t, lookups[2].Journey)

	assert.Empty(t, lookups[3].Error)
	assert.Equal(t, 240, lookups[3].Journey.DelayInSeconds)
}

func TestLookupJourneysEmpty(t *testing.T) {
	assert.Empty(t, LookupJourneys(context.Background(), &fakeJourneyFetcher{}, nil))
}
