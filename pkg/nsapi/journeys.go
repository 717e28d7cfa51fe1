package nsapi

import (
	"context"

	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/livetrains/pkg/ctdf"
)

const journeyLookupConcurrency = 4

type JourneyFetcher interface {
	FetchJourneyDetails(ctx context.Context, trainNumber string) (*ctdf.JourneyDetails, error)
}

type JourneyLookup struct {
	TrainNumber string               `json:"trainNumber"`
	Journey     *ctdf.JourneyDetails `json:"journey,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// LookupJourneys fetches journey details for every train concurrently. A failed
// lookup is reported in its own entry; results keep the order of trainNumbers.
func LookupJourneys(ctx context.Context, fetcher JourneyFetcher, trainNumbers []string) []JourneyLookup {
	lookups := make([]JourneyLookup, len(trainNumbers))

	journeyPool := pool.New().WithMaxGoroutines(journeyLookupConcurrency)
	for i, trainNumber := range trainNumbers {
		i, trainNumber := i, trainNumber

		journeyPool.Go(func() {
			lookups[i].TrainNumber = trainNumber

			details, err := fetcher.FetchJourneyDetails(ctx, trainNumber)
			if err != nil {
				lookups[i].Error = err.Error()
				return
			}
			lookups[i].Journey = details
		})
	}
	journeyPool.Wait()

	return lookups
}
