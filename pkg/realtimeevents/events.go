package realtimeevents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/elastic_client"
	"github.com/travigo/livetrains/pkg/nsapi"
	"github.com/travigo/livetrains/pkg/trainservice"
)

type RefreshElasticEvent struct {
	Timestamp time.Time

	Success    bool
	FailReason string
	FailType   string

	TrainCount       int
	PositionedCount  int
	DelayedCount     int
	CancelledCount   int
	AverageDelayMins float64
	Suspended        bool
}

type IndexFunc func(indexName string, document io.ReadSeeker)

type Recorder struct {
	index IndexFunc
	now   func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		index: elastic_client.IndexRequest,
		now:   time.Now,
	}
}

func IndexName(timestamp time.Time) string {
	yearNumber, weekNumber := timestamp.ISOWeek()
	return fmt.Sprintf("livetrains-refresh-events-%d-%d", yearNumber, weekNumber)
}

func NewRefreshElasticEvent(records []ctdf.TrainRecord, err error, now time.Time) *RefreshElasticEvent {
	event := &RefreshElasticEvent{
		Timestamp: now,
		Success:   err == nil,
	}

	if err != nil {
		event.FailReason = err.Error()
		event.FailType = failureType(err)
		event.Suspended = errors.Is(err, trainservice.ErrRefreshSuspended)
		return event
	}

	totalDelay := 0
	event.TrainCount = len(records)
	for i := range records {
		if records[i].Position.IsFinite() {
			event.PositionedCount++
		}

		switch records[i].Status {
		case ctdf.TrainStatusDelayed:
			event.DelayedCount++
		case ctdf.TrainStatusCancelled:
			event.CancelledCount++
		}

		totalDelay += records[i].Details.Delay
	}

	if len(records) > 0 {
		event.AverageDelayMins = float64(totalDelay) / float64(len(records))
	}

	return event
}

func failureType(err error) string {
	var configurationError *nsapi.ConfigurationError
	var transportError *nsapi.TransportError
	var parseError *nsapi.ParseError

	switch {
	case errors.As(err, &configurationError):
		return "configuration"
	case errors.As(err, &transportError):
		return "transport"
	case errors.As(err, &parseError):
		return "parse"
	default:
		return "other"
	}
}

func (r *Recorder) Record(records []ctdf.TrainRecord, err error) error {
	now := r.now()

	elasticEvent, marshalErr := json.Marshal(NewRefreshElasticEvent(records, err, now))
	if marshalErr != nil {
		return marshalErr
	}

	r.index(IndexName(now), bytes.NewReader(elasticEvent))

	return nil
}

// RefreshCallback records failed cycles as well as successful ones
func (r *Recorder) RefreshCallback() *trainservice.RefreshCallback {
	return trainservice.NewRefreshCallback("realtimeevents", r.Record)
}
