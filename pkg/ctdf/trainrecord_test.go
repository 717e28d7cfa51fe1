package ctdf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrainStatusIsValid(t *testing.T) {
	for _, status := range []TrainStatus{TrainStatusOnTime, TrainStatusDelayed, TrainStatusCancelled, TrainStatusDiverted, TrainStatusUnknown} {
		assert.True(t, status.IsValid(), status)
	}

	assert.False(t, TrainStatus("LATE").IsValid())
	assert.False(t, TrainStatus("").IsValid())
}

func TestPositionIsFinite(t *testing.T) {
	tests := []struct {
		position *TrainPosition
		finite   bool
		inRange  bool
	}{
		{nil, false, false},
		{&TrainPosition{Lat: 0, Lng: 0}, true, true},
		{&TrainPosition{Lat: 52.1, Lng: 5.1}, true, true},
		{&TrainPosition{Lat: math.NaN(), Lng: 5.1}, false, false},
		{&TrainPosition{Lat: 52.1, Lng: math.Inf(1)}, false, false},
		{&TrainPosition{Lat: 95, Lng: 5.1}, true, false},
		{&TrainPosition{Lat: 52.1, Lng: -181}, true, false},
	}

	for _, test := range tests {
		assert.Equal(t, test.finite, test.position.IsFinite(), test.position)
		assert.Equal(t, test.inRange, test.position.InRange(), test.position)
	}
}

func TestDistance(t *testing.T) {
	utrecht := TrainPosition{Lat: 52.0894, Lng: 5.1101}
	amsterdam := TrainPosition{Lat: 52.3791, Lng: 4.9003}

	assert.InDelta(t, 35000, utrecht.Distance(amsterdam), 1500)
	assert.InDelta(t, utrecht.Distance(amsterdam), amsterdam.Distance(utrecht), 0.001)
	assert.Zero(t, utrecht.Distance(utrecht))
}

func TestInterpolate(t *testing.T) {
	from := TrainPosition{Lat: 52, Lng: 4}
	to := TrainPosition{Lat: 53, Lng: 6}

	assert.Equal(t, from, from.Interpolate(to, 0))
	assert.Equal(t, to, from.Interpolate(to, 1))
	assert.Equal(t, TrainPosition{Lat: 52.5, Lng: 5}, from.Interpolate(to, 0.5))
}

func TestClone(t *testing.T) {
	original := TrainRecord{
		ID:       "101",
		Position: &TrainPosition{Lat: 52, Lng: 5},
		Details: TrainDetails{
			Equipment: []string{"wifi"},
			Delay:     3,
		},
	}

	clone := original.Clone()
	clone.Position.Lat = 1
	clone.Details.Equipment[0] = "toilet"
	clone.Details.Delay = 10

	assert.Equal(t, 52.0, original.Position.Lat)
	assert.Equal(t, "wifi", original.Details.Equipment[0])
	assert.Equal(t, 3, original.Details.Delay)
	assert.True(t, original.HasDelay())
}

func TestCloneRecords(t *testing.T) {
	assert.Nil(t, CloneRecords(nil))

	empty := CloneRecords([]TrainRecord{})
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	records := []TrainRecord{{ID: "1"}, {ID: "2", Position: &TrainPosition{Lat: 1, Lng: 2}}}
	clones := CloneRecords(records)
	assert.Equal(t, records, clones)

	clones[1].Position.Lat = 9
	assert.Equal(t, 1.0, records[1].Position.Lat)
}
