package nsapi

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/livetrains/pkg/ctdf"
)

var transformTime = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func responseFromJSON(t *testing.T, body string) *VehicleResponse {
	t.Helper()

	var response VehicleResponse
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	return &response
}

func TestParseDelayMinutes(t *testing.T) {
	tests := []struct {
		delay    string
		expected int
	}{
		{"PT5M", 5},
		{"PT1H", 60},
		{"PT1H30M", 90},
		{"PT2H5M", 125},
		{"PT0M", 0},
		{"PT5M30S", 5},
		{"pt12m", 12},
		{"PT3M30.5S", 3},
		{"7", 7},
		{"4.6", 5},
		{"", 0},
		{"late", 0},
		{"-PT2M", 0},
		{"-3", 0},
	}

	for _, tc := range tests {
		t.Run(tc.delay, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseDelayMinutes(tc.delay))
		})
	}
}

func TestDetermineStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		delay    string
		expected ctdf.TrainStatus
	}{
		{"cancelled wins over delay", "CANCELLED", "PT10M", ctdf.TrainStatusCancelled},
		{"dutch cancelled", "niet-gepland", "", ctdf.TrainStatusCancelled},
		{"explicit delayed", "VERTRAAGD", "", ctdf.TrainStatusDelayed},
		{"explicit diverted", "omgeleid", "PT3M", ctdf.TrainStatusDiverted},
		{"delay without status", "", "PT5M", ctdf.TrainStatusDelayed},
		{"delay beats on time", "ON_TIME", "PT2M", ctdf.TrainStatusDelayed},
		{"zero delay is on time", "", "PT0M", ctdf.TrainStatusOnTime},
		{"explicit on time", "OP_TIJD", "", ctdf.TrainStatusOnTime},
		{"no information", "", "", ctdf.TrainStatusOnTime},
		{"unrecognised status", "RIJDEND", "", ctdf.TrainStatusOnTime},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetermineStatus(tc.status, tc.delay))
		})
	}
}

func TestTransformFullRecord(t *testing.T) {
	response := responseFromJSON(t, `{"payload": {"treinen": [{
		"treinNummer": 3045,
		"lat": 52.0907,
		"lng": "5.1214",
		"snelheid": 120.5,
		"richting": 270,
		"tijd": "2024-03-14T09:29:00Z",
		"vertraging": "PT1H30M",
		"type": "IC",
		"vervoerder": "NS",
		"herkomst": "Amsterdam Centraal",
		"bestemming": "Utrecht Centraal",
		"spoor": "5b",
		"info": "Extra stop",
		"materieel": [8651, "2438"]
	}]}}`)

	records := Transform(response, transformTime)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "3045", record.ID)
	assert.Equal(t, "3045", record.Number)
	assert.Equal(t, &ctdf.TrainPosition{Lat: 52.0907, Lng: 5.1214}, record.Position)
	assert.Equal(t, 120.5, record.Speed)
	assert.Equal(t, 270.0, record.Heading)
	assert.Equal(t, time.Date(2024, 3, 14, 9, 29, 0, 0, time.UTC), record.Timestamp.UTC())
	assert.Equal(t, ctdf.TrainStatusDelayed, record.Status)
	assert.Equal(t, ctdf.TrainDetails{
		Type:        "IC",
		Operator:    "NS",
		Origin:      "Amsterdam Centraal",
		Destination: "Utrecht Centraal",
		Platform:    "5b",
		Delay:       90,
		Info:        "Extra stop",
		Equipment:   []string{"8651", "2438"},
	}, record.Details)
}

func TestTransformDefaults(t *testing.T) {
	response := responseFromJSON(t, `{"payload": {"treinen": [{"treinNummer": "101", "status": null, "vertraging": "PT5M"}]}}`)

	records := Transform(response, transformTime)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, &ctdf.TrainPosition{}, record.Position)
	assert.Equal(t, 0.0, record.Speed)
	assert.Equal(t, 0.0, record.Heading)
	assert.Equal(t, transformTime, record.Timestamp)
	assert.Equal(t, ctdf.TrainStatusDelayed, record.Status)
	assert.Equal(t, 5, record.Details.Delay)
	assert.Equal(t, "Unknown", record.Details.Type)
	assert.Equal(t, "NS", record.Details.Operator)
	assert.Equal(t, "Unknown", record.Details.Platform)
}

func TestTransformZeroFillsInvalidCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		train string
	}{
		{"missing lat", `{"treinNummer": 1, "lng": 4.9}`},
		{"missing lng", `{"treinNummer": 1, "lat": 52.3}`},
		{"latitude above 90", `{"treinNummer": 1, "lat": 90.5, "lng": 4.9}`},
		{"latitude below -90", `{"treinNummer": 1, "lat": -91, "lng": 4.9}`},
		{"longitude above 180", `{"treinNummer": 1, "lat": 52.3, "lng": 180.01}`},
		{"longitude below -180", `{"treinNummer": 1, "lat": 52.3, "lng": -200}`},
		{"non numeric", `{"treinNummer": 1, "lat": "north", "lng": 4.9}`},
		{"null", `{"treinNummer": 1, "lat": null, "lng": null}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			response := responseFromJSON(t, `{"payload": {"treinen": [`+tc.train+`]}}`)

			records := Transform(response, transformTime)
			require.Len(t, records, 1)
			require.NotNil(t, records[0].Position)
			assert.Equal(t, ctdf.TrainPosition{Lat: 0, Lng: 0}, *records[0].Position)
		})
	}
}

func TestTransformPlaceholderForMalformedEntry(t *testing.T) {
	response := responseFromJSON(t, `{"payload": {"treinen": [
		"not a train",
		[200, 52.1],
		{"treinNummer": 300, "lat": 52.1, "lng": 4.3}
	]}}`)

	records, parseErrors := TransformWithErrors(response, transformTime)
	require.Len(t, records, 3)
	require.Len(t, parseErrors, 2)
	assert.Equal(t, 0, parseErrors[0].Index)
	assert.Equal(t, 1, parseErrors[1].Index)

	for _, record := range records[:2] {
		assert.True(t, strings.HasPrefix(record.ID, "error_"))
		assert.Equal(t, ctdf.TrainStatusUnknown, record.Status)
		assert.Equal(t, &ctdf.TrainPosition{}, record.Position)
		assert.Equal(t, "Error", record.Details.Type)
	}

	assert.Equal(t, "300", records[2].ID)
	assert.Equal(t, ctdf.TrainStatusOnTime, records[2].Status)
}

func TestTransformMistypedFieldsFallBackToDefaults(t *testing.T) {
	tests := []struct {
		name  string
		train string
	}{
		{"boolean latitude", `{"treinNummer": "101", "lat": true, "status": "VERTRAAGD", "bestemming": "Utrecht"}`},
		{"object latitude", `{"treinNummer": "101", "lat": {"nested": true}, "lng": 4.3, "status": "VERTRAAGD", "bestemming": "Utrecht"}`},
		{"string equipment", `{"treinNummer": "101", "materieel": "ICM", "status": "VERTRAAGD", "bestemming": "Utrecht"}`},
		{"array speed and time", `{"treinNummer": "101", "snelheid": [1], "tijd": false, "status": "VERTRAAGD", "bestemming": "Utrecht"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			response := responseFromJSON(t, `{"payload": {"treinen": [`+tc.train+`]}}`)

			records, parseErrors := TransformWithErrors(response, transformTime)
			assert.Empty(t, parseErrors)
			require.Len(t, records, 1)

			record := records[0]
			assert.Equal(t, "101", record.ID)
			assert.Equal(t, ctdf.TrainStatusDelayed, record.Status)
			assert.Equal(t, &ctdf.TrainPosition{Lat: 0, Lng: 0}, record.Position)
			assert.Equal(t, "Utrecht", record.Details.Destination)
			assert.Equal(t, "Unknown", record.Details.Type)
			assert.Equal(t, 0.0, record.Speed)
			assert.Equal(t, transformTime, record.Timestamp)
			assert.Empty(t, record.Details.Equipment)
		})
	}
}

func TestTransformGeneratesIdentifierWhenMissing(t *testing.T) {
	response := responseFromJSON(t, `{"payload": {"treinen": [{"lat": 52.1, "lng": 4.3}]}}`)

	records := Transform(response, transformTime)
	require.Len(t, records, 1)
	assert.True(t, strings.HasPrefix(records[0].ID, "unknown_"))
	assert.Equal(t, "Unknown", records[0].Number)
}

func TestTransformMalformedTrainList(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"payload": null}`,
		`{"payload": {}}`,
		`{"payload": {"treinen": null}}`,
		`{"payload": {"treinen": {"101": {}}}}`,
		`{"payload": {"treinen": "none"}}`,
	}

	for _, body := range bodies {
		records := Transform(responseFromJSON(t, body), transformTime)
		assert.NotNil(t, records, body)
		assert.Empty(t, records, body)
	}

	assert.Empty(t, Transform(nil, transformTime))
}

func TestTransformStatusIsAlwaysInEnum(t *testing.T) {
	response := responseFromJSON(t, `{"payload": {"treinen": [
		{"treinNummer": 1, "status": "something else"},
		{"treinNummer": 2, "status": 12},
		{"treinNummer": 3, "status": ["x"]}
	]}}`)

	for _, record := range Transform(response, transformTime) {
		assert.True(t, record.Status.IsValid(), record.ID)
		assert.NotNil(t, record.Position, record.ID)
	}
}
