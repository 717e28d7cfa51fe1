package nsapi

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	iso8601 "github.com/senseyeio/duration"
	"github.com/travigo/livetrains/pkg/ctdf"
)

const unknownValue = "Unknown"
const defaultOperator = "NS"

var durationComponentRegex = regexp.MustCompile(`(\d+)([HM])`)

// Transform converts a vehicle response into normalised train records. It never
// fails: mistyped fields fall back to their defaults, entries that are not objects
// become placeholder records and a malformed train list becomes an empty snapshot.
func Transform(response *VehicleResponse, now time.Time) []ctdf.TrainRecord {
	records, _ := TransformWithErrors(response, now)
	return records
}

// TransformWithErrors is Transform but also reports the entries that had to be replaced by placeholders
func TransformWithErrors(response *VehicleResponse, now time.Time) ([]ctdf.TrainRecord, []*ParseError) {
	entries, ok := response.Trains()
	if !ok {
		return []ctdf.TrainRecord{}, nil
	}

	records := make([]ctdf.TrainRecord, 0, len(entries))
	var parseErrors []*ParseError

	for index, entry := range entries {
		var rawTrain RawTrain
		if err := json.Unmarshal(entry, &rawTrain); err != nil {
			parseErrors = append(parseErrors, &ParseError{Index: index, Err: err})
			records = append(records, placeholderRecord(entry, now))
			continue
		}

		records = append(records, transformTrain(&rawTrain, now))
	}

	return records, parseErrors
}

func transformTrain(rawTrain *RawTrain, now time.Time) ctdf.TrainRecord {
	trainNumber := rawTrain.TreinNummer.String()

	record := ctdf.TrainRecord{
		ID:       trainNumber,
		Number:   trainNumber,
		Position: normalisePosition(rawTrain.Lat, rawTrain.Lng),
		Speed:    finiteOr(rawTrain.Snelheid, 0),
		Heading:  finiteOr(rawTrain.Richting, 0),
		Status:   DetermineStatus(rawTrain.Status.String(), rawTrain.Vertraging.String()),
		Details: ctdf.TrainDetails{
			Type:        stringOr(rawTrain.Type, unknownValue),
			Operator:    stringOr(rawTrain.Vervoerder, defaultOperator),
			Origin:      stringOr(rawTrain.Herkomst, unknownValue),
			Destination: stringOr(rawTrain.Bestemming, unknownValue),
			Platform:    stringOr(rawTrain.Spoor, unknownValue),
			Delay:       ParseDelayMinutes(rawTrain.Vertraging.String()),
			Info:        rawTrain.Info.String(),
		},
	}

	if record.ID == "" {
		record.ID = generatedIdentifier("unknown")
		record.Number = unknownValue
	}

	record.Timestamp = rawTrain.Tijd.Time
	if record.Timestamp.IsZero() {
		record.Timestamp = now
	}

	for _, equipment := range rawTrain.Materieel {
		if value := equipment.String(); value != "" {
			record.Details.Equipment = append(record.Details.Equipment, value)
		}
	}

	return record
}

// placeholderRecord keeps an undecodable entry visible in the snapshot with status UNKNOWN
func placeholderRecord(entry json.RawMessage, now time.Time) ctdf.TrainRecord {
	var identifying struct {
		TreinNummer flexString `json:"treinNummer"`
	}
	json.Unmarshal(entry, &identifying)

	trainNumber := identifying.TreinNummer.String()
	record := ctdf.TrainRecord{
		ID:        trainNumber,
		Number:    trainNumber,
		Position:  &ctdf.TrainPosition{},
		Timestamp: now,
		Status:    ctdf.TrainStatusUnknown,
		Details: ctdf.TrainDetails{
			Type:     "Error",
			Operator: unknownValue,
		},
	}

	if record.ID == "" {
		record.ID = generatedIdentifier("error")
		record.Number = "Error"
	}

	return record
}

func generatedIdentifier(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

func normalisePosition(lat flexFloat, lng flexFloat) *ctdf.TrainPosition {
	position := &ctdf.TrainPosition{
		Lat: lat.Or(0),
		Lng: lng.Or(0),
	}

	if !lat.Valid || !lng.Valid || !position.InRange() {
		return &ctdf.TrainPosition{}
	}

	return position
}

func finiteOr(value flexFloat, defaultValue float64) float64 {
	if !value.Valid || math.IsNaN(value.Value) || math.IsInf(value.Value, 0) {
		return defaultValue
	}
	return value.Value
}

func stringOr(value flexString, defaultValue string) string {
	if trimmed := value.String(); trimmed != "" {
		return trimmed
	}
	return defaultValue
}

// DetermineStatus derives the train status. Explicit cancelled wins, then
// explicit delayed/diverted, then any non-zero delay, and otherwise on time.
func DetermineStatus(status string, delay string) ctdf.TrainStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CANCELLED", "NIET-GEPLAND", "GEANNULEERD":
		return ctdf.TrainStatusCancelled
	case "DELAYED", "VERTRAAGD":
		return ctdf.TrainStatusDelayed
	case "DIVERTED", "OMGELEID":
		return ctdf.TrainStatusDiverted
	}

	if ParseDelayMinutes(delay) > 0 {
		return ctdf.TrainStatusDelayed
	}

	return ctdf.TrainStatusOnTime
}

// ParseDelayMinutes converts a delay such as "PT1H30M" into whole minutes.
// Hours and minutes are summed, seconds dropped. Bare numbers are taken as
// minutes and anything else, including negative (early) delays, is 0.
func ParseDelayMinutes(delay string) int {
	delay = strings.ToUpper(strings.TrimSpace(delay))
	if delay == "" || strings.HasPrefix(delay, "-") {
		return 0
	}

	if strings.HasPrefix(delay, "P") {
		if duration, err := iso8601.ParseISO8601(delay); err == nil {
			return duration.TH*60 + duration.TM
		}

		timeIndex := strings.Index(delay, "T")
		if timeIndex < 0 {
			return 0
		}

		minutes := 0
		for _, match := range durationComponentRegex.FindAllStringSubmatch(delay[timeIndex:], -1) {
			value, _ := strconv.Atoi(match[1])
			if match[2] == "H" {
				minutes += value * 60
			} else {
				minutes += value
			}
		}
		return minutes
	}

	if numeric, err := strconv.ParseFloat(delay, 64); err == nil && !math.IsNaN(numeric) && !math.IsInf(numeric, 0) {
		return int(math.Max(0, math.Round(numeric)))
	}

	return 0
}
