package ctdf

import (
	"math"
	"time"
)

type TrainStatus string

const (
	TrainStatusOnTime    TrainStatus = "ON_TIME"
	TrainStatusDelayed   TrainStatus = "DELAYED"
	TrainStatusCancelled TrainStatus = "CANCELLED"
	TrainStatusDiverted  TrainStatus = "DIVERTED"
	TrainStatusUnknown   TrainStatus = "UNKNOWN"
)

func (s TrainStatus) IsValid() bool {
	switch s {
	case TrainStatusOnTime, TrainStatusDelayed, TrainStatusCancelled, TrainStatusDiverted, TrainStatusUnknown:
		return true
	default:
		return false
	}
}

// TrainRecord is one normalised train observation in a snapshot
type TrainRecord struct {
	ID     string `json:"id" groups:"basic"`
	Number string `json:"number" groups:"basic"`

	Position *TrainPosition `json:"position" groups:"basic"`

	Speed   float64 `json:"speed" groups:"basic"`
	Heading float64 `json:"heading" groups:"basic"`

	Timestamp time.Time   `json:"timestamp" groups:"basic"`
	Status    TrainStatus `json:"status" groups:"basic"`

	Details TrainDetails `json:"details" groups:"detailed"`
}

type TrainDetails struct {
	Type        string   `json:"type" groups:"detailed"`
	Operator    string   `json:"operator" groups:"detailed"`
	Origin      string   `json:"origin" groups:"detailed"`
	Destination string   `json:"destination" groups:"detailed"`
	Platform    string   `json:"platform" groups:"detailed"`
	Delay       int      `json:"delay" groups:"detailed"` // minutes
	Info        string   `json:"info,omitempty" groups:"detailed"`
	Equipment   []string `json:"equipment,omitempty" groups:"detailed"`
}

func (t *TrainRecord) HasDelay() bool {
	return t.Details.Delay > 0
}

type TrainPosition struct {
	Lat float64 `json:"lat" groups:"basic"`
	Lng float64 `json:"lng" groups:"basic"`
}

// IsFinite reports whether both coordinates are real numbers.
// (0,0) counts as a valid position.
func (p *TrainPosition) IsFinite() bool {
	if p == nil {
		return false
	}

	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) && !math.IsInf(p.Lat, 0) && !math.IsInf(p.Lng, 0)
}

func (p *TrainPosition) InRange() bool {
	return p.IsFinite() && math.Abs(p.Lat) <= 90 && math.Abs(p.Lng) <= 180
}

// JourneyDetails is the next stop summary for a single train
type JourneyDetails struct {
	TrainNumber         string `json:"trainNumber"`
	NextStopDestination string `json:"nextStopDestination"`
	DelayInSeconds      int    `json:"delayInSeconds"`
}

// Clone returns a copy that shares no memory with t
func (t *TrainRecord) Clone() TrainRecord {
	clone := *t

	if t.Position != nil {
		position := *t.Position
		clone.Position = &position
	}

	if t.Details.Equipment != nil {
		clone.Details.Equipment = append([]string(nil), t.Details.Equipment...)
	}

	return clone
}

// CloneRecords deep copies a snapshot, keeping nil as nil
func CloneRecords(records []TrainRecord) []TrainRecord {
	if records == nil {
		return nil
	}

	clones := make([]TrainRecord, len(records))
	for i := range records {
		clones[i] = records[i].Clone()
	}
	return clones
}
