package nsapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// VehicleResponse is the body of the vehicle endpoint. The train list is kept
// raw so that a malformed entry only affects itself.
type VehicleResponse struct {
	Payload *VehiclePayload `json:"payload"`
}

type VehiclePayload struct {
	Treinen json.RawMessage `json:"treinen"`
}

// Trains splits the payload into raw entries. ok is false when the list itself is missing or malformed.
func (r *VehicleResponse) Trains() (entries []json.RawMessage, ok bool) {
	if r == nil || r.Payload == nil || len(r.Payload.Treinen) == 0 {
		return nil, false
	}

	if err := json.Unmarshal(r.Payload.Treinen, &entries); err != nil {
		return nil, false
	}

	// a literal null decodes without error
	if entries == nil && bytes.Equal(bytes.TrimSpace(r.Payload.Treinen), []byte("null")) {
		return nil, false
	}

	return entries, true
}

func newVehicleResponse(entries []json.RawMessage) *VehicleResponse {
	if entries == nil {
		entries = []json.RawMessage{}
	}
	treinen, _ := json.Marshal(entries)

	return &VehicleResponse{
		Payload: &VehiclePayload{
			Treinen: treinen,
		},
	}
}

// RawTrain is a single entry of payload.treinen
type RawTrain struct {
	TreinNummer flexString   `json:"treinNummer"`
	RitID       flexString   `json:"ritId"`
	Lat         flexFloat    `json:"lat"`
	Lng         flexFloat    `json:"lng"`
	Snelheid    flexFloat    `json:"snelheid"`
	Richting    flexFloat    `json:"richting"`
	Tijd        flexTime     `json:"tijd"`
	Status      flexString   `json:"status"`
	Vertraging  flexString   `json:"vertraging"`
	Type        flexString   `json:"type"`
	Vervoerder  flexString   `json:"vervoerder"`
	Herkomst    flexString   `json:"herkomst"`
	Bestemming  flexString   `json:"bestemming"`
	Spoor       flexString   `json:"spoor"`
	Info        flexString   `json:"info"`
	Materieel   flexStrings  `json:"materieel"`
}

// flexString accepts JSON strings and numbers. Any other value is treated as missing.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}

	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*s = flexString(value)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		*s = ""
		return nil
	}
	*s = flexString(number.String())
	return nil
}

func (s flexString) String() string {
	return strings.TrimSpace(string(s))
}

// flexStrings accepts a list of strings or numbers. Anything that is not a list is ignored.
type flexStrings []flexString

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	var values []flexString
	if err := json.Unmarshal(data, &values); err != nil {
		*s = nil
		return nil
	}
	*s = values
	return nil
}

// flexFloat accepts numbers and numeric strings. Anything non-numeric leaves Valid false.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var raw flexString
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}

	value, err := strconv.ParseFloat(raw.String(), 64)
	if err != nil {
		*f = flexFloat{}
		return nil
	}

	*f = flexFloat{Value: value, Valid: true}
	return nil
}

func (f flexFloat) Or(defaultValue float64) float64 {
	if !f.Valid {
		return defaultValue
	}
	return f.Value
}

// flexTime accepts epoch milliseconds or an RFC 3339 string
type flexTime struct {
	Time time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var raw flexString
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}

	value := raw.String()
	if value == "" {
		*t = flexTime{}
		return nil
	}

	if millis, err := strconv.ParseInt(value, 10, 64); err == nil {
		*t = flexTime{Time: time.UnixMilli(millis)}
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		*t = flexTime{Time: parsed}
		return nil
	}

	*t = flexTime{}
	return nil
}

type JourneyResponse struct {
	Payload *JourneyPayload `json:"payload"`
}

type JourneyPayload struct {
	Stops []JourneyStop `json:"stops"`
}

type JourneyStop struct {
	Destination string             `json:"destination"`
	Departures  []JourneyStopEvent `json:"departures"`
	Arrivals    []JourneyStopEvent `json:"arrivals"`
}

type JourneyStopEvent struct {
	DelayInSeconds int `json:"delayInSeconds"`
}
