package trainvisualizer

import "github.com/travigo/livetrains/pkg/ctdf"

const (
	SelectedColor  = "#ff3333"
	OnTimeColor    = "#00cc44"
	DelayedColor   = "#ff8800"
	CancelledColor = "#555555"
	DivertedColor  = "#aa44ff"
	UnknownColor   = "#999999"
	DefaultColor   = "#3388ff"

	borderColor = "#ffffff"
)

type MarkerStyle struct {
	Radius      float64 `json:"radius"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
}

// StatusColor is the fill colour for a status, DefaultColor for anything outside the enum
func StatusColor(status ctdf.TrainStatus) string {
	switch status {
	case ctdf.TrainStatusOnTime:
		return OnTimeColor
	case ctdf.TrainStatusDelayed:
		return DelayedColor
	case ctdf.TrainStatusCancelled:
		return CancelledColor
	case ctdf.TrainStatusDiverted:
		return DivertedColor
	case ctdf.TrainStatusUnknown:
		return UnknownColor
	default:
		return DefaultColor
	}
}

// StyleFor picks the marker style. Selection always wins over status.
func StyleFor(record *ctdf.TrainRecord, selected bool) MarkerStyle {
	style := MarkerStyle{
		Radius:      8,
		Weight:      1,
		Opacity:     1,
		FillOpacity: 0.8,
		Color:       borderColor,
		FillColor:   StatusColor(record.Status),
	}

	if selected {
		style.FillColor = SelectedColor
	}

	return style
}
