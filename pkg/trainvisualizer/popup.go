package trainvisualizer

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
)

const unknownText = "Unknown"

var popupTemplate = template.Must(template.New("popup").Parse(`<div class="train-popup">
<h4>Train {{.Number}}</h4>
<p><strong>Type:</strong> {{.Type}}</p>
<p><strong>From:</strong> {{.Origin}}</p>
<p><strong>To:</strong> {{.Destination}}</p>
<p><strong>Status:</strong> <span class="{{.StatusClass}}">{{.StatusText}}</span></p>
{{- if .Platform}}
<p><strong>Platform:</strong> {{.Platform}}</p>
{{- end}}
{{- if .Speed}}
<p><strong>Speed:</strong> {{.Speed}} km/h</p>
{{- end}}
</div>`))

type popupData struct {
	Number      string
	Type        string
	Origin      string
	Destination string
	StatusClass string
	StatusText  string
	Platform    string
	Speed       int
}

// StatusText is the human readable status shown in popups
func StatusText(record *ctdf.TrainRecord) (class string, text string) {
	switch record.Status {
	case ctdf.TrainStatusCancelled:
		return "cancelled", "Cancelled"
	case ctdf.TrainStatusDiverted:
		return "diverted", "Diverted"
	case ctdf.TrainStatusUnknown:
		return "unknown", unknownText
	}

	if record.HasDelay() {
		return "delayed", fmt.Sprintf("Delayed (%d min)", record.Details.Delay)
	}

	return "on-time", "On time"
}

func PopupContent(record *ctdf.TrainRecord) string {
	class, text := StatusText(record)

	data := popupData{
		Number:      record.Number,
		Type:        orUnknown(record.Details.Type),
		Origin:      orUnknown(record.Details.Origin),
		Destination: orUnknown(record.Details.Destination),
		StatusClass: class,
		StatusText:  text,
		Speed:       int(math.Round(record.Speed)),
	}

	if record.Details.Platform != unknownText {
		data.Platform = record.Details.Platform
	}

	var content bytes.Buffer
	if err := popupTemplate.Execute(&content, data); err != nil {
		log.Error().Err(err).Str("train", record.ID).Msg("Failed to render popup")
		return ""
	}

	return content.String()
}

func orUnknown(value string) string {
	if value == "" {
		return unknownText
	}
	return value
}
