package trainservice

import (
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/travigo/livetrains/pkg/ctdf"
)

// RefreshFunc receives every auto-refresh result. records is nil when err is set.
type RefreshFunc func(records []ctdf.TrainRecord, err error) error

// RefreshCallback is the registration handle for a RefreshFunc. Registrations
// are deduplicated by handle.
type RefreshCallback struct {
	Name string
	fn   RefreshFunc
}

func NewRefreshCallback(name string, fn RefreshFunc) *RefreshCallback {
	return &RefreshCallback{
		Name: name,
		fn:   fn,
	}
}

// Call runs the callback directly, outside any refresh cycle
func (c *RefreshCallback) Call(records []ctdf.TrainRecord, err error) error {
	return c.fn(records, err)
}

// notify hands the result to every callback. Each gets its own copy of the
// records and a failing or panicking callback does not stop the others.
func (s *Service) notify(records []ctdf.TrainRecord, err error) {
	for _, callback := range s.registeredCallbacks() {
		callbackRecords := ctdf.CloneRecords(records)

		var catcher panics.Catcher
		catcher.Try(func() {
			if callbackErr := callback.fn(callbackRecords, err); callbackErr != nil {
				log.Error().Err(callbackErr).Str("callback", callback.Name).Msg("Refresh callback failed")
			}
		})

		if recovered := catcher.Recovered(); recovered != nil {
			log.Error().Err(recovered.AsError()).Str("callback", callback.Name).Msg("Refresh callback panicked")
		}
	}
}
