package trainservice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/nsapi"
)

// ErrRefreshSuspended is joined onto the error that trips the circuit breaker
var ErrRefreshSuspended = errors.New("automatic refresh suspended after repeated failures")

// APIClient is the part of nsapi.Client the service depends on
type APIClient interface {
	FetchTrainLocations(ctx context.Context, filterIDs []string) (*nsapi.VehicleResponse, error)
	Config() nsapi.Config
	Configure(config nsapi.Config)
	Validate() []string
	ResetValidation()
}

type TransformFunc func(response *nsapi.VehicleResponse, now time.Time) ([]ctdf.TrainRecord, []*nsapi.ParseError)

// RecordOverrides adjusts records after they have been transformed
type RecordOverrides interface {
	Apply(record *ctdf.TrainRecord) bool
}

type Option func(*Service)

func WithClock(clock backoff.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithTransform(transform TransformFunc) Option {
	return func(s *Service) {
		s.transform = transform
	}
}

func WithOverrides(overrides RecordOverrides) Option {
	return func(s *Service) {
		s.overrides = overrides
	}
}

// Service owns the train snapshot cache, the auto-refresh timer and the
// consecutive failure counter
type Service struct {
	client    APIClient
	config    Config
	clock     backoff.Clock
	transform TransformFunc
	overrides RecordOverrides

	mutex            sync.Mutex
	snapshot         []ctdf.TrainRecord
	lastUpdate       time.Time
	snapshotSequence uint64
	errorCount       int
	callbacks        []*RefreshCallback
	timerStop        chan struct{}
	interval         time.Duration

	// bumped by Cleanup, fetches started under an older generation are dropped
	generation uint64

	fetchSequence atomic.Uint64
	refreshing    atomic.Bool
}

func New(client APIClient, config Config, options ...Option) *Service {
	service := &Service{
		client:    client,
		config:    config,
		clock:     backoff.SystemClock,
		transform: nsapi.TransformWithErrors,
	}

	for _, option := range options {
		option(service)
	}

	return service
}

// GetTrainLocations fetches, transforms and caches a new snapshot. The cache is
// overwritten even when filterIDs is set, so filtered and unfiltered calls
// share one slot and the last one to finish wins.
func (s *Service) GetTrainLocations(ctx context.Context, filterIDs []string) ([]ctdf.TrainRecord, error) {
	sequence := s.fetchSequence.Add(1)
	startTime := s.clock.Now()

	s.mutex.Lock()
	generation := s.generation
	s.mutex.Unlock()

	response, err := s.client.FetchTrainLocations(ctx, filterIDs)
	if err != nil {
		return nil, s.recordFailure(err, generation)
	}

	records, parseErrors := s.transform(response, s.clock.Now())
	for _, parseError := range parseErrors {
		log.Warn().Err(parseError).Int("index", parseError.Index).Msg("Train entry replaced by placeholder")
	}

	if s.overrides != nil {
		for i := range records {
			s.overrides.Apply(&records[i])
		}
	}

	if s.config.MaxResults > 0 && len(records) > s.config.MaxResults {
		records = records[:s.config.MaxResults]
	}

	s.storeSnapshot(records, sequence, generation)

	log.Info().
		Int("trains", len(records)).
		Int("filter", len(filterIDs)).
		Str("duration", s.clock.Now().Sub(startTime).String()).
		Msg("Updated train locations")

	return records, nil
}

func (s *Service) storeSnapshot(records []ctdf.TrainRecord, sequence uint64, generation uint64) {
	cached := ctdf.CloneRecords(records)
	if cached == nil {
		cached = []ctdf.TrainRecord{}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if generation != s.generation {
		log.Debug().Uint64("sequence", sequence).Msg("Dropping fetch started before cleanup")
		return
	}

	if sequence < s.snapshotSequence {
		log.Debug().
			Uint64("sequence", sequence).
			Uint64("cachedsequence", s.snapshotSequence).
			Msg("Older fetch finished last and replaces the cached snapshot")
	}

	s.snapshot = cached
	s.snapshotSequence = sequence
	s.lastUpdate = s.clock.Now()
	s.errorCount = 0
}

func (s *Service) recordFailure(err error, generation uint64) error {
	s.mutex.Lock()
	if generation != s.generation {
		s.mutex.Unlock()
		return err
	}
	s.errorCount++
	errorCount := s.errorCount
	s.mutex.Unlock()

	log.Error().Err(err).Int("errors", errorCount).Msg("Failed to fetch train locations")

	if errorCount >= s.config.MaxErrorCount {
		s.StopAutoRefresh()
		log.Error().Int("errors", errorCount).Msg("Automatic refresh stopped after consecutive failures")

		return errors.Join(err, ErrRefreshSuspended)
	}

	return err
}

// GetCachedSnapshot returns a copy of the last snapshot, nil when nothing has been fetched
func (s *Service) GetCachedSnapshot() []ctdf.TrainRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return ctdf.CloneRecords(s.snapshot)
}

// GetLastUpdateTime is the zero time until the first successful fetch
func (s *Service) GetLastUpdateTime() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.lastUpdate
}

func (s *Service) ErrorCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.errorCount
}

// StartAutoRefresh registers callback and (re)starts the shared refresh timer.
// The callback may be nil to restart the timer only. Returns the clamped interval.
func (s *Service) StartAutoRefresh(callback *RefreshCallback, interval time.Duration) time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if callback != nil && !s.hasCallbackLocked(callback) {
		s.callbacks = append(s.callbacks, callback)
	}

	s.stopTimerLocked()

	s.interval = s.config.ClampInterval(interval)
	s.timerStop = make(chan struct{})
	go s.runTimer(time.NewTicker(s.interval), s.timerStop)

	log.Info().Str("interval", s.interval.String()).Int("callbacks", len(s.callbacks)).Msg("Automatic refresh started")

	return s.interval
}

// StopAutoRefresh stops the timer. Registered callbacks are kept and a fetch
// already in flight still completes and updates the cache.
func (s *Service) StopAutoRefresh() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopTimerLocked() {
		log.Info().Msg("Automatic refresh stopped")
	}
}

func (s *Service) stopTimerLocked() bool {
	if s.timerStop == nil {
		return false
	}

	close(s.timerStop)
	s.timerStop = nil
	s.interval = 0
	return true
}

func (s *Service) IsAutoRefreshing() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.timerStop != nil
}

func (s *Service) RefreshInterval() time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.interval
}

func (s *Service) runTimer(ticker *time.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			go s.refresh(context.Background())
		}
	}
}

// refresh runs one auto-refresh cycle unless one is still in flight. It reports
// whether a fetch was made.
func (s *Service) refresh(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		log.Debug().Msg("Previous refresh still running, skipping")
		return false
	}

	s.mutex.Lock()
	generation := s.generation
	s.mutex.Unlock()

	records, err := s.GetTrainLocations(ctx, nil)
	s.refreshing.Store(false)

	s.mutex.Lock()
	stale := generation != s.generation
	s.mutex.Unlock()

	if !stale {
		s.notify(records, err)
	}

	return true
}

// RefreshNow runs one cycle immediately and notifies callbacks as a timer tick would
func (s *Service) RefreshNow(ctx context.Context) bool {
	return s.refresh(ctx)
}

func (s *Service) RemoveRefreshCallback(callback *RefreshCallback) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, registered := range s.callbacks {
		if registered == callback {
			s.callbacks = append(s.callbacks[:i], s.callbacks[i+1:]...)
			return true
		}
	}

	return false
}

func (s *Service) hasCallbackLocked(callback *RefreshCallback) bool {
	for _, registered := range s.callbacks {
		if registered == callback {
			return true
		}
	}
	return false
}

func (s *Service) registeredCallbacks() []*RefreshCallback {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]*RefreshCallback(nil), s.callbacks...)
}

// ValidateAPIConfig lists the configuration problems, empty when the client is usable
func (s *Service) ValidateAPIConfig() []string {
	return s.client.Validate()
}

func (s *Service) Configure(config nsapi.Config) {
	s.client.Configure(config)
}

// Cleanup stops the timer and returns the service to its initial state. A fetch
// still in flight keeps the refresh slot until it returns but its result is discarded.
func (s *Service) Cleanup() {
	s.mutex.Lock()
	s.generation++
	s.stopTimerLocked()
	s.snapshot = nil
	s.snapshotSequence = 0
	s.lastUpdate = time.Time{}
	s.errorCount = 0
	s.callbacks = nil
	s.mutex.Unlock()

	s.client.ResetValidation()

	log.Info().Msg("Train data service cleaned up")
}
