package trainservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/nsapi"
)

type fakeClient struct {
	mutex  sync.Mutex
	config nsapi.Config
	calls  atomic.Int32
	resets atomic.Int32

	fetch func(ctx context.Context, filterIDs []string) (*nsapi.VehicleResponse, error)
}

func (c *fakeClient) FetchTrainLocations(ctx context.Context, filterIDs []string) (*nsapi.VehicleResponse, error) {
	c.calls.Add(1)
	return c.fetch(ctx, filterIDs)
}

func (c *fakeClient) Config() nsapi.Config {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.config
}

func (c *fakeClient) Configure(config nsapi.Config) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.config = config
}

func (c *fakeClient) Validate() []string {
	config := c.Config()
	return config.Validate()
}

func (c *fakeClient) ResetValidation() {
	c.resets.Add(1)
}

func vehicleResponse(t *testing.T, trainNumbers ...string) *nsapi.VehicleResponse {
	t.Helper()

	var trains []map[string]any
	for i, trainNumber := range trainNumbers {
		trains = append(trains, map[string]any{
			"treinNummer": trainNumber,
			"lat":         52.0 + float64(i)/10,
			"lng":         4.0,
		})
	}
	if trains == nil {
		trains = []map[string]any{}
	}

	body, err := json.Marshal(map[string]any{"payload": map[string]any{"treinen": trains}})
	require.NoError(t, err)

	var response nsapi.VehicleResponse
	require.NoError(t, json.Unmarshal(body, &response))
	return &response
}

func respondWith(t *testing.T, trainNumbers ...string) func(context.Context, []string) (*nsapi.VehicleResponse, error) {
	response := vehicleResponse(t, trainNumbers...)
	return func(context.Context, []string) (*nsapi.VehicleResponse, error) {
		return response, nil
	}
}

func failing(context.Context, []string) (*nsapi.VehicleResponse, error) {
	return nil, &nsapi.TransportError{Transport: "fake", StatusCode: 500, Status: "Internal Server Error"}
}

func testServiceConfig() Config {
	config := DefaultConfig()
	config.MinInterval = time.Millisecond
	return config
}

func TestGetTrainLocationsCachesSnapshot(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t, "101", "202")}
	service := New(client, testServiceConfig())

	assert.Nil(t, service.GetCachedSnapshot())
	assert.True(t, service.GetLastUpdateTime().IsZero())

	records, err := service.GetTrainLocations(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	cached := service.GetCachedSnapshot()
	assert.Equal(t, records, cached)
	assert.False(t, service.GetLastUpdateTime().IsZero())

	// callers get copies, the cache cannot be mutated from outside
	cached[0].Position.Lat = 0
	cached[0].ID = "mutated"
	again := service.GetCachedSnapshot()
	assert.Equal(t, "101", again[0].ID)
	assert.Equal(t, 52.0, again[0].Position.Lat)
}

func TestEmptySnapshotIsNotNil(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t)}
	service := New(client, testServiceConfig())

	_, err := service.GetTrainLocations(context.Background(), nil)
	require.NoError(t, err)

	cached := service.GetCachedSnapshot()
	assert.NotNil(t, cached)
	assert.Empty(t, cached)
}

func TestFilteredFetchOverwritesCache(t *testing.T) {
	client := &fakeClient{}
	client.fetch = func(_ context.Context, filterIDs []string) (*nsapi.VehicleResponse, error) {
		if len(filterIDs) > 0 {
			return vehicleResponse(t, filterIDs...), nil
		}
		return vehicleResponse(t, "101", "202", "303"), nil
	}
	service := New(client, testServiceConfig())

	_, err := service.GetTrainLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, service.GetCachedSnapshot(), 3)

	_, err = service.GetTrainLocations(context.Background(), []string{"202"})
	require.NoError(t, err)

	cached := service.GetCachedSnapshot()
	require.Len(t, cached, 1)
	assert.Equal(t, "202", cached[0].ID)
}

func TestMaxResultsTruncatesSnapshot(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t, "1", "2", "3", "4")}
	config := testServiceConfig()
	config.MaxResults = 2
	service := New(client, config)

	records, err := service.GetTrainLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
}

type operatorOverride struct{}

func (operatorOverride) Apply(record *ctdf.TrainRecord) bool {
	if record.ID != "101" {
		return false
	}
	record.Details.Operator = "Arriva"
	return true
}

func TestOverridesAreApplied(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t, "101", "202")}
	service := New(client, testServiceConfig(), WithOverrides(operatorOverride{}))

	records, err := service.GetTrainLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Arriva", records[0].Details.Operator)
	assert.Equal(t, "NS", records[1].Details.Operator)
}

func TestFailureKeepsPreviousSnapshot(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t, "101")}
	service := New(client, testServiceConfig())

	_, err := service.GetTrainLocations(context.Background(), nil)
	require.NoError(t, err)
	updated := service.GetLastUpdateTime()

	client.fetch = failing
	_, err = service.GetTrainLocations(context.Background(), nil)

	var transportError *nsapi.TransportError
	require.ErrorAs(t, err, &transportError)
	assert.Equal(t, 1, service.ErrorCount())
	assert.Len(t, service.GetCachedSnapshot(), 1)
	assert.Equal(t, updated, service.GetLastUpdateTime())
}

func TestAtMostOneRefreshInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	client := &fakeClient{}
	client.fetch = func(context.Context, []string) (*nsapi.VehicleResponse, error) {
		close(started)
		<-release
		return vehicleResponse(t, "101"), nil
	}
	service := New(client, testServiceConfig())

	done := make(chan bool)
	go func() {
		done <- service.refresh(context.Background())
	}()

	<-started
	assert.False(t, service.refresh(context.Background()))

	close(release)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestCircuitBreakerTripsOnFifthFailure(t *testing.T) {
	client := &fakeClient{fetch: failing}
	service := New(client, testServiceConfig())

	var received []error
	callback := NewRefreshCallback("collector", func(records []ctdf.TrainRecord, err error) error {
		assert.Nil(t, records)
		received = append(received, err)
		return nil
	})

	service.StartAutoRefresh(callback, time.Hour)
	require.True(t, service.IsAutoRefreshing())

	for i := 1; i <= 4; i++ {
		require.True(t, service.refresh(context.Background()))
		assert.True(t, service.IsAutoRefreshing(), "failure %d", i)
		assert.NotErrorIs(t, received[i-1], ErrRefreshSuspended)
	}

	require.True(t, service.refresh(context.Background()))
	assert.False(t, service.IsAutoRefreshing())
	assert.Equal(t, 5, service.ErrorCount())

	// the fifth failure still reaches the callback
	require.Len(t, received, 5)
	assert.ErrorIs(t, received[4], ErrRefreshSuspended)
	var transportError *nsapi.TransportError
	assert.ErrorAs(t, received[4], &transportError)

	// a success resets the counter but does not restart the timer
	client.fetch = respondWith(t, "101")
	_, err := service.GetTrainLocations(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, service.ErrorCount())
	assert.False(t, service.IsAutoRefreshing())
}

func TestCallbacksAreIsolated(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t, "101")}
	service := New(client, testServiceConfig())

	var calls []string
	service.StartAutoRefresh(NewRefreshCallback("panics", func([]ctdf.TrainRecord, error) error {
		calls = append(calls, "panics")
		panic("listener exploded")
	}), time.Hour)
	service.StartAutoRefresh(NewRefreshCallback("errors", func([]ctdf.TrainRecord, error) error {
		calls = append(calls, "errors")
		return errors.New("listener failed")
	}), time.Hour)
	service.StartAutoRefresh(NewRefreshCallback("mutates", func(records []ctdf.TrainRecord, _ error) error {
		calls = append(calls, "mutates")
		records[0].ID = "changed"
		return nil
	}), time.Hour)

	var seen string
	service.StartAutoRefresh(NewRefreshCallback("reads", func(records []ctdf.TrainRecord, _ error) error {
		calls = append(calls, "reads")
		seen = records[0].ID
		return nil
	}), time.Hour)

	require.NotPanics(t, func() {
		service.refresh(context.Background())
	})

	assert.Equal(t, []string{"panics", "errors", "mutates", "reads"}, calls)
	assert.Equal(t, "101", seen)

	service.StopAutoRefresh()
}

func TestCallbackRegistration(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t, "101")}
	service := New(client, testServiceConfig())

	var calls atomic.Int32
	callback := NewRefreshCallback("counter", func([]ctdf.TrainRecord, error) error {
		calls.Add(1)
		return nil
	})

	service.StartAutoRefresh(callback, time.Hour)
	service.StartAutoRefresh(callback, time.Hour)
	service.StopAutoRefresh()
	service.StopAutoRefresh()

	// callbacks survive stop and are not duplicated
	service.refresh(context.Background())
	assert.Equal(t, int32(1), calls.Load())

	assert.True(t, service.RemoveRefreshCallback(callback))
	assert.False(t, service.RemoveRefreshCallback(callback))

	service.refresh(context.Background())
	assert.Equal(t, int32(1), calls.Load())
}

func TestAutoRefreshTimer(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t, "101")}
	service := New(client, testServiceConfig())

	refreshed := make(chan struct{}, 16)
	callback := NewRefreshCallback("signal", func([]ctdf.TrainRecord, error) error {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return nil
	})

	interval := service.StartAutoRefresh(callback, 5*time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, interval)

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("auto refresh never ran")
	}

	service.StopAutoRefresh()
	assert.False(t, service.IsAutoRefreshing())

	// restarting without a callback reuses the registered one
	service.StartAutoRefresh(nil, 5*time.Millisecond)
	for len(refreshed) > 0 {
		<-refreshed
	}

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("auto refresh did not resume")
	}

	service.Cleanup()
}

func TestStartAutoRefreshClampsInterval(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t)}
	service := New(client, DefaultConfig())
	defer service.Cleanup()

	assert.Equal(t, 5*time.Second, service.StartAutoRefresh(nil, time.Second))
	assert.Equal(t, 300*time.Second, service.StartAutoRefresh(nil, time.Hour))
	assert.Equal(t, 30*time.Second, service.StartAutoRefresh(nil, 0))
	assert.Equal(t, 30*time.Second, service.RefreshInterval())
}

func TestCleanupResetsState(t *testing.T) {
	client := &fakeClient{fetch: respondWith(t, "101")}
	service := New(client, testServiceConfig())

	callback := NewRefreshCallback("noop", func([]ctdf.TrainRecord, error) error { return nil })
	service.StartAutoRefresh(callback, time.Hour)
	_, err := service.GetTrainLocations(context.Background(), nil)
	require.NoError(t, err)

	client.fetch = failing
	service.GetTrainLocations(context.Background(), nil)

	service.Cleanup()

	assert.Nil(t, service.GetCachedSnapshot())
	assert.True(t, service.GetLastUpdateTime().IsZero())
	assert.Equal(t, 0, service.ErrorCount())
	assert.False(t, service.IsAutoRefreshing())
	assert.False(t, service.RemoveRefreshCallback(callback))
	assert.Equal(t, int32(1), client.resets.Load())
}

func TestCleanupDiscardsFetchInFlight(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure", &nsapi.TransportError{Transport: "fake", StatusCode: 503, Status: "Service Unavailable"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			started := make(chan struct{})
			release := make(chan struct{})

			client := &fakeClient{}
			client.fetch = func(context.Context, []string) (*nsapi.VehicleResponse, error) {
				close(started)
				<-release
				if tc.err != nil {
					return nil, tc.err
				}
				return vehicleResponse(t, "101"), nil
			}
			service := New(client, testServiceConfig())

			done := make(chan bool)
			go func() {
				done <- service.refresh(context.Background())
			}()

			<-started
			service.Cleanup()

			// the stale fetch still holds the refresh slot
			assert.False(t, service.refresh(context.Background()))

			close(release)
			assert.True(t, <-done)

			assert.Nil(t, service.GetCachedSnapshot())
			assert.True(t, service.GetLastUpdateTime().IsZero())
			assert.Equal(t, 0, service.ErrorCount())

			client.fetch = respondWith(t, "202")
			assert.True(t, service.refresh(context.Background()))
			snapshot := service.GetCachedSnapshot()
			require.Len(t, snapshot, 1)
			assert.Equal(t, "202", snapshot[0].ID)
		})
	}
}

func TestValidateAPIConfig(t *testing.T) {
	client := &fakeClient{config: nsapi.DefaultConfig()}
	service := New(client, testServiceConfig())

	problems := service.ValidateAPIConfig()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "API key")

	config := client.Config()
	config.Auth.Key = "key"
	service.Configure(config)
	assert.Empty(t, service.ValidateAPIConfig())
}

func TestIntervalForType(t *testing.T) {
	config := DefaultConfig()

	tests := []struct {
		refreshType string
		custom      time.Duration
		expected    time.Duration
	}{
		{RefreshTypeFast, 0, 5 * time.Second},
		{RefreshTypeNormal, 0, 15 * time.Second},
		{RefreshTypeSlow, 0, 30 * time.Second},
		{RefreshTypeCustom, 0, 15 * time.Second},
		{RefreshTypeCustom, 2 * time.Second, 5 * time.Second},
		{RefreshTypeCustom, 90 * time.Second, 90 * time.Second},
		{RefreshTypeCustom, 10 * time.Minute, 300 * time.Second},
		{"CUSTOM", 45 * time.Second, 45 * time.Second},
		{"sometimes", 0, 15 * time.Second},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/%s", tc.refreshType, tc.custom), func(t *testing.T) {
			assert.Equal(t, tc.expected, config.IntervalForType(tc.refreshType, tc.custom))
		})
	}
}
