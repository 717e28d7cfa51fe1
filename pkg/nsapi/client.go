package nsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/util"
)

type Client struct {
	clock backoff.Clock

	configMutex    sync.RWMutex
	config         Config
	lastValidation time.Time

	primary   Transport
	secondary Transport

	// set once the primary transport has failed, never cleared
	downgraded atomic.Bool
}

func NewClient(config Config) *Client {
	primary, secondary := SelectTransports(config)

	return NewClientWithTransports(config, primary, secondary, backoff.SystemClock)
}

func NewClientWithTransports(config Config, primary Transport, secondary Transport, clock backoff.Clock) *Client {
	if clock == nil {
		clock = backoff.SystemClock
	}

	return &Client{
		clock:     clock,
		config:    config,
		primary:   primary,
		secondary: secondary,
	}
}

func (c *Client) Config() Config {
	c.configMutex.RLock()
	defer c.configMutex.RUnlock()

	return c.config
}

// Configure replaces the configuration and forces the next request to re-validate it
func (c *Client) Configure(config Config) {
	c.configMutex.Lock()
	defer c.configMutex.Unlock()

	c.config = config
	c.lastValidation = time.Time{}
}

func (c *Client) Validate() []string {
	config := c.Config()
	return config.Validate()
}

// ResetValidation drops the cached validation result
func (c *Client) ResetValidation() {
	c.configMutex.Lock()
	defer c.configMutex.Unlock()

	c.lastValidation = time.Time{}
}

func (c *Client) validateConfiguration() error {
	now := c.clock.Now()

	c.configMutex.Lock()
	defer c.configMutex.Unlock()

	if !c.lastValidation.IsZero() && now.Sub(c.lastValidation) < c.config.ValidationInterval {
		return nil
	}

	if problems := c.config.Validate(); len(problems) > 0 {
		log.Error().Strs("problems", problems).Msg("Train API configuration invalid")
		return &ConfigurationError{Problems: problems}
	}

	c.lastValidation = now
	return nil
}

func (c *Client) ActiveTransport() Transport {
	if c.downgraded.Load() && c.secondary != nil {
		return c.secondary
	}
	return c.primary
}

func (c *Client) Downgraded() bool {
	return c.downgraded.Load()
}

func (c *Client) downgrade(from Transport) {
	if c.secondary == nil || from != c.primary {
		return
	}

	if c.downgraded.CompareAndSwap(false, true) {
		log.Warn().
			Str("from", c.primary.Name()).
			Str("to", c.secondary.Name()).
			Msg("Primary transport failed, switching to fallback for the rest of the session")
	}
}

func (c *Client) requestHeaders(config Config) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}

	if config.Auth.Key != "" {
		headers[config.Auth.HeaderName] = config.Auth.Key
	}

	if config.UseCorsProxy {
		headers["X-Requested-With"] = "XMLHttpRequest"
	}

	return headers
}

// FetchTrainLocations requests the current vehicle positions. When filterIDs is
// non-empty the response only contains those train numbers.
func (c *Client) FetchTrainLocations(ctx context.Context, filterIDs []string) (*VehicleResponse, error) {
	if err := c.validateConfiguration(); err != nil {
		return nil, err
	}

	config := c.Config()
	filtered := len(filterIDs) > 0
	trainNumbers := util.NormaliseIdentifiers(filterIDs)

	params := config.QueryParams()
	if filtered && len(trainNumbers) > 0 && len(trainNumbers) <= config.FilterParamLimit {
		params.Set("trainNumbers", strings.Join(trainNumbers, ","))
	}

	requestURL := appendQuery(config.BuildURL(config.Endpoints.TrainLocations), params)

	body, err := c.get(ctx, config, requestURL)
	if err != nil {
		return nil, err
	}

	response, err := decodeVehicleResponse(body)
	if err != nil {
		return nil, err
	}

	if filtered {
		return filterByTrainNumbers(response, trainNumbers), nil
	}

	return response, nil
}

// FetchJourneyDetails looks up the next stop and current delay of one train
func (c *Client) FetchJourneyDetails(ctx context.Context, trainNumber string) (*ctdf.JourneyDetails, error) {
	if err := c.validateConfiguration(); err != nil {
		return nil, err
	}

	config := c.Config()
	trainNumber = strings.TrimSpace(trainNumber)

	params := url.Values{}
	params.Set("train", trainNumber)
	params.Set("omitCrowdForecast", "false")

	body, err := c.get(ctx, config, appendQuery(config.BuildJourneyURL(), params))
	if err != nil {
		return nil, err
	}

	var journeyResponse JourneyResponse
	if err := json.Unmarshal(body, &journeyResponse); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}

	details := &ctdf.JourneyDetails{
		TrainNumber: trainNumber,
	}

	if journeyResponse.Payload == nil || len(journeyResponse.Payload.Stops) < 2 {
		return details, nil
	}

	nextStop := journeyResponse.Payload.Stops[1]
	details.NextStopDestination = nextStop.Destination
	if len(nextStop.Departures) > 0 {
		details.DelayInSeconds = nextStop.Departures[0].DelayInSeconds
	} else if len(nextStop.Arrivals) > 0 {
		details.DelayInSeconds = nextStop.Arrivals[0].DelayInSeconds
	}

	return details, nil
}

// get runs the request with the retry policy. The first failed attempt on the
// primary transport switches the client to the secondary one for good.
func (c *Client) get(ctx context.Context, config Config, requestURL string) ([]byte, error) {
	headers := c.requestHeaders(config)

	attempt := 0
	var lastTransport Transport

	operation := func() ([]byte, error) {
		attempt++
		lastTransport = c.ActiveTransport()

		body, err := lastTransport.Get(ctx, requestURL, headers)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	retryPolicy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(config.RetryDelay), config.MaxRetries),
		ctx,
	)

	body, err := backoff.RetryNotifyWithData(operation, retryPolicy, func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Uint64("maxretries", config.MaxRetries).
			Str("transport", lastTransport.Name()).
			Dur("wait", wait).
			Msg("Train API request failed, retrying")

		if attempt == 1 {
			c.downgrade(lastTransport)
		}
	})

	if err != nil {
		var transportError *TransportError
		if !errors.As(err, &transportError) {
			transportName := ""
			if lastTransport != nil {
				transportName = lastTransport.Name()
			}
			err = &TransportError{Transport: transportName, Err: err}
		}
		return nil, err
	}

	return body, nil
}

func decodeVehicleResponse(body []byte) (*VehicleResponse, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, &ParseError{Index: -1, Err: errors.New("empty response from train API")}
	}

	var response VehicleResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}

	return &response, nil
}

// filterByTrainNumbers keeps the entries whose train number is in trainNumbers.
// A malformed train list or an empty trainNumbers gives an empty list.
func filterByTrainNumbers(response *VehicleResponse, trainNumbers []string) *VehicleResponse {
	entries, ok := response.Trains()
	if !ok || len(trainNumbers) == 0 {
		return newVehicleResponse(nil)
	}

	wanted := util.StringSet(trainNumbers)

	util.InPlaceFilter(&entries, func(entry json.RawMessage) bool {
		var identifying struct {
			TreinNummer flexString `json:"treinNummer"`
		}
		if err := json.Unmarshal(entry, &identifying); err != nil {
			return false
		}

		trainNumber := identifying.TreinNummer.String()
		return trainNumber != "" && wanted[trainNumber]
	})

	return newVehicleResponse(entries)
}

// FilterTrainNumbers keeps the entries matching the trimmed train numbers
func (r *VehicleResponse) FilterTrainNumbers(trainNumbers []string) *VehicleResponse {
	return filterByTrainNumbers(r, util.NormaliseIdentifiers(trainNumbers))
}
