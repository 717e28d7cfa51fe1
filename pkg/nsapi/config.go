package nsapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/travigo/livetrains/pkg/util"
)

const defaultBaseURL = "https://gateway.apiportal.ns.nl/virtual-train-api/api"
const defaultJourneyBaseURL = "https://gateway.apiportal.ns.nl/reisinformatie-api/api/v2"
const defaultAuthHeader = "Ocp-Apim-Subscription-Key"

const (
	TransportAuto     = "auto"
	TransportFastHTTP = "fasthttp"
	TransportNetHTTP  = "nethttp"
)

type Endpoints struct {
	TrainLocations string
	TrainDetails   string
	Stations       string
	Journey        string
}

type Auth struct {
	HeaderName string
	Key        string
}

type DefaultParams struct {
	Lat      float64
	Lng      float64
	Features string
}

type Config struct {
	BaseURL        string
	JourneyBaseURL string

	CorsProxyURL string
	UseCorsProxy bool

	Endpoints     Endpoints
	Auth          Auth
	DefaultParams DefaultParams

	Transport string

	Timeout    time.Duration
	MaxRetries uint64
	RetryDelay time.Duration

	// Successful validations are trusted for this long
	ValidationInterval time.Duration

	// Filters with more identifiers than this are applied after the fetch only
	FilterParamLimit int
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		JourneyBaseURL: defaultJourneyBaseURL,
		Endpoints: Endpoints{
			TrainLocations: "/vehicle",
			TrainDetails:   "/vehicle",
			Stations:       "/stations",
			Journey:        "/journey",
		},
		Auth: Auth{
			HeaderName: defaultAuthHeader,
		},
		DefaultParams: DefaultParams{
			Lat:      52.3676,
			Lng:      4.9041,
			Features: "trein",
		},
		Transport:          TransportAuto,
		Timeout:            20 * time.Second,
		MaxRetries:         2,
		RetryDelay:         time.Second,
		ValidationInterval: time.Minute,
		FilterParamLimit:   10,
	}
}

// LoadConfig builds the configuration from the defaults overridden by the environment
func LoadConfig() Config {
	config := DefaultConfig()
	env := util.GetEnvironmentVariables()

	config.BaseURL = env.String("LIVETRAINS_NS_BASE_URL", config.BaseURL)
	config.JourneyBaseURL = env.String("LIVETRAINS_NS_JOURNEY_BASE_URL", config.JourneyBaseURL)
	config.Auth.Key = env.String("LIVETRAINS_NS_API_KEY", config.Auth.Key)
	config.Auth.HeaderName = env.String("LIVETRAINS_NS_AUTH_HEADER", config.Auth.HeaderName)
	config.CorsProxyURL = env.String("LIVETRAINS_CORS_PROXY_URL", config.CorsProxyURL)
	config.UseCorsProxy = env.Bool("LIVETRAINS_USE_CORS_PROXY", config.UseCorsProxy)
	config.DefaultParams.Lat = env.Float("LIVETRAINS_DEFAULT_LAT", config.DefaultParams.Lat)
	config.DefaultParams.Lng = env.Float("LIVETRAINS_DEFAULT_LNG", config.DefaultParams.Lng)
	config.Transport = strings.ToLower(env.String("LIVETRAINS_TRANSPORT", config.Transport))
	config.Timeout = env.Duration("LIVETRAINS_NS_TIMEOUT", config.Timeout)

	return config
}

// BuildURL joins an endpoint onto the base URL, routing it through the CORS proxy when enabled
func (c *Config) BuildURL(endpoint string) string {
	return c.proxied(joinURL(c.BaseURL, endpoint))
}

func (c *Config) BuildJourneyURL() string {
	return c.proxied(joinURL(c.JourneyBaseURL, c.Endpoints.Journey))
}

func (c *Config) proxied(target string) string {
	if c.UseCorsProxy && c.CorsProxyURL != "" {
		return c.CorsProxyURL + url.QueryEscape(target)
	}
	return target
}

func joinURL(base string, endpoint string) string {
	if strings.HasPrefix(endpoint, "/") {
		return base + endpoint
	}
	return base + "/" + endpoint
}

func (c *Config) QueryParams() url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(c.DefaultParams.Lat, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(c.DefaultParams.Lng, 'f', -1, 64))
	if c.DefaultParams.Features != "" {
		params.Set("features", c.DefaultParams.Features)
	}
	return params
}

// Validate lists every missing or inconsistent setting, empty when usable
func (c *Config) Validate() []string {
	var problems []string

	if c.Auth.Key == "" {
		problems = append(problems, "no API key configured (set LIVETRAINS_NS_API_KEY)")
	}

	if c.BaseURL == "" {
		problems = append(problems, "no base URL configured")
	}

	if c.UseCorsProxy && c.CorsProxyURL == "" {
		problems = append(problems, "CORS proxy enabled but no proxy URL configured")
	}

	return problems
}

func appendQuery(requestURL string, params url.Values) string {
	if len(params) == 0 {
		return requestURL
	}

	separator := "?"
	if strings.Contains(requestURL, "?") {
		separator = "&"
	}
	return requestURL + separator + params.Encode()
}
