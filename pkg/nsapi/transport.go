package nsapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// Transport performs a single GET request. Non-2xx responses and network
// failures are reported as *TransportError.
type Transport interface {
	Name() string
	Get(ctx context.Context, requestURL string, headers map[string]string) ([]byte, error)
}

type FastHTTPTransport struct {
	Client  *fasthttp.Client
	Timeout time.Duration
}

func NewFastHTTPTransport(timeout time.Duration) *FastHTTPTransport {
	return &FastHTTPTransport{
		Client: &fasthttp.Client{
			Name:         "livetrains",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		Timeout: timeout,
	}
}

func (t *FastHTTPTransport) Name() string {
	return TransportFastHTTP
}

func (t *FastHTTPTransport) Get(ctx context.Context, requestURL string, headers map[string]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Transport: t.Name(), Err: err}
	}

	timeout := t.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if err := t.Client.DoTimeout(req, resp, timeout); err != nil {
		return nil, &TransportError{Transport: t.Name(), Err: err}
	}

	statusCode := resp.StatusCode()
	if statusCode < fasthttp.StatusOK || statusCode >= fasthttp.StatusMultipleChoices {
		return nil, &TransportError{
			Transport:  t.Name(),
			StatusCode: statusCode,
			Status:     fasthttp.StatusMessage(statusCode),
		}
	}

	// resp is returned to the pool, so the body has to be copied out
	body := append([]byte(nil), resp.Body()...)
	return body, nil
}

type NetHTTPTransport struct {
	Client *http.Client
}

func NewNetHTTPTransport(timeout time.Duration) *NetHTTPTransport {
	return &NetHTTPTransport{
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *NetHTTPTransport) Name() string {
	return TransportNetHTTP
}

func (t *NetHTTPTransport) Get(ctx context.Context, requestURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &TransportError{Transport: t.Name(), Err: err}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Transport: t.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, resp.Body)

		return nil, &TransportError{
			Transport:  t.Name(),
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Transport: t.Name(), Err: err}
	}

	return body, nil
}

// SelectTransports probes what the environment supports and returns the
// preferred transport plus the one to downgrade to. secondary is nil when
// no downgrade is possible.
func SelectTransports(config Config) (primary Transport, secondary Transport) {
	netHTTP := NewNetHTTPTransport(config.Timeout)

	switch config.Transport {
	case TransportNetHTTP:
		return netHTTP, nil
	case TransportFastHTTP:
		return NewFastHTTPTransport(config.Timeout), netHTTP
	}

	// fasthttp ignores HTTP(S)_PROXY, so proxied environments go straight to net/http
	if proxyConfigured(config.BuildURL(config.Endpoints.TrainLocations)) {
		log.Info().Str("transport", netHTTP.Name()).Msg("HTTP proxy detected, using net/http transport")
		return netHTTP, nil
	}

	return NewFastHTTPTransport(config.Timeout), netHTTP
}

func proxyConfigured(requestURL string) bool {
	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return false
	}

	proxyURL, err := http.ProxyFromEnvironment(req)
	return err == nil && proxyURL != nil
}
