package nsapi

import (
	"fmt"
	"strings"
)

// ConfigurationError is returned before any request is made when the
// credentials or endpoints are missing
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid train API configuration: %s", strings.Join(e.Problems, "; "))
}

// TransportError covers network failures, timeouts and non-2xx responses
type TransportError struct {
	Transport  string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("train API request via %s failed: %d %s", e.Transport, e.StatusCode, e.Status)
	}
	return fmt.Sprintf("train API request via %s failed: %v", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError marks a payload (Index -1) or a single train entry that could not be decoded
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed train API payload: %v", e.Err)
	}
	return fmt.Sprintf("malformed train entry %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
