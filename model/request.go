package model

import (
	"fmt"
	"strings"
)

type ResponseSource string

const (
	NetworkResponseSource ResponseSource = "network"
	CacheResponseSource   ResponseSource = "cache"
	OfflineResponseSource ResponseSource = "offline"
)

type (
	// Request is a transport-agnostic descriptor of an outgoing API call.
	Request struct {
		Method  string
		URL     string
		Headers map[string]string
		Body    []byte
	}

	// Response is the result of a Request delivery (network, cache fallback or
	// synthetic offline payload).
	Response struct {
		Status      int
		Body        []byte
		ContentType string
		Source      ResponseSource
	}
)

// String implements the stringer interface.
func (r Request) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.URL)
}

// Key builds the canonical cache key for the request.
func (r Request) Key() string {
	return RequestKey(r.Method, r.URL)
}

// IsRead reports whether the request is a read (GET-class) request.
func (r Request) IsRead() bool {
	return strings.EqualFold(r.Method, "GET")
}

// Ok reports whether the response carries a non-error status.
func (r Response) Ok() bool {
	return r.Status > 0 && r.Status < 400
}

// RequestKey builds the canonical request identifier used for caching.
func RequestKey(method, url string) string {
	return strings.ToUpper(method) + " " + url
}

// NewRequest creates a valid Request object.
func NewRequest(method, url string, headers map[string]string, body []byte) (Request, error) {
	if method == "" {
		return Request{}, fmt.Errorf("%s: empty", "method")
	}
	if url == "" {
		return Request{}, fmt.Errorf("%s: empty", "url")
	}

	return Request{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    body,
	}, nil
}
