package transport

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/itiky/offline-bridge/model"
)

type (
	// Transport delivers a single request to the upstream server.
	// A returned error means the transport itself failed (unreachable, DNS,
	// timeout); an HTTP error status is a successful delivery and comes back
	// inside the Response.
	Transport interface {
		Send(ctx context.Context, req model.Request) (model.Response, error)
	}

	// HTTPTransport implements the Transport interface over net/http.
	HTTPTransport struct {
		baseURL string
		client  *http.Client
	}
)

// Send implements the Transport interface.
func (t *HTTPTransport) Send(ctx context.Context, req model.Request) (model.Response, error) {
	url := req.URL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = t.baseURL + url
	}

	var bodyReader *bytes.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return model.Response{}, fmt.Errorf("request build: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpRes, err := t.client.Do(httpReq)
	if err != nil {
		return model.Response{}, fmt.Errorf("request send: %w", err)
	}
	defer httpRes.Body.Close()

	resBody, err := ioutil.ReadAll(httpRes.Body)
	if err != nil {
		return model.Response{}, fmt.Errorf("response read: %w", err)
	}

	return model.Response{
		Status:      httpRes.StatusCode,
		Body:        resBody,
		ContentType: httpRes.Header.Get("Content-Type"),
		Source:      model.NetworkResponseSource,
	}, nil
}

// NewHTTPTransport creates a new HTTPTransport object.
func NewHTTPTransport(baseURL string, timeout time.Duration) (*HTTPTransport, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%s: empty", "baseURL")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "timeout")
	}

	return &HTTPTransport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}
