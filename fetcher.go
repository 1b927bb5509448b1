package main

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// HTTPClient is the part of *http.Client the fetcher needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher issues GET requests against the Rumour REST API.
type Fetcher struct {
	client  HTTPClient
	base    *url.URL
	timeout time.Duration
	log     log.FieldLogger
}

type softError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func NewFetcher(client HTTPClient, base *url.URL, timeout time.Duration) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &Fetcher{
		client:  client,
		base:    base,
		timeout: timeout,
		log:     log.StandardLogger(),
	}
}

// URL resolves a path against the base URL. An absolute
// path replaces the base's path entirely.
func (f *Fetcher) URL(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	return f.base.ResolveReference(ref).String(), nil
}

// Fetch requests path and decodes the JSON body into v. Only 2xx
// responses succeed; anything else is an UpstreamError. A nil v skips
// decoding. A body flagged with "error": true is logged and v is left
// untouched, so list lookups on it come back empty.
func (f *Fetcher) Fetch(ctx context.Context, path string, v interface{}) error {
	target, err := f.URL(path)
	if err != nil {
		return &ConnectionError{URL: path, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return &ConnectionError{URL: target, Err: err}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return classifyTransportError(target, err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(target, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := resp.Status
		var se softError
		if json.Unmarshal(body, &se) == nil && se.Message != "" {
			message = se.Message
		}

		return &UpstreamError{URL: target, Status: resp.StatusCode, Message: message}
	}

	if v == nil {
		return nil
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return &MalformedResponseError{URL: target, Err: err}
	}

	var se softError
	if json.Unmarshal(body, &se) == nil && se.Error {
		f.log.WithField("url", target).Errorf("Rumour returned an error: %s", se.Message)
		return nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return &MalformedResponseError{URL: target, Err: err}
	}

	return nil
}

func classifyTransportError(target string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: target, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{URL: target, Err: err}
	}

	return &ConnectionError{URL: target, Err: err}
}

// joinPath builds a relative API path with each segment escaped.
func joinPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	return "/" + strings.Join(escaped, "/")
}
