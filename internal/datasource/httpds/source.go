package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Source serves the body of a URL as CSV input.
type Source struct {
	client *Client
	url    string
}

// NewSource binds url to client.
func NewSource(client *Client, url string) *Source {
	return &Source{client: client, url: url}
}

// StatusError reports a final non-200 response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: unexpected status %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// Open fetches the URL. Any status other than 200 is an error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: s.url, Status: resp.StatusCode}
	}
	return resp.Body, nil
}
