// Package metrics pulls public engagement counters from the Twitter API and
// maintains each user's engagement snapshot.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// TweetMetrics is the per-tweet "public_metrics" object from the Twitter v2
// tweets endpoint. Counters missing from the payload decode as zero.
type TweetMetrics struct {
	Impressions int64 `json:"impression_count"`
	Likes       int64 `json:"like_count"`
	Retweets    int64 `json:"retweet_count"`
}

// Tweet is one item of the tweets list. We only request and decode the
// public metrics field.
type Tweet struct {
	PublicMetrics TweetMetrics `json:"public_metrics"`
}

// Client fetches a user's tweets with their engagement counters.
// The Refresher depends on this interface; tests substitute a fake.
type Client interface {
	FetchTweets(ctx context.Context, twitterID string) ([]Tweet, error)
}

// tweetsResponse mirrors the envelope of GET /2/users/:id/tweets.
// Twitter omits "data" entirely when the user has no tweets, so the field
// decodes as a nil slice — treated as zero engagement, not an error.
type tweetsResponse struct {
	Data []Tweet `json:"data"`
}

// HTTPClient implements Client against the real Twitter API using an
// app-only bearer token.
//
// The embedded http.Client carries a request timeout: the metrics endpoint is
// called during login, and a hung upstream must not hang the user's request
// forever. 10s is generous for a single page of tweets.
type HTTPClient struct {
	client      *http.Client
	baseURL     string
	bearerToken string
}

const (
	twitterAPIBase = "https://api.twitter.com"

	requestTimeout = 10 * time.Second
)

// NewHTTPClient creates a metrics client authenticated with the given
// bearer token.
func NewHTTPClient(bearerToken string) *HTTPClient {
	return newHTTPClient(bearerToken, twitterAPIBase)
}

// newHTTPClient lets tests point the client at an httptest server.
func newHTTPClient(bearerToken, baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		bearerToken: bearerToken,
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// FetchTweets performs one authenticated GET for the user's tweets,
// requesting the public_metrics field on each item.
func (c *HTTPClient) FetchTweets(ctx context.Context, twitterID string) ([]Tweet, error) {
	url := fmt.Sprintf("%s/2/users/%s/tweets?tweet.fields=public_metrics", c.baseURL, twitterID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("metrics: building tweets request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metrics: calling tweets endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics: tweets endpoint returned status %d", resp.StatusCode)
	}

	var payload tweetsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("metrics: decoding tweets response: %w", err)
	}

	// payload.Data is nil when the user has no tweets — callers aggregate
	// that to all-zero counters.
	return payload.Data, nil
}
