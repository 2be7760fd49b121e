package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeTweetsAPI(t *testing.T, status int, body string) *HTTPClient {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-bearer" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-bearer")
		}
		if got := r.URL.Query().Get("tweet.fields"); got != "public_metrics" {
			t.Errorf("tweet.fields = %q, want %q", got, "public_metrics")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return newHTTPClient("test-bearer", srv.URL)
}

func TestFetchTweets_DecodesPublicMetrics(t *testing.T) {
	c := newFakeTweetsAPI(t, http.StatusOK, `{
		"data": [
			{"id": "1", "public_metrics": {"impression_count": 10, "like_count": 2, "retweet_count": 1}},
			{"id": "2", "public_metrics": {"impression_count": 5, "like_count": 0, "retweet_count": 3}}
		]
	}`)

	tweets, err := c.FetchTweets(context.Background(), "2244994945")
	if err != nil {
		t.Fatalf("FetchTweets() error = %v", err)
	}
	if len(tweets) != 2 {
		t.Fatalf("len(tweets) = %d, want 2", len(tweets))
	}
	if tweets[0].PublicMetrics.Impressions != 10 || tweets[1].PublicMetrics.Retweets != 3 {
		t.Errorf("decoded metrics = %+v, wrong counters", tweets)
	}
}

func TestFetchTweets_MissingDataListIsEmpty(t *testing.T) {
	// Twitter omits "data" entirely for users with no tweets. That must not
	// be an error — the caller aggregates it to zero counters.
	c := newFakeTweetsAPI(t, http.StatusOK, `{"meta": {"result_count": 0}}`)

	tweets, err := c.FetchTweets(context.Background(), "2244994945")
	if err != nil {
		t.Fatalf("FetchTweets() error = %v", err)
	}
	if len(tweets) != 0 {
		t.Errorf("len(tweets) = %d, want 0", len(tweets))
	}
}

func TestFetchTweets_NonOKStatus(t *testing.T) {
	c := newFakeTweetsAPI(t, http.StatusTooManyRequests, `{"title":"Too Many Requests"}`)

	if _, err := c.FetchTweets(context.Background(), "2244994945"); err == nil {
		t.Fatal("FetchTweets() should fail on a non-200 response")
	}
}

func TestFetchTweets_MalformedBody(t *testing.T) {
	c := newFakeTweetsAPI(t, http.StatusOK, `<html>definitely not json</html>`)

	if _, err := c.FetchTweets(context.Background(), "2244994945"); err == nil {
		t.Fatal("FetchTweets() should fail on a malformed body")
	}
}
