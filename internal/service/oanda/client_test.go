package oanda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"HistPull/internal/domain/models"
	xhttp "HistPull/pkg/http"
)

func TestFetchCandles(t *testing.T) {
	var gotAuth, gotAccept, gotPath string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept-Datetime-Format")
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"granularity": r.URL.Query().Get("granularity"),
			"price":       r.URL.Query().Get("price"),
			"count":       r.URL.Query().Get("count"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"instrument":"EUR_USD","granularity":"M30","candles":[
			{"complete":true,"volume":120,"time":"2024-01-05T10:00:00.000000000Z","mid":{"o":"1.0921","h":"1.0930","l":"1.0915","c":"1.0928"}},
			{"complete":true,"volume":98,"time":"2024-01-05T10:30:00.000000000Z","mid":{"o":"1.0928","h":"1.0941","l":"1.0922","c":"1.0933"}},
			{"complete":false,"volume":11,"time":"2024-01-05T11:00:00.000000000Z","mid":{"o":"1.0933","h":"1.0936","l":"1.0931","c":"1.0934"}}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token", "M30", xhttp.NewClient())
	obs, complete, err := c.Fetch(context.Background(), "EUR_USD", models.Window{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotAccept != "RFC3339" {
		t.Fatalf("unexpected datetime format header %q", gotAccept)
	}
	if gotPath != "/v3/instruments/EUR_USD/candles" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery["granularity"] != "M30" || gotQuery["price"] != "M" || gotQuery["count"] != "5000" {
		t.Fatalf("unexpected params: %+v", gotQuery)
	}
	if len(obs) != 2 {
		t.Fatalf("incomplete candle should be skipped, got %d observations", len(obs))
	}
	if obs[0].Datetime != "2024-01-05 10:00:00" || obs[1].Datetime != "2024-01-05 10:30:00" {
		t.Fatalf("unexpected datetimes: %q %q", obs[0].Datetime, obs[1].Datetime)
	}
	if obs[0].Open != "1.0921" || obs[0].Volume != "120" {
		t.Fatalf("unexpected observation: %+v", obs[0])
	}
	if !complete {
		t.Fatalf("short page should report complete")
	}
}

func TestFetchErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   models.ErrorKind
	}{
		{"bad token", 401, `{"errorMessage":"Insufficient authorization to perform request."}`, models.ErrFatal},
		{"unknown instrument", 404, `{"errorMessage":"Invalid value specified for 'instrument'"}`, models.ErrNoData},
		{"throttled", 429, `{"errorMessage":"Rate limit exceeded"}`, models.ErrRateLimited},
		{"server error", 503, `unavailable`, models.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(srv.URL, "t", "M30", xhttp.NewClient())
			_, _, err := c.Fetch(context.Background(), "EUR_USD", models.Window{})
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := models.KindOf(err); got != tc.want {
				t.Fatalf("expected kind %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFetchErrorMessageOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errorMessage":"Invalid value specified for 'granularity'"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t", "BOGUS", xhttp.NewClient())
	_, _, err := c.Fetch(context.Background(), "EUR_USD", models.Window{})
	if models.KindOf(err) != models.ErrFatal {
		t.Fatalf("expected fatal, got %v", err)
	}
}
