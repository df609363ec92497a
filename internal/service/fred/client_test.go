package fred

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"HistPull/internal/domain/models"
	xhttp "HistPull/pkg/http"
)

func TestFetchObservations(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/series/observations" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{
			"series_id":         r.URL.Query().Get("series_id"),
			"api_key":           r.URL.Query().Get("api_key"),
			"file_type":         r.URL.Query().Get("file_type"),
			"observation_start": r.URL.Query().Get("observation_start"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"observations":[
			{"realtime_start":"2024-01-06","date":"2024-01-03","value":"3.7"},
			{"realtime_start":"2024-01-06","date":"2024-01-04","value":"."},
			{"realtime_start":"2024-01-06","date":"2024-01-05","value":"3.8"}
		]}`))
	}))
	defer srv.Close()

	a := New(srv.URL, "fredkey", 15, xhttp.NewClient())
	c := a.(*Client)
	c.now = func() time.Time { return time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC) }

	obs, complete, err := c.Fetch(context.Background(), "UNRATE", models.Window{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotQuery["series_id"] != "UNRATE" || gotQuery["api_key"] != "fredkey" || gotQuery["file_type"] != "json" {
		t.Fatalf("unexpected params: %+v", gotQuery)
	}
	if gotQuery["observation_start"] != "2009-01-06" {
		t.Fatalf("expected lookback start 2009-01-06, got %q", gotQuery["observation_start"])
	}
	if len(obs) != 2 {
		t.Fatalf("dot value should be skipped, got %d observations", len(obs))
	}
	if obs[0].Datetime != "2024-01-03" || obs[0].Value == nil || *obs[0].Value != 3.7 {
		t.Fatalf("unexpected observation: %+v", obs[0])
	}
	if !complete {
		t.Fatalf("unpaginated fetch must report complete")
	}
}

func TestFetchErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"error_code":400,"error_message":"Bad Request. The series does not exist."}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", 15, xhttp.NewClient())
	_, _, err := c.Fetch(context.Background(), "NOPE", models.Window{})
	if models.KindOf(err) != models.ErrFatal {
		t.Fatalf("expected fatal, got %v", err)
	}
}

func TestFetchThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", 15, xhttp.NewClient())
	_, _, err := c.Fetch(context.Background(), "UNRATE", models.Window{})
	if models.KindOf(err) != models.ErrRateLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestFetchHonorsWindow(t *testing.T) {
	var start, end string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start = r.URL.Query().Get("observation_start")
		end = r.URL.Query().Get("observation_end")
		w.Write([]byte(`{"observations":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", 15, xhttp.NewClient())
	win := models.Window{
		From: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	if _, _, err := c.Fetch(context.Background(), "UNRATE", win); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if start != "2024-01-02" || end != "2024-01-05" {
		t.Fatalf("unexpected window params: %q %q", start, end)
	}
}
