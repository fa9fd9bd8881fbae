package synapse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"challengeutils/internal/core/annotations"
	perr "challengeutils/internal/platform/errors"
	"challengeutils/internal/platform/testkit"
)

// newTestClient returns a client pointed at srv with sleeping disabled
func newTestClient(t *testing.T, srv *httptest.Server, o Options) *Client {
	t.Helper()
	o.BaseURL = srv.URL
	c := NewClient(o)
	testkit.Swap(t, &c.sleep, func(time.Duration) {})
	return c
}

func TestDoSendsBearerAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekret" {
			t.Errorf("auth header = %q", got)
		}
		_ = json.NewEncoder(w).Encode(SubmissionStatus{ID: "9700001", Status: "RECEIVED"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{AuthToken: "sekret"})
	st, err := c.GetSubmissionStatus(context.Background(), "9700001")
	if err != nil {
		t.Fatalf("GetSubmissionStatus: %v", err)
	}
	if st.ID != "9700001" || st.Status != "RECEIVED" {
		t.Fatalf("status = %+v", st)
	}
}

func TestDoRetriesTransientServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(Team{ID: "42", Name: "blue"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{MaxRetries: 5})
	team, err := c.GetTeam(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetTeam: %v", err)
	}
	if team.Name != "blue" {
		t.Fatalf("team = %+v", team)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestDoRespectsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(Team{ID: "42", Name: "blue"})
	}))
	defer srv.Close()

	var slept time.Duration
	c := newTestClient(t, srv, Options{MaxRetries: 2})
	testkit.Swap(t, &c.sleep, func(d time.Duration) { slept = d })

	if _, err := c.GetTeam(context.Background(), "42"); err != nil {
		t.Fatalf("GetTeam: %v", err)
	}
	if slept != 7*time.Second {
		t.Fatalf("slept %v, want 7s from Retry-After", slept)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{MaxRetries: 2})
	_, err := c.GetTeam(context.Background(), "42")
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestDoMapsTerminalStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/evaluation/submission/1/status":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"reason": "submission 1 does not exist"}`))
		case "/evaluation/submission/2/status":
			w.WriteHeader(http.StatusPreconditionFailed)
			_, _ = w.Write([]byte(`{"reason": "etag out of date"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	ctx := context.Background()

	if _, err := c.GetSubmissionStatus(ctx, "1"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	if _, err := c.GetSubmissionStatus(ctx, "2"); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("want conflict for stale etag, got %v", err)
	}
	if _, err := c.GetSubmission(ctx, "3"); !perr.IsCode(err, perr.ErrorCodeUnauthorized) {
		t.Fatalf("want unauthorized, got %v", err)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, srv, Options{MaxRetries: 100})
	testkit.Swap(t, &c.sleep, func(time.Duration) { cancel() })

	if _, err := c.GetTeam(ctx, "42"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestStoreSubmissionStatusRoundTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		var in SubmissionStatus
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Etag != "etag-1" {
			t.Errorf("etag = %q", in.Etag)
		}
		if len(in.Annotations.LongAnnos) != 1 || in.Annotations.LongAnnos[0].Key != "rank" {
			t.Errorf("annotations = %+v", in.Annotations)
		}
		in.Etag = "etag-2"
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	st := SubmissionStatus{
		ID:   "9700001",
		Etag: "etag-1",
		Annotations: annotations.Encode(
			annotations.Map{"rank": annotations.Long(4)}, true),
	}
	out, err := c.StoreSubmissionStatus(context.Background(), st)
	if err != nil {
		t.Fatalf("StoreSubmissionStatus: %v", err)
	}
	if out.Etag != "etag-2" {
		t.Fatalf("etag = %q", out.Etag)
	}
}
