package questforge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/questforge/roadmap-engine/internal/roadmap"
	"github.com/questforge/roadmap-engine/internal/stream"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		MaxRetries: 0,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGetRoadmapNormalizes(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/roadmaps/rm-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "rm-1",
			"title": "Learn Go",
			"nodes": [
				{"id": "goal-1", "type": "goal", "label": "Learn Go"},
				{"id": "ms-1", "type": "milestone", "label": "Basics", "parent_id": "goal-1"},
				{"id": "t-1", "type": "action", "label": "Install", "parent_id": "ms-1", "progress": 130}
			]
		}`))
	}))

	rm, err := c.GetRoadmap(context.Background(), "rm-1")
	if err != nil {
		t.Fatalf("GetRoadmap: %v", err)
	}
	if rm.ID != "rm-1" || rm.Title != "Learn Go" {
		t.Fatalf("unexpected roadmap header: %+v", rm)
	}

	task := rm.FindNode("t-1")
	if task.Type != roadmap.NodeTypeTask {
		t.Fatalf("legacy type not normalized: %q", task.Type)
	}
	if task.Progress != 100 {
		t.Fatalf("progress not clamped: %d", task.Progress)
	}
	// Edges are derived from parent_id on the way in.
	if len(rm.Edges) != 2 {
		t.Fatalf("derived edges = %d, want 2", len(rm.Edges))
	}
}

func TestGetRoadmapErrorEnvelope(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"roadmap not found","code":"not_found"}}`))
	}))

	_, err := c.GetRoadmap(context.Background(), "rm-missing")
	if err == nil {
		t.Fatalf("expected error")
	}

	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("error type = %T", err)
	}
	if herr.StatusCode != http.StatusNotFound || herr.Message != "roadmap not found" || herr.Code != "not_found" {
		t.Fatalf("unexpected HTTPError: %+v", herr)
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound = false")
	}
}

func TestGetRoadmapFastAPIDetail(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"invalid roadmap id"}`))
	}))

	_, err := c.GetRoadmap(context.Background(), "bad id")
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("error type = %T", err)
	}
	if herr.Message != "invalid roadmap id" {
		t.Fatalf("detail not parsed: %+v", herr)
	}
}

func TestListRoadmaps(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/roadmaps/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"roadmaps":[{"id":"rm-2","title":"Newest"},{"id":"rm-1","title":"Oldest"}]}`))
	}))

	out, err := c.ListRoadmaps(context.Background())
	if err != nil {
		t.Fatalf("ListRoadmaps: %v", err)
	}
	if len(out) != 2 || out[0].ID != "rm-2" || out[1].ID != "rm-1" {
		t.Fatalf("unexpected list: %+v", out)
	}
}

func TestDoJSONRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"rm-1","title":"Recovered"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL, MaxRetries: 2, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rm, err := c.GetRoadmap(context.Background(), "rm-1")
	if err != nil {
		t.Fatalf("GetRoadmap after retries: %v", err)
	}
	if rm.Title != "Recovered" || attempts != 3 {
		t.Fatalf("title = %q, attempts = %d", rm.Title, attempts)
	}
}

func TestStreamRoadmapFrames(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/roadmaps/generate" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("accept = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: roadmap_skeleton\ndata: {\"goal\":{\"id\":\"goal-1\"}}\n\n" +
			": heartbeat\n\n" +
			"event: roadmap_complete\ndata: {\"roadmap_id\":\"rm-9\"}\n\n"))
	}))

	type frame struct{ event, data string }
	var got []frame
	err := c.StreamRoadmap(context.Background(), GenerateRequest{Goal: "learn go"}, func(event, data string) error {
		got = append(got, frame{event, data})
		return nil
	})
	if err != nil {
		t.Fatalf("StreamRoadmap: %v", err)
	}

	want := []frame{
		{stream.EventRoadmapSkeleton, `{"goal":{"id":"goal-1"}}`},
		{stream.EventRoadmapComplete, `{"roadmap_id":"rm-9"}`},
	}
	if len(got) != len(want) {
		t.Fatalf("frames = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStreamRoadmapErrorStatus(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"generator busy"}}`))
	}))

	err := c.StreamRoadmap(context.Background(), GenerateRequest{Goal: "learn go"}, func(event, data string) error {
		t.Fatalf("callback fired for failed stream open")
		return nil
	})
	var herr *HTTPError
	if !errors.As(err, &herr) || herr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v", err)
	}
}

func TestConfirmCheckIn(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/checkins/ci-1/confirm" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"applied_updates":[{"node_id":"t-1","progress_delta":25}]}`))
	}))

	applied, err := c.ConfirmCheckIn(context.Background(), "ci-1")
	if err != nil {
		t.Fatalf("ConfirmCheckIn: %v", err)
	}
	if len(applied) != 1 || applied[0].NodeID != "t-1" || applied[0].ProgressDelta != 25 {
		t.Fatalf("unexpected applied updates: %+v", applied)
	}
}
