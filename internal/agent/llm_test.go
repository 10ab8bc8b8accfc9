package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestExternalDeciderToolCall(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream = true, want false")
		}
		if len(req.Messages) < 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v, want system prompt first", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{
				"content": "Fetching weather.",
				"tool_calls": []map[string]any{
					{"function": map[string]any{
						"name":      "fetch_metar",
						"arguments": map[string]any{"icao_code": "KDEN"},
					}},
				},
			},
		})
	})

	d := NewExternalDecider(srv.URL, "llama3.1", time.Second, nil)
	dec, err := d.Decide(context.Background(), &State{Query: "metar KDEN"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Kind != DecideTool || dec.Tool != "fetch_metar" {
		t.Fatalf("decision = %+v, want fetch_metar tool call", dec)
	}
	if got := dec.Args.String("icao_code"); got != "KDEN" {
		t.Errorf("icao_code = %q, want KDEN", got)
	}
}

func TestExternalDeciderFinalAnswer(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": "Winds are calm."},
		})
	})

	d := NewExternalDecider(srv.URL, "llama3.1", time.Second, nil)
	dec, err := d.Decide(context.Background(), &State{Query: "weather KDEN"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Kind != DecideFinal || dec.Text != "Winds are calm." {
		t.Fatalf("decision = %+v, want final answer", dec)
	}
}

// Two failed exchanges downgrade the decider; subsequent decisions come
// from the deterministic pattern decider without touching the network.
func TestExternalDeciderDowngrades(t *testing.T) {
	calls := 0
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	d := NewExternalDecider(srv.URL, "llama3.1", time.Second, nil)
	st := &State{Query: "metar KDEN"}

	dec, err := d.Decide(context.Background(), st)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2 (one retry)", calls)
	}
	if dec.Kind != DecideTool || dec.Tool != "fetch_metar" {
		t.Fatalf("decision = %+v, want pattern fetch_metar", dec)
	}

	// Downgrade sticks for the rest of the run.
	if _, err := d.Decide(context.Background(), st); err != nil {
		t.Fatalf("Decide after downgrade: %v", err)
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d after downgrade, want still 2", calls)
	}
}

func TestExternalDeciderMalformedReply(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{}})
	})

	d := NewExternalDecider(srv.URL, "llama3.1", time.Second, nil)
	dec, err := d.Decide(context.Background(), &State{Query: "metar KBDU"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	// Empty replies count as malformed and trigger the downgrade path.
	if dec.Kind != DecideTool || dec.Tool != "fetch_metar" {
		t.Fatalf("decision = %+v, want pattern fallback", dec)
	}
	if got := dec.Args.String("icao_code"); got != "KBDU" {
		t.Errorf("icao_code = %q, want KBDU", got)
	}
}
