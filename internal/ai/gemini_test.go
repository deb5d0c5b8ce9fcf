package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"smarttodo/internal/task"
)

// candidateResponse wraps text into the generateContent response envelope.
func candidateResponse(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGemini("test-key", WithBaseURL(srv.URL), WithModel("test-model"))
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	return g
}

func TestBreakdown(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		io.WriteString(w, candidateResponse(`{"steps":[
			{"step":"Make a list","description":"Write down what is needed"},
			{"step":"Go to the shop","description":"Bring the list"},
			{"step":"Pay","description":"Keep the receipt"}
		]}`))
	})

	steps, err := g.Breakdown(context.Background(), "buy groceries")
	if err != nil {
		t.Fatalf("Breakdown failed: %v", err)
	}
	if gotPath != "/v1beta/models/test-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotReq.GenerationConfig == nil || gotReq.GenerationConfig.ResponseMimeType != "application/json" {
		t.Error("breakdown request should ask for JSON output")
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	if steps[0].Step != "Make a list" || steps[0].Description != "Write down what is needed" {
		t.Errorf("first step = %+v", steps[0])
	}
}

func TestBreakdownRejectsMalformedJSON(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, candidateResponse(`Sure! Here are the steps: 1. Make a list`))
	})

	if _, err := g.Breakdown(context.Background(), "buy groceries"); err == nil {
		t.Error("non-JSON model output should be an error")
	}
}

func TestBreakdownRejectsWrongShape(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing steps", `{"items":[]}`},
		{"empty steps", `{"steps":[]}`},
		{"step missing description", `{"steps":[{"step":"Do it"}]}`},
		{"step wrong type", `{"steps":[{"step":1,"description":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, candidateResponse(tt.text))
			})
			if _, err := g.Breakdown(context.Background(), "x"); err == nil {
				t.Error("schema violation should be an error")
			}
		})
	}
}

func TestSuggestPriority(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    task.Priority
		wantErr bool
	}{
		{"plain answer", "high", task.PriorityHigh, false},
		{"answer with whitespace", "  Medium\n", task.PriorityMedium, false},
		{"upper case", "LOW", task.PriorityLow, false},
		{"sentence answer", "I would say this is high priority.", "", true},
		{"empty answer", "", "", true},
		{"unknown level", "critical", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, candidateResponse(tt.text))
			})

			got, err := g.SuggestPriority(context.Background(), "write report")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("priority = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateAPIError(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	})

	if _, err := g.SuggestPriority(context.Background(), "x"); err == nil {
		t.Error("API error should surface")
	}
}

func TestGenerateNoCandidates(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[]}`)
	})

	if _, err := g.Breakdown(context.Background(), "x"); err == nil {
		t.Error("empty candidate list should be an error")
	}
}

func TestNewGeminiValidation(t *testing.T) {
	if _, err := NewGemini("   "); err == nil {
		t.Error("blank api key should be rejected")
	}
}
