package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGenerateUnconfiguredUsesPlaceholder(t *testing.T) {
	client := NewClient("", time.Second)
	if client.IsConfigured() {
		t.Fatal("empty base URL must report unconfigured")
	}

	content, err := client.Generate(context.Background(), Request{
		SectionTitle: "Executive Summary",
		UserPrompt:   "focus on Q2",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(content, "Executive Summary") || !strings.Contains(content, "focus on Q2") {
		t.Fatalf("placeholder content missing inputs: %q", content)
	}
}

func TestGenerateExecuteAndPoll(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/generate/execute":
			var req Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.SectionID != "sec-1" {
				t.Errorf("sectionId = %q", req.SectionID)
			}
			json.NewEncoder(w).Encode(map[string]string{"executionId": "exec-42"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/executions/exec-42":
			status := "running"
			content := ""
			if polls.Add(1) >= 2 {
				status = "completed"
				content = "Generated section body."
			}
			json.NewEncoder(w).Encode(map[string]any{
				"status": status,
				"output": map[string]string{"content": content},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	client.pollInterval = 10 * time.Millisecond

	content, err := client.Generate(context.Background(), Request{ReportID: "rep-1", SectionID: "sec-1", SectionTitle: "Findings"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if content != "Generated section body." {
		t.Fatalf("content = %q", content)
	}
	if polls.Load() < 2 {
		t.Fatalf("expected at least 2 polls, got %d", polls.Load())
	}
}

func TestGenerateFailedExecution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/generate/execute" {
			json.NewEncoder(w).Encode(map[string]string{"executionId": "exec-9"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "failed"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	client.pollInterval = 10 * time.Millisecond

	_, err := client.Generate(context.Background(), Request{SectionID: "sec-1"})
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Fatalf("expected failed execution error, got %v", err)
	}
}

func TestGenerateServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Generate(context.Background(), Request{SectionID: "sec-1"})
	if err == nil {
		t.Fatal("expected error from 500 response")
	}
}
