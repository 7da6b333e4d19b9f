// Package generate calls the external content generation service. The
// service executes a generation workflow asynchronously: submit a request,
// get an execution ID back, poll until it completes.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Request carries everything the generation workflow needs for one section.
type Request struct {
	ReportID        string   `json:"reportId"`
	SectionID       string   `json:"sectionId"`
	SectionTitle    string   `json:"sectionTitle"`
	Guidance        string   `json:"guidance"`
	GenerationRules string   `json:"generationRules"`
	UserPrompt      string   `json:"userPrompt"`
	ContextDocs     []string `json:"contextDocs,omitempty"`
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	pollInterval time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		timeout:      timeout,
		pollInterval: time.Second,
	}
}

// IsConfigured reports whether a generation service URL is set. When it is
// not, Generate produces deterministic placeholder content so the rest of the
// workflow stays usable in development.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// Generate produces content for one section. Blocks until the execution
// completes, fails, or ctx/timeout expires.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if !c.IsConfigured() {
		return devContent(req), nil
	}

	executionID, err := c.execute(ctx, req)
	if err != nil {
		return "", err
	}
	return c.poll(ctx, executionID)
}

func (c *Client) execute(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate/execute", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("generation service returned %d", resp.StatusCode)
	}

	var body struct {
		ExecutionID string `json:"executionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode execution response: %w", err)
	}
	if body.ExecutionID == "" {
		return "", fmt.Errorf("generation service returned no execution id")
	}
	return body.ExecutionID, nil
}

func (c *Client) poll(ctx context.Context, executionID string) (string, error) {
	deadline := time.Now().Add(c.timeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, content, err := c.checkExecution(ctx, executionID)
		if err != nil {
			return "", err
		}
		switch status {
		case "completed":
			return content, nil
		case "failed", "cancelled":
			return "", fmt.Errorf("generation execution %s %s", executionID, status)
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("generation execution %s timed out", executionID)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) checkExecution(ctx context.Context, executionID string) (status, content string, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/executions/"+executionID, nil)
	if err != nil {
		return "", "", fmt.Errorf("build execution status request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("poll generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("execution status returned %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Output struct {
			Content string `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("decode execution status: %w", err)
	}
	return body.Status, body.Output.Content, nil
}

func devContent(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", req.SectionTitle)
	if req.UserPrompt != "" {
		fmt.Fprintf(&b, "Draft addressing: %s\n\n", req.UserPrompt)
	}
	if req.Guidance != "" {
		fmt.Fprintf(&b, "%s\n\n", req.Guidance)
	}
	b.WriteString("(Generated placeholder — no generation service configured.)\n")
	return b.String()
}
