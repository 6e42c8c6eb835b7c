package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arxivwatch/internal/config"
	"arxivwatch/internal/domain"
)

const completionResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gemini-test",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "  A concise summary.  "}, "finish_reason": "stop"}
  ],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func testPaper() domain.Paper {
	return domain.Paper{
		ID:    "2401.12345",
		Title: "Attention Is Enough",
		Link:  "https://arxiv.org/abs/2401.12345",
	}
}

func newTestSummarizer(baseURL string, client *http.Client) *Summarizer {
	return NewSummarizer(config.GeminiConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Model:     "gemini-test",
		Prompt:    "Summarize the paper titled {title}.",
		MaxTokens: 128,
	}, client, nil)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	var requestBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		requestBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	}))
	defer server.Close()

	summarizer := newTestSummarizer(server.URL, server.Client())
	summary, err := summarizer.Summarize(context.Background(), testPaper(), "ZG9jdW1lbnQ=")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}

	if summary != "A concise summary." {
		t.Fatalf("unexpected summary: %q", summary)
	}
	if !strings.Contains(requestBody, "Attention Is Enough") {
		t.Fatal("prompt title placeholder was not substituted")
	}
	if !strings.Contains(requestBody, "data:application/pdf;base64,ZG9jdW1lbnQ=") {
		t.Fatal("request body is missing the encoded document")
	}
	if !strings.Contains(requestBody, "gemini-test") {
		t.Fatal("request body is missing the model name")
	}
}

func TestSummarizeEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-2","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	summarizer := newTestSummarizer(server.URL, server.Client())
	if _, err := summarizer.Summarize(context.Background(), testPaper(), "ZG9j"); err == nil {
		t.Fatal("expected an error for an empty choices response")
	}
}

func TestSummarizeAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	summarizer := newTestSummarizer(server.URL, server.Client())
	if _, err := summarizer.Summarize(context.Background(), testPaper(), "ZG9j"); err == nil {
		t.Fatal("expected an error for an API failure")
	}
}
