package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"arxivwatch/internal/config"
	"arxivwatch/internal/domain"
	"arxivwatch/internal/ports"
)

// Summarizer generates paper summaries through an OpenAI-compatible
// chat-completions API; by default it talks to Gemini's compatibility
// endpoint.
type Summarizer struct {
	client    openai.Client
	model     string
	prompt    string
	maxTokens int64
	logger    *slog.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer builds a client from configuration.
func NewSummarizer(cfg config.GeminiConfig, httpClient *http.Client, logger *slog.Logger) *Summarizer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Summarizer{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		prompt:    cfg.Prompt,
		maxTokens: int64(cfg.MaxTokens),
		logger:    logger,
	}
}

// Summarize sends the trimmed document plus the prompt in one user message
// and returns the model's text.
func (s *Summarizer) Summarize(ctx context.Context, paper domain.Paper, documentBase64 string) (string, error) {
	prompt := strings.ReplaceAll(s.prompt, "{title}", paper.Title)

	s.logger.Info("requesting summary", "paper_id", paper.ID, "model", s.model)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String("data:application/pdf;base64," + documentBase64),
			Filename: openai.String(paper.ID + ".pdf"),
		}),
		openai.TextContentPart(prompt),
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	}
	if s.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(s.maxTokens)
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("request summary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	s.logger.Info("generated summary",
		"paper_id", paper.ID,
		"summary_length", len(summary),
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
	)
	return summary, nil
}
