package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dutyfree/reconcile/internal/application/reconcile"
	domain "github.com/dutyfree/reconcile/internal/domain/reconcile"
	"go.uber.org/zap"
)

// ClassifierConfig configures the chat completion classifier
type ClassifierConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ChatClassifier sends OCR text to an OpenAI compatible chat completion
// endpoint and decodes the JSON reply.
type ChatClassifier struct {
	cfg     ClassifierConfig
	prompts Prompts
	client  *http.Client
	logger  *zap.Logger
}

// NewChatClassifier creates a classifier
func NewChatClassifier(cfg ClassifierConfig, prompts Prompts, logger *zap.Logger) *ChatClassifier {
	return &ChatClassifier{
		cfg:     cfg,
		prompts: prompts,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classify extracts receipts and passports from text
func (c *ChatClassifier) Classify(ctx context.Context, variant domain.Variant, text string) (*domain.ClassifiedDocument, error) {
	prompt, ok := c.prompts[variant]
	if !ok {
		return nil, domain.ErrInvalidVariant
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("classifier response: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("classifier response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, msg)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	return ParseClassification(out.Choices[0].Message.Content)
}

// ParseClassification decodes a model reply, tolerating a markdown code fence.
func ParseClassification(content string) (*domain.ClassifiedDocument, error) {
	content = stripCodeFence(content)
	var doc domain.ClassifiedDocument
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("malformed classification: %w", err)
	}
	return &doc, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// optional language tag up to the first newline
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ reconcile.Classifier = (*ChatClassifier)(nil)
