package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	domain "github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClassifier(t *testing.T, handler http.HandlerFunc) *ChatClassifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prompts, err := LoadPrompts("", "")
	require.NoError(t, err)
	return NewChatClassifier(ClassifierConfig{
		BaseURL: srv.URL + "/v1/",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, prompts, zap.NewNop())
}

func reply(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	}
}

func TestChatClassifier_Classify(t *testing.T) {
	t.Run("sends prompt and decodes fenced reply", func(t *testing.T) {
		var got chatRequest
		c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(reply("```json\n{\"receipts\":[{\"receiptNumber\":\"0124507700631\",\"passportNumber\":\"MZ9268755\"}],\"passports\":[]}\n```"))
		})

		doc, err := c.Classify(context.Background(), domain.VariantShilla, "OCR TEXT")
		require.NoError(t, err)
		require.Len(t, doc.Receipts, 1)
		assert.Equal(t, "0124507700631", doc.Receipts[0].ReceiptNumber)
		assert.Equal(t, "MZ9268755", doc.Receipts[0].PassportNumber)

		assert.Equal(t, "gpt-4o-mini", got.Model)
		assert.Zero(t, got.Temperature)
		require.Len(t, got.Messages, 2)
		assert.Contains(t, got.Messages[0].Content, "13 digits")
		assert.Equal(t, "OCR TEXT", got.Messages[1].Content)
	})

	t.Run("api error surfaces message", func(t *testing.T) {
		c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
		})

		_, err := c.Classify(context.Background(), domain.VariantLotte, "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("malformed reply", func(t *testing.T) {
		c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(reply("sorry, I cannot read this"))
		})

		_, err := c.Classify(context.Background(), domain.VariantLotte, "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed classification")
	})

	t.Run("unknown variant", func(t *testing.T) {
		c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		_, err := c.Classify(context.Background(), domain.Variant("duty"), "x")
		assert.ErrorIs(t, err, domain.ErrInvalidVariant)
	})
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                 `{"a":1}`,
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  ```{\"a\":1}```  ":     `{"a":1}`,
	}
	for in, want := range tests {
		assert.Equal(t, want, stripCodeFence(in), in)
	}
}

func TestLoadPrompts(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "lotte.txt")
	require.NoError(t, os.WriteFile(custom, []byte("custom lotte prompt"), 0o600))

	p, err := LoadPrompts(custom, filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.Equal(t, "custom lotte prompt", p[domain.VariantLotte])
	assert.Equal(t, shillaPrompt, p[domain.VariantShilla])
}
