package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	openAIEmbeddingURL = "https://api.openai.com/v1/embeddings"
	openAIModel        = "text-embedding-3-small"
	openAIDim          = 1536
)

// OpenAIEncoder encodes window texts through the OpenAI embeddings
// API. Returned rows are L2-normalized at the source.
type OpenAIEncoder struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIEncoder(apiKey string) *OpenAIEncoder {
	return &OpenAIEncoder{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (e *OpenAIEncoder) Mode() string  { return ProviderOpenAI }
func (e *OpenAIEncoder) Model() string { return openAIModel }
func (e *OpenAIEncoder) Dim() int      { return openAIDim }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Encode embeds texts as one batch request.
func (e *OpenAIEncoder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{
		Model: openAIModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEmbeddingURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result embeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal embedding response: %w", err)
	}

	if result.Error != nil {
		return nil, fmt.Errorf("embedding API error: %s", result.Error.Message)
	}

	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d rows for %d inputs", len(result.Data), len(texts))
	}

	rows := make([][]float64, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(rows) {
			return nil, fmt.Errorf("embedding API returned out-of-range index %d", d.Index)
		}
		rows[d.Index] = l2Normalize(d.Embedding)
	}
	return rows, nil
}
