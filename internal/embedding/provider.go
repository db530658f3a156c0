// Package embedding provides the semantic encoder backends. Backend
// choice is a constructor-time capability negotiation: the factory
// inspects configuration and returns a concrete variant, so the
// analysis hot path never branches on import or load failures.
package embedding

import (
	"fmt"

	"github.com/edulab-ai/progresscluster/internal/domain"
	"go.uber.org/zap"
)

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
	ProviderMock   = "mock"
)

// NewEncoder selects an encoder backend. An unusable primary backend
// (openai without an API key) downgrades to the deterministic hashed
// encoder with a logged warning rather than failing: clustering must
// still run with degraded semantic quality.
func NewEncoder(provider, apiKey string, logger *zap.Logger) (domain.SemanticEncoder, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			logger.Warn("semantic backend downgraded: OPENAI_API_KEY not set, using hashed features",
				zap.String("requested", provider))
			return NewHashEncoder(DefaultHashDim), nil
		}
		return NewOpenAIEncoder(apiKey), nil

	case ProviderHash:
		return NewHashEncoder(DefaultHashDim), nil

	case ProviderMock:
		return NewMockEncoder(8), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, hash, mock)", provider)
	}
}
