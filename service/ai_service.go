package service

import (
	"context"
	stderrors "errors"
	"time"

	"linkhub.app/breaker"
	"linkhub.app/errors"
	"linkhub.app/metrics"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
	"linkhub.app/providers"
)

const fallbackSuggestion = "Welcome to my page! Check out the links below."

// AIService calls the external suggestion API through a circuit breaker.
// When the circuit is open the caller gets a canned suggestion marked
// degraded instead of an error.
type AIService struct {
	provider providers.BioSuggester
	circuit  *breaker.Breaker
	registry *metrics.Registry
	log      *logger.Logger
}

// NewAIService creates a new AI suggestion service
func NewAIService(provider providers.BioSuggester, circuit *breaker.Breaker, registry *metrics.Registry, log *logger.Logger) *AIService {
	return &AIService{
		provider: provider,
		circuit:  circuit,
		registry: registry,
		log:      log,
	}
}

// SuggestBio returns an AI-generated bio, or the degraded fallback when the
// dependency is unavailable.
func (s *AIService) SuggestBio(ctx context.Context, keywords string) (*models.BioSuggestionResponse, error) {
	start := time.Now()

	var suggestion string
	err := s.circuit.Execute(ctx, func(ctx context.Context) error {
		result, err := s.provider.SuggestBio(ctx, keywords)
		if err != nil {
			return err
		}
		suggestion = result
		return nil
	})

	duration := time.Since(start)
	if !stderrors.Is(err, breaker.ErrOpen) {
		// Rejected calls never reached the provider.
		s.registry.RecordAPICall("ai", duration, err)
		s.registry.RecordCircuitBreakerResult(s.circuit.Name(), err == nil)
	}

	switch {
	case err == nil:
		s.log.LogAPICall("ai", "/chat/completions", 200, duration, nil)
		return &models.BioSuggestionResponse{Suggestion: suggestion}, nil

	case stderrors.Is(err, breaker.ErrOpen):
		s.log.Warn("suggestion served degraded, circuit open", map[string]interface{}{
			"breaker": s.circuit.Name(),
		})
		return &models.BioSuggestionResponse{Suggestion: fallbackSuggestion, Degraded: true}, nil

	case stderrors.Is(err, breaker.ErrTimeout):
		s.log.LogAPICall("ai", "/chat/completions", 0, duration, err)
		return nil, errors.NewUpstreamTimeoutError("suggestion request timed out", err)

	default:
		if errors.IsValidationError(err) {
			return nil, err
		}
		s.log.LogAPICall("ai", "/chat/completions", 0, duration, err)
		return nil, errors.NewUpstreamFailureError("suggestion request failed", err)
	}
}
