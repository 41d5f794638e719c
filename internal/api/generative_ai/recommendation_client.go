package generativeAI

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

// RecommendationGenerator is the Generation Client used by the pipeline.
type RecommendationGenerator interface {
	// Generate returns an empty slice for empty or malformed model output and
	// types.ErrProviderUnavailable when the provider call itself failed.
	Generate(ctx context.Context, query string, filters types.Filters) ([]types.RecommendationResult, error)
	// GetPlaceDetails returns nil when the model has no usable answer.
	GetPlaceDetails(ctx context.Context, name string) (*types.PlaceDetails, error)
}

var _ RecommendationGenerator = (*RecommendationClient)(nil)

type RecommendationClient struct {
	logger    *slog.Logger
	generator TextGenerator
	language  string
}

func NewRecommendationClient(generator TextGenerator, language string, logger *slog.Logger) *RecommendationClient {
	return &RecommendationClient{
		logger:    logger,
		generator: generator,
		language:  language,
	}
}

func (c *RecommendationClient) Generate(ctx context.Context, query string, filters types.Filters) ([]types.RecommendationResult, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	prompt := BuildRecommendationPrompt(query, filters, c.language)
	text, err := c.generator.GenerateText(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		c.logger.ErrorContext(ctx, "Recommendation generation failed", slog.String("query", query), slog.Any("error", err))
		return []types.RecommendationResult{}, fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
	}
	if text == "" {
		c.logger.WarnContext(ctx, "Empty response from model", slog.String("query", query))
		span.SetStatus(codes.Ok, "Empty response")
		return []types.RecommendationResult{}, nil
	}

	results, err := ParseRecommendations(text)
	if err != nil {
		c.logger.WarnContext(ctx, "Discarding unparseable model output",
			slog.String("query", query), slog.String("response", truncate(text, 200)), slog.Any("error", err))
		span.SetStatus(codes.Ok, "Unparseable response")
		return []types.RecommendationResult{}, nil
	}
	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Recommendations generated")
	return results, nil
}

func (c *RecommendationClient) GetPlaceDetails(ctx context.Context, name string) (*types.PlaceDetails, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GetPlaceDetails", trace.WithAttributes(
		attribute.String("place.name", name),
	))
	defer span.End()

	text, err := c.generator.GenerateText(ctx, BuildPlaceDetailsPrompt(name, c.language))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		c.logger.ErrorContext(ctx, "Place details generation failed", slog.String("name", name), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
	}
	if text == "" {
		return nil, nil
	}
	details, err := ParsePlaceDetails(text, name)
	if err != nil {
		c.logger.WarnContext(ctx, "Discarding unparseable place details",
			slog.String("name", name), slog.String("response", truncate(text, 200)), slog.Any("error", err))
		return nil, nil
	}
	span.SetStatus(codes.Ok, "Place details generated")
	return details, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
