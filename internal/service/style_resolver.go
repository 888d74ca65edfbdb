package service

import (
	"context"

	"llama-stylist/internal/prompt"
	"llama-stylist/internal/scene"
	"llama-stylist/internal/transform"

	"go.uber.org/zap"
)

// Style audit tags.
const (
	TagStyleResolved      = "style_resolved_by_backend"
	TagStyleRepaired      = "repaired_enriched_result"
	TagStyleMapperApplied = "applied_deterministic_style_mapper"
)

// StyleResolver restyles documents through the backend, falling back to the
// deterministic style table.
type StyleResolver struct {
	pipeline pipeline
}

// NewStyleResolver creates a resolver that asks generator for restyled documents.
func NewStyleResolver(generator Generator, logger *zap.Logger) *StyleResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StyleResolver{pipeline: newPipeline("style", generator, logger.Named("StyleResolver"))}
}

// ResolveStyle always returns a usable document.
func (r *StyleResolver) ResolveStyle(ctx context.Context, doc scene.Document, targetStyle string, options map[string]any) scene.Document {
	base := doc.Clone()
	params := ParamsFromOptions(options, DefaultStyleMaxTokens)

	result, o := r.pipeline.attempt(ctx, base, func() (string, error) {
		return prompt.BuildStylePrompt(base, targetStyle, options)
	}, params)
	r.pipeline.record(o)

	if o.succeeded() {
		r.pipeline.settle(base, result)
		if _, has := result["style"]; !has {
			result["style"] = targetStyle
		}
		mergeEnrichment(result, targetStyle)
		if o == outcomeRepaired {
			result.AppendAssumption(TagStyleRepaired)
		} else {
			result.AppendAssumption(TagStyleResolved)
		}
		return result
	}

	fallback := transform.ApplyStyle(base, targetStyle)
	fallback.AppendAssumption(styleFallbackTag(o))
	return fallback
}

// mergeEnrichment adds enrichedBy and targetStyle, keeping other metadata keys.
func mergeEnrichment(doc scene.Document, targetStyle string) {
	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		doc["metadata"] = meta
	}
	meta["enrichedBy"] = ResolverSource
	meta["targetStyle"] = targetStyle
}

func styleFallbackTag(o outcome) string {
	switch o {
	case outcomeNoJSON:
		return TagStyleMapperApplied
	case outcomeFailedRepair:
		return TagFallbackAfterFailedFix
	default:
		return TagFallbackOnException
	}
}
