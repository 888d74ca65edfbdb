package service

import (
	"context"

	"llama-stylist/internal/prompt"
	"llama-stylist/internal/scene"
	"llama-stylist/internal/transform"

	"go.uber.org/zap"
)

// Patch audit tags.
const (
	TagPatchResolved     = "patch_resolved_by_backend"
	TagPatchRepaired     = "auto-repaired after validation errors"
	TagPatchSafeFallback = "used_safe_fallback"
)

// PatchResolver applies free-text edits through the backend, falling back to
// the fixed-position text-edit transform.
type PatchResolver struct {
	pipeline pipeline
}

// NewPatchResolver creates a resolver that asks generator for patched documents.
func NewPatchResolver(generator Generator, logger *zap.Logger) *PatchResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatchResolver{pipeline: newPipeline("patch", generator, logger.Named("PatchResolver"))}
}

// ResolvePatch always returns a usable document. Every degradation is
// recorded in its assumptions.
func (r *PatchResolver) ResolvePatch(ctx context.Context, doc scene.Document, editText string, options map[string]any) scene.Document {
	base := doc.Clone()
	params := ParamsFromOptions(options, DefaultPatchMaxTokens)

	result, o := r.pipeline.attempt(ctx, base, func() (string, error) {
		return prompt.BuildPatchPrompt(base, editText, options)
	}, params)
	r.pipeline.record(o)

	if o.succeeded() {
		r.pipeline.settle(base, result)
		if o == outcomeRepaired {
			result.AppendAssumption(TagPatchRepaired)
		} else {
			result.AppendAssumption(TagPatchResolved)
		}
		result.AppendPatchHistory(editText, ResolverSource, r.pipeline.now())
		return result
	}

	fallback := transform.ApplyTextEdit(base, editText, transform.SafePolicy)
	fallback.AppendAssumption(patchFallbackTag(o))
	return fallback
}

func patchFallbackTag(o outcome) string {
	switch o {
	case outcomeNoJSON:
		return TagPatchSafeFallback
	case outcomeFailedRepair:
		return TagFallbackAfterFailedFix
	default:
		return TagFallbackOnException
	}
}
