package service

import (
	"context"
	"time"

	"llama-stylist/internal/prompt"
	"llama-stylist/internal/scene"

	"go.uber.org/zap"
)

// ResolverSource identifies backend-derived edits in patchHistory and metadata.
const ResolverSource = "llama-stylist"

// Audit tags shared by both resolvers.
const (
	TagFallbackOnException    = "fallback_on_exception"
	TagFallbackAfterFailedFix = "fallback_after_failed_repair"
)

// outcome is where an attempt to use the backend ended.
type outcome string

const (
	outcomeValid        outcome = "valid"
	outcomeRepaired     outcome = "repaired"
	outcomeNoJSON       outcome = "no_json"
	outcomeFailedRepair outcome = "failed_repair"
	outcomeException    outcome = "exception"
)

func (o outcome) succeeded() bool {
	return o == outcomeValid || o == outcomeRepaired
}

// pipeline runs ATTEMPT_LLM -> PARSE -> VALIDATE -> REPAIR for one request.
// The FALLBACK step belongs to the caller.
type pipeline struct {
	operation string
	generator Generator
	repair    func(scene.Document) scene.Document
	now       func() time.Time
	logger    *zap.Logger
}

func newPipeline(operation string, generator Generator, logger *zap.Logger) pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return pipeline{
		operation: operation,
		generator: generator,
		repair:    scene.Repair,
		now:       time.Now,
		logger:    logger,
	}
}

// attempt asks the backend for a document. A panic anywhere in the attempt
// ends it with outcomeException.
func (p pipeline) attempt(ctx context.Context, base scene.Document, build func() (string, error), params GenerationParams) (doc scene.Document, result outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Resolution attempt panicked", zap.String("operation", p.operation), zap.Any("panic", r))
			doc, result = nil, outcomeException
		}
	}()

	promptText, err := build()
	if err != nil {
		p.logger.Error("Failed to build prompt", zap.String("operation", p.operation), zap.Error(err))
		return nil, outcomeException
	}
	p.logger.Debug("Prompt built", zap.String("operation", p.operation), zap.Int("promptLength", len(promptText)))

	text, err := p.generator.Generate(ctx, promptText, params)
	if err != nil {
		p.logger.Error("Generation failed", zap.String("operation", p.operation), zap.Error(err))
		return nil, outcomeException
	}

	parsed, ok := prompt.ExtractJSON(text)
	if !ok {
		parsed, ok = prompt.ParseObject(text)
	}
	if !ok || !scene.LooksLikeScene(parsed) {
		p.logger.Warn("Backend did not return a scene document",
			zap.String("operation", p.operation),
			zap.Int("responseLength", len(text)),
		)
		return nil, outcomeNoJSON
	}

	// The base id is filled in before validation, so an answer that only
	// lacks an id counts as valid rather than repaired.
	if _, has := parsed["id"]; !has {
		if id, baseHas := base["id"]; baseHas {
			parsed["id"] = id
		}
	}

	valid, errs := scene.Validate(parsed)
	if valid {
		return parsed, outcomeValid
	}
	p.logger.Warn("Backend document failed validation, attempting repair",
		zap.String("operation", p.operation),
		zap.Strings("errors", errs),
	)

	repaired := p.repair(parsed)
	if valid, errs = scene.Validate(repaired); valid {
		return repaired, outcomeRepaired
	}
	p.logger.Warn("Repair failed, falling back to deterministic transform",
		zap.String("operation", p.operation),
		zap.Strings("errors", errs),
	)
	return nil, outcomeFailedRepair
}

// settle makes a backend-derived document keep the base audit trail and containers.
func (p pipeline) settle(base, doc scene.Document) {
	scene.MergeAudit(base, doc)
	doc.EnsureContainers()
}

func (p pipeline) record(result outcome) {
	resolutionsTotal.WithLabelValues(p.operation, string(result)).Inc()
	p.logger.Info("Resolution finished", zap.String("operation", p.operation), zap.String("outcome", string(result)))
}
