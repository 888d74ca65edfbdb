package service

import (
	"encoding/json"

	"llama-stylist/internal/prompt"
	"llama-stylist/internal/transform"

	"go.uber.org/zap"
)

const (
	localStubError      = "local_stub_could_not_handle_prompt"
	promptStartMaxRunes = 400
)

type localDiagnostic struct {
	Error       string `json:"error"`
	PromptStart string `json:"promptStart"`
}

// localResolver answers prompts built by this service without a backend by
// parsing them back and running the deterministic transforms.
type localResolver struct {
	policy transform.EditPolicy
	logger *zap.Logger
}

func newLocalResolver(rnd func() float64, logger *zap.Logger) *localResolver {
	return &localResolver{policy: transform.StubPolicy(rnd), logger: logger}
}

// Resolve returns the transformed document as JSON text, or a diagnostic
// payload when the prompt is not recognized.
func (l *localResolver) Resolve(text string) string {
	parsed, ok := prompt.Parse(text)
	if !ok {
		l.logger.Warn("Local resolver could not parse prompt", zap.Int("promptLength", len(text)))
		return diagnostic(text)
	}

	var out any
	switch parsed.Kind {
	case prompt.KindPatch:
		out = transform.ApplyTextEdit(parsed.Base, parsed.Instruction, l.policy)
	case prompt.KindStyle:
		out = transform.ApplyStyle(parsed.Base, parsed.Instruction)
	}

	data, err := json.Marshal(out)
	if err != nil {
		l.logger.Error("Failed to encode locally resolved document", zap.Error(err))
		return diagnostic(text)
	}
	return string(data)
}

func diagnostic(text string) string {
	data, _ := json.Marshal(localDiagnostic{Error: localStubError, PromptStart: truncate(text, promptStartMaxRunes)})
	return string(data)
}
