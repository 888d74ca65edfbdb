package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"llama-stylist/internal/scene"
)

const (
	patchHeader = "You are an assistant that modifies an existing Dream Scene JSON. " +
		"Return ONLY the full patched JSON object with no commentary.\n\n"
	styleHeader = "You are a style-enrichment assistant. Given a Dream Scene JSON, " +
		"return the full JSON adjusted to match the requested style.\n" +
		"Respond with ONLY valid JSON (no commentary).\n\n"

	baseLabel        = "Base Dream JSON:"
	instructionLabel = "Edit Instruction:"
	styleLabel       = "Requested Style:"
	optionsLabel     = "Options:"
)

// Kind tells which request a prompt was built for.
type Kind string

const (
	KindPatch Kind = "patch"
	KindStyle Kind = "style"
)

// Parsed is a prompt recovered back into its parts.
type Parsed struct {
	Kind        Kind
	Base        scene.Document
	Instruction string
	Options     map[string]any
}

// BuildPatchPrompt renders the prompt for a free-text edit.
func BuildPatchPrompt(doc scene.Document, editText string, options map[string]any) (string, error) {
	quoted, err := marshalNoEscape(editText, false)
	if err != nil {
		return "", fmt.Errorf("failed to encode edit text: %w", err)
	}
	return build(patchHeader, doc, instructionLabel, quoted, options)
}

// BuildStylePrompt renders the prompt for a target style.
func BuildStylePrompt(doc scene.Document, style string, options map[string]any) (string, error) {
	return build(styleHeader, doc, styleLabel, style, options)
}

func build(header string, doc scene.Document, label, instruction string, options map[string]any) (string, error) {
	if doc == nil {
		doc = scene.Document{}
	}
	if options == nil {
		options = map[string]any{}
	}
	base, err := marshalNoEscape(doc, true)
	if err != nil {
		return "", fmt.Errorf("failed to encode base document: %w", err)
	}
	opts, err := marshalNoEscape(options, false)
	if err != nil {
		return "", fmt.Errorf("failed to encode options: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString(baseLabel + "\n" + base + "\n\n")
	sb.WriteString(label + "\n" + instruction + "\n\n")
	sb.WriteString(optionsLabel + "\n" + opts)
	return sb.String(), nil
}

// marshalNoEscape encodes v without HTML escaping so the backend sees the text as written.
func marshalNoEscape(v any, indent bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

var (
	// A quoted instruction is matched as a whole JSON string so that label
	// text inside it cannot end the group early.
	quotedInstruction = `"(?:[^"\\]|\\.)*"`

	fullPromptPattern = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(baseLabel) +
		`\s*(\{.*\})\s*(` + regexp.QuoteMeta(instructionLabel) + `|` + regexp.QuoteMeta(styleLabel) +
		`)\s*(` + quotedInstruction + `|.*?)\s*` + regexp.QuoteMeta(optionsLabel) + `\s*(\{.*\})\s*$`)
	barePromptPattern = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(baseLabel) +
		`\s*(\{.*\})\s*(` + regexp.QuoteMeta(instructionLabel) + `|` + regexp.QuoteMeta(styleLabel) +
		`)\s*(` + quotedInstruction + `|.*?)\s*$`)
)

// Parse recovers the base document and instruction from a prompt produced by
// BuildPatchPrompt or BuildStylePrompt. ok is false for any other text.
func Parse(text string) (Parsed, bool) {
	var base, label, instruction, options string
	if m := fullPromptPattern.FindStringSubmatch(text); m != nil {
		base, label, instruction, options = m[1], m[2], m[3], m[4]
	} else if m := barePromptPattern.FindStringSubmatch(text); m != nil {
		base, label, instruction = m[1], m[2], m[3]
	} else {
		return Parsed{}, false
	}

	doc, ok := ParseObject(base)
	if !ok {
		return Parsed{}, false
	}

	parsed := Parsed{Base: doc, Options: map[string]any{}}
	if options != "" {
		if opts, ok := ParseObject(options); ok {
			parsed.Options = opts
		}
	}

	if label == instructionLabel {
		parsed.Kind = KindPatch
		parsed.Instruction = unquoteInstruction(instruction)
	} else {
		parsed.Kind = KindStyle
		parsed.Instruction = strings.Trim(strings.TrimSpace(instruction), `"`)
	}
	if parsed.Instruction == "" {
		return Parsed{}, false
	}
	return parsed, true
}

func unquoteInstruction(s string) string {
	s = strings.TrimSpace(s)
	var out string
	if strings.HasPrefix(s, `"`) && json.Unmarshal([]byte(s), &out) == nil {
		return out
	}
	return strings.Trim(s, `"`)
}
