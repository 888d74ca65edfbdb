package scene

import "fmt"

// Validation error codes.
const (
	CodeNotObject                  = "document_not_object"
	CodeCinematographyNotObject    = "cinematography_not_object"
	CodeCinematographyMissingParts = "cinematography_missing_duration_or_shots"
	CodeCinematographyShotsInvalid = "cinematography_shots_invalid"
)

var requiredFields = []string{"id", "title", "style"}

// Validate checks doc against the minimal structural rules and returns the
// error codes in a stable order. ok is true iff no code was emitted.
func Validate(doc any) (bool, []string) {
	m, isMap := asMap(doc)
	if !isMap {
		return false, []string{CodeNotObject}
	}

	errs := []string{}
	for _, field := range requiredFields {
		if _, ok := m[field]; !ok {
			errs = append(errs, "missing_required:"+field)
		}
	}

	if style, ok := m["style"]; ok {
		if s, isStr := style.(string); !isStr || !IsAllowedStyle(s) {
			errs = append(errs, fmt.Sprintf("invalid_style:%v", style))
		}
	}

	if raw, ok := m["cinematography"]; ok {
		c, isMap := raw.(map[string]any)
		switch {
		case !isMap:
			errs = append(errs, CodeCinematographyNotObject)
		case !hasKeys(c, "durationSec", "shots"):
			errs = append(errs, CodeCinematographyMissingParts)
		default:
			if shots, isList := c["shots"].([]any); !isList || len(shots) == 0 {
				errs = append(errs, CodeCinematographyShotsInvalid)
			}
		}
	}

	return len(errs) == 0, errs
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case Document:
		return t, t != nil
	case map[string]any:
		return t, t != nil
	default:
		return nil, false
	}
}

func hasKeys(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
