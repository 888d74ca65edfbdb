package scene

import (
	"encoding/json"
	"time"
)

// Document is a scene document decoded from JSON.
// Values are the generic encoding/json shapes: map[string]any, []any,
// float64, string, bool and nil.
type Document map[string]any

// Style values accepted by the validator.
const (
	StyleEthereal  = "ethereal"
	StyleCyberpunk = "cyberpunk"
	StyleSurreal   = "surreal"
	StyleFantasy   = "fantasy"
	StyleNightmare = "nightmare"
)

// AllowedStyles lists the style enum in declaration order.
var AllowedStyles = []string{StyleEthereal, StyleCyberpunk, StyleSurreal, StyleFantasy, StyleNightmare}

// IsAllowedStyle reports whether s belongs to the style enum.
func IsAllowedStyle(s string) bool {
	for _, allowed := range AllowedStyles {
		if s == allowed {
			return true
		}
	}
	return false
}

// HistoryTimeLayout is the UTC layout of patchHistory.appliedAt.
const HistoryTimeLayout = "2006-01-02T15:04:05Z"

// sceneKeys are the top-level keys that make a mapping look like a scene.
var sceneKeys = []string{"id", "title", "style", "environment", "structures", "entities", "cinematography", "render"}

// FromJSON decodes raw JSON into a Document.
func FromJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Clone returns a deep copy of the document. A nil document clones to an empty one.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Document:
		return map[string]any(t.Clone())
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	case []map[string]any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	case []string:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = inner
		}
		return s
	default:
		return v
	}
}

// LooksLikeScene reports whether doc carries at least one recognized scene key.
func LooksLikeScene(doc map[string]any) bool {
	for _, k := range sceneKeys {
		if _, ok := doc[k]; ok {
			return true
		}
	}
	return false
}

// EnsureContainers coerces structures, entities and assumptions to sequences.
// A scalar string assumption is kept as the only entry.
func (d Document) EnsureContainers() {
	for _, key := range []string{"structures", "entities"} {
		if _, ok := d[key].([]any); !ok {
			d[key] = []any{}
		}
	}
	d.EnsureAssumptionList()
}

// EnsureAssumptionList makes assumptions a sequence without touching other containers.
func (d Document) EnsureAssumptionList() {
	switch a := d["assumptions"].(type) {
	case []any:
	case string:
		d["assumptions"] = []any{a}
	default:
		d["assumptions"] = []any{}
	}
}

// AppendAssumption appends text to the assumptions audit trail.
func (d Document) AppendAssumption(text string) {
	list, _ := d["assumptions"].([]any)
	d["assumptions"] = append(list, text)
}

// AppendPatchHistory records an applied edit.
func (d Document) AppendPatchHistory(editText, source string, at time.Time) {
	list, _ := d["patchHistory"].([]any)
	d["patchHistory"] = append(list, map[string]any{
		"editText":  editText,
		"appliedAt": at.UTC().Format(HistoryTimeLayout),
		"source":    source,
	})
}

// Assumptions returns the assumption strings in order. Non-string entries are skipped.
func (d Document) Assumptions() []string {
	list, _ := d["assumptions"].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Structures returns the structure mappings in order.
func (d Document) Structures() []map[string]any {
	return mappings(d["structures"])
}

// Entities returns the entity mappings in order.
func (d Document) Entities() []map[string]any {
	return mappings(d["entities"])
}

func mappings(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// MergeAudit makes result keep every assumptions and patchHistory entry of base.
// A result whose trail already starts with the base trail is left alone,
// otherwise the trail becomes base followed by the result entries base lacks.
// A bare string trail counts as a single entry.
func MergeAudit(base, result Document) {
	for _, key := range []string{"assumptions", "patchHistory"} {
		baseList := auditList(base[key])
		if len(baseList) == 0 {
			continue
		}
		resList := auditList(result[key])
		if hasPrefix(resList, baseList) {
			result[key] = resList
			continue
		}
		merged := make([]any, 0, len(baseList)+len(resList))
		for _, v := range baseList {
			merged = append(merged, cloneValue(v))
		}
		merged = append(merged, subtract(resList, baseList)...)
		result[key] = merged
	}
}

func auditList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case string:
		return []any{t}
	}
	return nil
}

func hasPrefix(list, prefix []any) bool {
	if len(list) < len(prefix) {
		return false
	}
	for i := range prefix {
		if !sameJSON(list[i], prefix[i]) {
			return false
		}
	}
	return true
}

// subtract removes one occurrence of every prefix entry from list, keeping order.
func subtract(list, remove []any) []any {
	used := make([]bool, len(remove))
	out := make([]any, 0, len(list))
	for _, v := range list {
		matched := false
		for i, r := range remove {
			if !used[i] && sameJSON(v, r) {
				used[i] = true
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, v)
		}
	}
	return out
}

func sameJSON(a, b any) bool {
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}

// Number converts a JSON-decoded numeric value to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
