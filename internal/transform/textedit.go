package transform

import (
	"fmt"
	"math"
	"strings"
	"time"

	"llama-stylist/internal/scene"
)

// Structure templates inserted by the text-edit rules.
const (
	TemplateIsland = "floating_island"
	TemplateTower  = "crystal_tower"
)

// Policy sources recorded in patchHistory.
const (
	SourceSafePatch = "safe_patch"
	SourceLocalStub = "local_stub"
)

const (
	baseSpeed   = 1.0
	fasterRatio = 1.5
	maxSpeed    = 10.0
	slowerRatio = 0.7
	minSpeed    = 0.01
	islandScale = 0.8
	towerScale  = 1.1
)

type namedColor struct {
	name string
	hex  string
}

// colorKeywords are checked in this order; the last match wins.
var colorKeywords = []namedColor{
	{"red", "#ff0000"},
	{"blue", "#0000ff"},
	{"green", "#00ff00"},
	{"yellow", "#ffff00"},
	{"purple", "#800080"},
	{"pink", "#ff69b4"},
	{"orange", "#ffa500"},
	{"white", "#ffffff"},
	{"black", "#000000"},
	{"gold", "#ffd700"},
	{"cyan", "#00ffff"},
}

var (
	fasterKeywords = []string{"faster", "speed up", "quick"}
	slowerKeywords = []string{"slower", "calm", "gentle"}
)

// EditPolicy selects how the text-edit transform places new structures and
// which source it records in patchHistory.
type EditPolicy struct {
	Source string
	// Place returns the [x, y, z] position for a new structure of the given template.
	Place func(template string) []any
}

// SafePolicy places structures at fixed positions. It is the guaranteed fallback.
var SafePolicy = EditPolicy{
	Source: SourceSafePatch,
	Place: func(template string) []any {
		if template == TemplateTower {
			return []any{0.0, 10.0, 0.0}
		}
		return []any{0.0, 15.0, 0.0}
	},
}

// StubPolicy places structures at random positions inside per-template boxes.
// rnd must return values in [0, 1).
func StubPolicy(rnd func() float64) EditPolicy {
	between := func(lo, hi float64) float64 { return lo + rnd()*(hi-lo) }
	return EditPolicy{
		Source: SourceLocalStub,
		Place: func(template string) []any {
			if template == TemplateTower {
				return []any{between(-20, 20), between(10, 30), between(-20, 20)}
			}
			return []any{between(-30, 30), between(15, 20), between(-30, 30)}
		},
	}
}

// ApplyTextEdit applies keyword-driven edits to a copy of doc.
// Reapplying the same text reapplies every rule.
func ApplyTextEdit(doc scene.Document, editText string, policy EditPolicy) scene.Document {
	return applyTextEditAt(doc, editText, policy, time.Now())
}

func applyTextEditAt(doc scene.Document, editText string, policy EditPolicy, now time.Time) scene.Document {
	out := doc.Clone()
	out.EnsureContainers()
	edit := strings.ToLower(editText)
	var applied []string

	for _, c := range colorKeywords {
		if !strings.Contains(edit, c.name) {
			continue
		}
		for _, params := range entityParams(out) {
			params["color"] = c.hex
		}
		if env, ok := out["environment"].(map[string]any); ok && len(env) > 0 {
			env["skyColor"] = c.hex
		}
		applied = append(applied, "color:"+c.name)
	}

	if wantsAddition(edit, "island") {
		addStructure(out, "added_island", TemplateIsland, islandScale, policy, now)
		applied = append(applied, "added_island")
	}
	if wantsAddition(edit, "tower") {
		addStructure(out, "added_tower", TemplateTower, towerScale, policy, now)
		applied = append(applied, "added_tower")
	}

	if containsAny(edit, fasterKeywords) {
		scaleSpeed(out, func(s float64) float64 { return math.Min(maxSpeed, s*fasterRatio) })
		applied = append(applied, "increased_speed")
	}
	if containsAny(edit, slowerKeywords) {
		scaleSpeed(out, func(s float64) float64 { return math.Max(minSpeed, s*slowerRatio) })
		applied = append(applied, "decreased_speed")
	}

	if len(applied) == 0 {
		out.AppendAssumption(`Requested edit recorded: "` + editText + `"`)
	} else {
		out.AppendAssumption(policy.Source + "_applied:" + strings.Join(applied, ","))
	}
	out.AppendPatchHistory(editText, policy.Source, now)
	return out
}

func wantsAddition(edit, noun string) bool {
	return strings.Contains(edit, "add "+noun) || (strings.Contains(edit, "add") && strings.Contains(edit, noun))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func addStructure(doc scene.Document, idPrefix, template string, scale float64, policy EditPolicy, now time.Time) {
	structures, _ := doc["structures"].([]any)
	doc["structures"] = append(structures, map[string]any{
		"id":       fmt.Sprintf("%s_%d", idPrefix, now.Unix()),
		"template": template,
		"pos":      policy.Place(template),
		"scale":    scale,
		"features": []any{},
	})
}

func scaleSpeed(doc scene.Document, next func(float64) float64) {
	for _, params := range entityParams(doc) {
		speed, ok := scene.Number(params["speed"])
		if !ok {
			speed = baseSpeed
		}
		params["speed"] = next(speed)
	}
}

// entityParams returns the params mapping of every entity, creating it when absent.
func entityParams(doc scene.Document) []map[string]any {
	var out []map[string]any
	for _, entity := range doc.Entities() {
		params, ok := entity["params"].(map[string]any)
		if !ok {
			params = map[string]any{}
			entity["params"] = params
		}
		out = append(out, params)
	}
	return out
}
