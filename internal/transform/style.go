package transform

import (
	"math"
	"strings"

	"llama-stylist/internal/scene"
)

const defaultGlow = 0.5

// StyleConfig holds the environment overrides and entity defaults of one style.
type StyleConfig struct {
	Preset       string
	Fog          float64
	SkyColor     string
	AmbientLight float64

	EntitySpeed float64
	// EntityGlow multiplies the existing entity glow.
	EntityGlow  float64
	EntityColor string
}

var styleTable = map[string]StyleConfig{
	scene.StyleEthereal: {
		Preset: "dusk", Fog: 0.4, SkyColor: "#a6d8ff", AmbientLight: 0.9,
		EntitySpeed: 1.0, EntityGlow: 0.7, EntityColor: "#ffffff",
	},
	scene.StyleCyberpunk: {
		Preset: "night", Fog: 0.2, SkyColor: "#001133", AmbientLight: 0.4,
		EntitySpeed: 2.0, EntityGlow: 1.0, EntityColor: "#00ffff",
	},
	scene.StyleSurreal: {
		Preset: "void", Fog: 0.6, SkyColor: "#2d1a4a", AmbientLight: 0.6,
		EntitySpeed: 1.5, EntityGlow: 0.9, EntityColor: "#ff0080",
	},
	scene.StyleFantasy: {
		Preset: "dawn", Fog: 0.3, SkyColor: "#ffb347", AmbientLight: 1.1,
		EntitySpeed: 0.8, EntityGlow: 0.6, EntityColor: "#ffd700",
	},
	scene.StyleNightmare: {
		Preset: "night", Fog: 0.7, SkyColor: "#1a0d1a", AmbientLight: 0.2,
		EntitySpeed: 0.6, EntityGlow: 0.3, EntityColor: "#800020",
	},
}

// LookupStyle resolves a style name case-insensitively. Unknown names resolve
// to ethereal with known=false.
func LookupStyle(name string) (key string, cfg StyleConfig, known bool) {
	key = strings.ToLower(strings.TrimSpace(name))
	if cfg, ok := styleTable[key]; ok {
		return key, cfg, true
	}
	return scene.StyleEthereal, styleTable[scene.StyleEthereal], false
}

// ApplyStyle restyles a copy of doc from the style table.
// Colors and environment are idempotent; glow is multiplied on every call.
func ApplyStyle(doc scene.Document, styleName string) scene.Document {
	out := doc.Clone()
	out.EnsureContainers()
	key, cfg, known := LookupStyle(styleName)

	env, ok := out["environment"].(map[string]any)
	if !ok {
		env = map[string]any{}
		out["environment"] = env
	}
	env["preset"] = cfg.Preset
	env["fog"] = cfg.Fog
	env["skyColor"] = cfg.SkyColor
	env["ambientLight"] = cfg.AmbientLight
	// Unknown names store the ethereal key they resolved to, never the raw name.
	out["style"] = key

	for _, params := range entityParams(out) {
		params["color"] = cfg.EntityColor
		glow, ok := scene.Number(params["glow"])
		if !ok {
			glow = defaultGlow
		}
		params["glow"] = math.Min(1.0, glow*cfg.EntityGlow)
		if _, has := params["speed"]; !has {
			params["speed"] = cfg.EntitySpeed
		}
	}

	if !known {
		out.AppendAssumption("style_defaulted_to_ethereal:" + styleName)
	}
	out.AppendAssumption("Deterministic style mapping applied -> " + key)
	return out
}
