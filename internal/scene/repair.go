package scene

import (
	"fmt"
	"time"
)

// Repair defaults.
const (
	RepairedTitle      = "Repaired Dream"
	RepairedAssumption = "auto_repaired_missing_fields"
	DefaultDurationSec = 30.0
	defaultShotTarget  = "s1"
	establishShotType  = "establish"
)

// Repair returns a copy of doc with the required fields and cinematography
// filled in. It never fails; the result is expected, not verified, to pass Validate.
func Repair(doc Document) Document {
	return repairAt(doc, time.Now())
}

func repairAt(doc Document, now time.Time) Document {
	out := doc.Clone()

	if _, ok := out["id"]; !ok {
		out["id"] = fmt.Sprintf("repaired_%d", now.Unix())
	}
	if _, ok := out["title"]; !ok {
		out["title"] = RepairedTitle
	}
	if s, ok := out["style"].(string); !ok || !IsAllowedStyle(s) {
		out["style"] = StyleEthereal
	}

	for _, key := range []string{"structures", "entities"} {
		if _, ok := out[key].([]any); !ok {
			out[key] = []any{}
		}
	}

	c, ok := out["cinematography"].(map[string]any)
	if !ok {
		out["cinematography"] = map[string]any{
			"durationSec": DefaultDurationSec,
			"shots":       []any{establishShot(out, DefaultDurationSec)},
		}
	} else {
		// durationSec comes from the shots as they were before any shot repair.
		if _, has := c["durationSec"]; !has {
			c["durationSec"] = sumShotDurations(c["shots"])
		}
		if shots, isList := c["shots"].([]any); !isList || len(shots) == 0 {
			duration, isNum := Number(c["durationSec"])
			if !isNum {
				duration = DefaultDurationSec
			}
			c["shots"] = []any{establishShot(out, duration)}
		}
	}

	out.EnsureAssumptionList()
	out.AppendAssumption(RepairedAssumption)
	return out
}

func establishShot(doc Document, duration float64) map[string]any {
	return map[string]any{
		"type":     establishShotType,
		"target":   firstStructureID(doc),
		"duration": duration,
	}
}

func firstStructureID(doc Document) string {
	list, _ := doc["structures"].([]any)
	if len(list) == 0 {
		return defaultShotTarget
	}
	if first, ok := list[0].(map[string]any); ok {
		if id, ok := first["id"].(string); ok && id != "" {
			return id
		}
	}
	return defaultShotTarget
}

// sumShotDurations adds up numeric shot durations, 30 when the total is zero.
func sumShotDurations(v any) float64 {
	shots, _ := v.([]any)
	total := 0.0
	for _, s := range shots {
		shot, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if d, ok := Number(shot["duration"]); ok {
			total += d
		}
	}
	if total == 0 {
		return DefaultDurationSec
	}
	return total
}
