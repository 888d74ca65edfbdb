package service

import "encoding/json"

// responseShape recognizes one known backend response layout.
type responseShape struct {
	name    string
	extract func(body map[string]any) (string, bool)
}

// responseShapes are tried in priority order.
var responseShapes = []responseShape{
	{name: "text", extract: stringField("text")},
	{name: "output", extract: stringField("output")},
	{name: "choices.message.content", extract: func(body map[string]any) (string, bool) {
		choice, ok := firstChoice(body).(map[string]any)
		if !ok {
			return "", false
		}
		msg, ok := choice["message"].(map[string]any)
		if !ok {
			return "", false
		}
		return nonEmptyString(msg["content"])
	}},
	{name: "choices.text", extract: func(body map[string]any) (string, bool) {
		choice, ok := firstChoice(body).(map[string]any)
		if !ok {
			return "", false
		}
		return nonEmptyString(choice["text"])
	}},
	{name: "choices.string", extract: func(body map[string]any) (string, bool) {
		s, ok := firstChoice(body).(string)
		return s, ok
	}},
}

// decodeResponse turns a backend body into text. Non-JSON bodies are returned
// as-is; unknown JSON layouts are re-serialized.
func decodeResponse(body []byte) string {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}

	switch v := data.(type) {
	case map[string]any:
		for _, shape := range responseShapes {
			if text, ok := shape.extract(v); ok {
				return text
			}
		}
	case string:
		return v
	}

	out, err := json.Marshal(data)
	if err != nil {
		return string(body)
	}
	return string(out)
}

func stringField(key string) func(map[string]any) (string, bool) {
	return func(body map[string]any) (string, bool) {
		s, ok := body[key].(string)
		return s, ok
	}
}

func firstChoice(body map[string]any) any {
	choices, ok := body["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil
	}
	return choices[0]
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}
