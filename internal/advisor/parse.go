package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"adpilot/internal/types"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// adviceSchema is enforced before any model output is accepted, so a
// hallucinated strategy label or stringified numbers never reach persistence.
const adviceSchema = `{
  "type": "object",
  "required": ["analysis", "strategy", "reasoning"],
  "properties": {
    "analysis": {"type": "string", "minLength": 1},
    "strategy": {"type": "string", "enum": ["GROWTH", "PROFIT", "MAINTAIN"]},
    "suggested_target_roas": {"type": "number", "exclusiveMinimum": 0},
    "suggested_budget_multiplier": {"type": "number", "exclusiveMinimum": 0},
    "reasoning": {"type": "string", "minLength": 1}
  }
}`

var compiledAdviceSchema = jsonschema.MustCompileString("advice.json", adviceSchema)

// ParseAdvice extracts the advice JSON object from raw model output, which
// may be wrapped in markdown fences or prose, validates it against the
// schema and maps it onto Advice.
func ParseAdvice(raw string) (Advice, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return Advice{}, fmt.Errorf("no JSON object in advisor output")
	}
	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return Advice{}, fmt.Errorf("advisor output is not valid JSON: %w", err)
	}
	if err := compiledAdviceSchema.Validate(doc); err != nil {
		return Advice{}, fmt.Errorf("advisor output failed schema validation: %w", err)
	}
	adv := Advice{
		Analysis:  gjson.Get(payload, "analysis").String(),
		Strategy:  types.Strategy(gjson.Get(payload, "strategy").String()),
		Reasoning: gjson.Get(payload, "reasoning").String(),
	}
	if v := gjson.Get(payload, "suggested_target_roas"); v.Exists() {
		f := v.Float()
		adv.SuggestedTargetROAS = &f
	}
	if v := gjson.Get(payload, "suggested_budget_multiplier"); v.Exists() {
		f := v.Float()
		adv.SuggestedBudgetMultiplier = &f
	}
	return adv, nil
}

// extractJSONObject returns the first balanced top-level JSON object in text,
// stripping markdown code fences beforehand. Brace balancing ignores braces
// inside string literals.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
