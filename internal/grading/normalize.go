package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/samber/lo"
)

var (
	correctKeys  = []string{"isCorrect", "is_correct", "correct"}
	bonusKeys    = []string{"bonusCorrect", "isBonusCorrect", "bonus_correct"}
	logicKeys    = []string{"logicEquation", "logicExpression", "logic_equation"}
	adviceKeys   = []string{"advice", "feedback"}
	labelKeys    = []string{"detectedComponents", "detectedLabels", "detected_labels"}
	modelKeys    = []string{"ai_model", "model"}
	providerKeys = []string{"ai_provider", "provider"}
)

// NormalizeJSON decodes a raw grader payload. Only a payload that is not a
// JSON object is an error; individual fields are coerced by Normalize.
func NormalizeJSON(raw []byte, defaultProvider, defaultModel string) (*models.AnalysisResult, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed grader payload: %w", err)
	}
	result := Normalize(payload, defaultProvider, defaultModel)
	result.Raw = append(json.RawMessage(nil), raw...)
	return result, nil
}

// Normalize coerces absent or mistyped flags to false and absent lists to
// empty.
func Normalize(payload map[string]interface{}, defaultProvider, defaultModel string) *models.AnalysisResult {
	result := &models.AnalysisResult{
		IsCorrect:          asBool(lookup(payload, correctKeys)),
		BonusCorrect:       asBool(lookup(payload, bonusKeys)),
		LogicEquation:      asString(lookup(payload, logicKeys)),
		Advice:             asString(lookup(payload, adviceKeys)),
		DetectedComponents: asStrings(lookup(payload, labelKeys)),
		Confidence:         asFloat(payload["confidence"]),
		Provider:           NormalizeProvider(asString(lookup(payload, providerKeys)), defaultProvider),
		Model:              asString(lookup(payload, modelKeys)),
	}
	if result.Model == "" {
		result.Model = defaultModel
	}
	return result
}

// NormalizeProvider upper-cases the provider tag, falling back to fallback
// and then to GEMINI.
func NormalizeProvider(provider, fallback string) string {
	provider = strings.ToUpper(strings.TrimSpace(provider))
	if provider == "" {
		provider = strings.ToUpper(strings.TrimSpace(fallback))
	}
	if provider == "" {
		return models.DefaultAIProvider
	}
	return provider
}

func lookup(payload map[string]interface{}, keys []string) interface{} {
	for _, key := range keys {
		if v, ok := payload[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func asFloat(v interface{}) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

func asStrings(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	labels := lo.FilterMap(items, func(item interface{}, _ int) (string, bool) {
		var s string
		switch t := item.(type) {
		case string:
			s = t
		case map[string]interface{}:
			// {"name": "..."} shaped detections
			s = asString(t["name"])
		case nil:
			return "", false
		default:
			s = fmt.Sprint(t)
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	})
	return lo.Uniq(labels)
}
