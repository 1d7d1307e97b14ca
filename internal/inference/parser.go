package inference

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkTags removes DeepSeek R1 reasoning tags from the response.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkTagRegex.ReplaceAllString(text, ""))
}

type chatAnswer struct {
	UpProbability *float64 `json:"up_probability"`
}

// ParseUpProbability extracts {"up_probability": p} from a model reply.
// Handles: bare JSON, markdown code fences, JSON embedded in prose.
func ParseUpProbability(text string) (float64, error) {
	cleaned := StripThinkTags(text)

	// Remove markdown code fences
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if p, ok := decodeAnswer(cleaned); ok {
		return p, nil
	}

	// Try extracting a single JSON object
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if p, ok := decodeAnswer(cleaned[start : end+1]); ok {
			return p, nil
		}
	}

	return 0, fmt.Errorf("failed to parse model response as JSON: %.200s", cleaned)
}

func decodeAnswer(s string) (float64, bool) {
	var a chatAnswer
	if err := json.Unmarshal([]byte(s), &a); err != nil || a.UpProbability == nil {
		return 0, false
	}
	p := *a.UpProbability
	if p < 0 || p > 1 {
		return 0, false
	}
	return p, true
}
