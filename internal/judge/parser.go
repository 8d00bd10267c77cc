package judge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// rawJudgment mirrors the JSON shape providers are asked to return.
type rawJudgment struct {
	Explanation    string   `json:"explanation"`
	MatchedAspects []string `json:"matched_aspects"`
	MissingAspects []string `json:"missing_aspects"`
	Score          float64  `json:"score"`
	Confidence     float64  `json:"confidence"`
}

var (
	scorePattern      = regexp.MustCompile(`(?i)"?score"?\s*[:=]\s*(0?\.\d+|[01](?:\.0+)?)`)
	confidencePattern = regexp.MustCompile(`(?i)"?confidence"?\s*[:=]\s*(0?\.\d+|[01](?:\.0+)?)`)
)

// parseResponse turns raw provider text into a Result. Providers do not
// always follow the format instructions, so parsing walks a fallback
// chain: strict JSON, then the first balanced JSON object embedded in
// the text, then regex extraction of the score, then a neutral default.
func parseResponse(raw string, logger *slog.Logger) Result {
	cleaned := stripMarkdownFences(raw)

	if result, ok := parseJSON(cleaned, logger); ok {
		return result
	}

	if block := extractJSONBlock(cleaned); block != "" {
		if result, ok := parseJSON(block, logger); ok {
			return result
		}
	}

	if result, ok := parseWithRegex(cleaned, logger); ok {
		return result
	}

	logger.Warn("judgment response unparseable, using neutral default",
		"response_length", len(raw))
	return Result{
		Score:       0.5,
		Confidence:  0.3,
		Source:      SourceDefault,
		Explanation: "provider response could not be parsed",
	}
}

func parseJSON(text string, logger *slog.Logger) (Result, bool) {
	var raw rawJudgment
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Result{}, false
	}
	return Result{
		Score:          clampUnit(raw.Score, "score", logger),
		Confidence:     clampUnit(raw.Confidence, "confidence", logger),
		MatchedAspects: raw.MatchedAspects,
		MissingAspects: raw.MissingAspects,
		Explanation:    strings.TrimSpace(raw.Explanation),
		Source:         SourceJSON,
	}, true
}

// parseWithRegex salvages a score (and confidence, when present) from
// responses that wrap the JSON in prose or mangle it.
func parseWithRegex(text string, logger *slog.Logger) (Result, bool) {
	scoreMatch := scorePattern.FindStringSubmatch(text)
	if scoreMatch == nil {
		return Result{}, false
	}
	score, err := strconv.ParseFloat(scoreMatch[1], 64)
	if err != nil {
		return Result{}, false
	}

	confidence := 0.5
	if confMatch := confidencePattern.FindStringSubmatch(text); confMatch != nil {
		if c, err := strconv.ParseFloat(confMatch[1], 64); err == nil {
			confidence = c
		}
	}

	explanation := truncate(strings.TrimSpace(text), 280)

	logger.Debug("judgment parsed via regex fallback")
	return Result{
		Score:       clampUnit(score, "score", logger),
		Confidence:  clampUnit(confidence, "confidence", logger),
		Explanation: explanation,
		Source:      SourceRegex,
	}, true
}

// stripMarkdownFences removes a surrounding ```json ... ``` wrapper.
func stripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractJSONBlock returns the first balanced top-level {...} block, or
// empty when none exists.
func extractJSONBlock(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// truncate caps s at max bytes, backing up so a multi-byte rune is never
// split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func clampUnit(v float64, field string, logger *slog.Logger) float64 {
	if v < 0 {
		logger.Warn(fmt.Sprintf("judgment %s below range, clamping", field), "value", v)
		return 0
	}
	if v > 1 {
		logger.Warn(fmt.Sprintf("judgment %s above range, clamping", field), "value", v)
		return 1
	}
	return v
}
