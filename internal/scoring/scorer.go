// Package scoring computes heuristic match scores from intent conditions.
// It is pure computation: no I/O, no suspension.
package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relaylabs/leadmatch/internal/model"
)

// SimilaritySignal carries an externally-computed text similarity score
// into the heuristic combination.
type SimilaritySignal struct {
	Explanation string
	Score       float64
}

// Weights control how the signal groups combine into the composite score.
type Weights struct {
	Similarity float64
	Keyword    float64
	Required   float64
	Preferred  float64
}

// Default weight tables. When a signal group is absent for an intent its
// weight is dropped and the remainder renormalized.
var (
	weightsWithSimilarity    = Weights{Similarity: 0.30, Keyword: 0.30, Required: 0.25, Preferred: 0.15}
	weightsWithoutSimilarity = Weights{Keyword: 0.40, Required: 0.35, Preferred: 0.25}
)

// Breakdown is the per-signal result of heuristic scoring.
type Breakdown struct {
	Matched        []string
	Missing        []string
	Required       float64
	Preferred      float64
	Keyword        float64
	Similarity     float64
	Composite      float64
	HasSimilarity  bool
	RequiredFailed bool
}

// Score evaluates a profile against an intent's conditions and keywords.
// Required conditions are AND-strict: a single failure forces the
// composite to zero regardless of the other signals. Intents with no
// conditions at all fall back to a description overlap heuristic.
func Score(intent model.Intent, profile model.Profile, sim *SimilaritySignal) Breakdown {
	var b Breakdown
	if sim != nil {
		b.HasSimilarity = true
		b.Similarity = clamp01(sim.Score)
	}

	if !intent.HasConditions() {
		b.Keyword = descriptionOverlap(intent.Description, profile)
		b.Composite = b.Keyword
		if b.HasSimilarity {
			b.Composite = clamp01(0.5*b.Keyword + 0.5*b.Similarity)
		}
		return b
	}

	flattened := profile.FlattenedText()

	// Required: fail-fast, no averaging.
	if len(intent.Required) > 0 {
		for i := range intent.Required {
			cond := &intent.Required[i]
			if evalCondition(cond, profile, flattened) {
				b.Matched = append(b.Matched, describeCondition(cond))
			} else {
				b.Missing = append(b.Missing, describeCondition(cond))
				b.RequiredFailed = true
			}
		}
		if b.RequiredFailed {
			b.Composite = 0
			return b
		}
		b.Required = 1.0
	}

	// Preferred: partial credit.
	if len(intent.Preferred) > 0 {
		satisfied := 0
		for i := range intent.Preferred {
			cond := &intent.Preferred[i]
			if evalCondition(cond, profile, flattened) {
				satisfied++
				b.Matched = append(b.Matched, describeCondition(cond))
			} else {
				b.Missing = append(b.Missing, describeCondition(cond))
			}
		}
		b.Preferred = float64(satisfied) / float64(len(intent.Preferred))
	}

	// Keywords: containment fraction over the flattened profile text.
	// Blank keywords carry no signal and count for neither side.
	if keywords := nonBlank(intent.Keywords); len(keywords) > 0 {
		found := 0
		for _, kw := range keywords {
			if strings.Contains(flattened, strings.ToLower(kw)) {
				found++
				b.Matched = append(b.Matched, "keyword "+kw)
			} else {
				b.Missing = append(b.Missing, "keyword "+kw)
			}
		}
		b.Keyword = float64(found) / float64(len(keywords))
	}

	b.Composite = combine(intent, &b)
	return b
}

// combine applies the weight table over the signal groups the intent
// actually carries, renormalizing over the present weights.
func combine(intent model.Intent, b *Breakdown) float64 {
	w := weightsWithoutSimilarity
	if b.HasSimilarity {
		w = weightsWithSimilarity
	}

	var sum, total float64
	if b.HasSimilarity {
		sum += w.Similarity * b.Similarity
		total += w.Similarity
	}
	if len(nonBlank(intent.Keywords)) > 0 {
		sum += w.Keyword * b.Keyword
		total += w.Keyword
	}
	if len(intent.Required) > 0 {
		sum += w.Required * b.Required
		total += w.Required
	}
	if len(intent.Preferred) > 0 {
		sum += w.Preferred * b.Preferred
		total += w.Preferred
	}

	if total == 0 {
		return 0
	}
	return clamp01(sum / total)
}

// nonBlank drops empty and whitespace-only keywords.
func nonBlank(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// evalCondition checks a single condition against the profile.
func evalCondition(cond *model.Condition, profile model.Profile, flattened string) bool {
	value, ok := profile.Attribute(cond.Field)
	if !ok {
		// Tags are addressable as a pseudo-field; anything else falls
		// back to the flattened text for containment operators.
		switch cond.Field {
		case "tags":
			value = strings.Join(profile.Tags, ", ")
		default:
			if cond.Operator == model.OpContains || cond.Operator == model.OpContainsAny {
				value = flattened
			} else {
				return false
			}
		}
	}

	switch cond.Operator {
	case model.OpEquals:
		if fn, fok := toFloat(value); fok {
			if fc, cok := toFloat(cond.Value); cok {
				return fn == fc
			}
		}
		return strings.EqualFold(strings.TrimSpace(toString(value)), strings.TrimSpace(toString(cond.Value)))
	case model.OpContains:
		return strings.Contains(strings.ToLower(toString(value)), strings.ToLower(toString(cond.Value)))
	case model.OpContainsAny:
		haystack := strings.ToLower(toString(value))
		for _, needle := range splitValues(cond.Value) {
			if needle != "" && strings.Contains(haystack, strings.ToLower(needle)) {
				return true
			}
		}
		return false
	case model.OpGreaterThan, model.OpGreaterOrEqual, model.OpLessThan, model.OpLessOrEqual:
		fv, vok := toFloat(value)
		fc, cok := toFloat(cond.Value)
		if !vok || !cok {
			return false
		}
		switch cond.Operator {
		case model.OpGreaterThan:
			return fv > fc
		case model.OpGreaterOrEqual:
			return fv >= fc
		case model.OpLessThan:
			return fv < fc
		default:
			return fv <= fc
		}
	case model.OpRange:
		fv, vok := toFloat(value)
		if !vok {
			return false
		}
		if cond.Min != nil && fv < *cond.Min {
			return false
		}
		if cond.Max != nil && fv > *cond.Max {
			return false
		}
		return true
	}

	return false
}

// descriptionOverlap is the coarse fallback when an intent has no
// structured conditions: the fraction of meaningful description tokens
// present in the profile's flattened text.
func descriptionOverlap(description string, profile model.Profile) float64 {
	tokens := tokenize(description)
	if len(tokens) == 0 {
		return 0
	}

	flattened := profile.FlattenedText()
	found := 0
	for _, tok := range tokens {
		if strings.Contains(flattened, tok) {
			found++
		}
	}
	return float64(found) / float64(len(tokens))
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func describeCondition(cond *model.Condition) string {
	if cond.Operator == model.OpRange {
		switch {
		case cond.Min != nil && cond.Max != nil:
			return fmt.Sprintf("%s in [%g, %g]", cond.Field, *cond.Min, *cond.Max)
		case cond.Min != nil:
			return fmt.Sprintf("%s >= %g", cond.Field, *cond.Min)
		default:
			return fmt.Sprintf("%s <= %g", cond.Field, *cond.Max)
		}
	}
	return fmt.Sprintf("%s %s %v", cond.Field, cond.Operator, cond.Value)
}

func splitValues(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, toString(item))
		}
		return out
	case string:
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return []string{toString(v)}
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
