package judge

import (
	"encoding/json"
	"hash/fnv"
	"strings"

	"github.com/relaylabs/leadmatch/internal/model"
)

const systemPrompt = `You are a matching analyst. You are given a buyer intent and a
candidate profile, both as JSON. Judge how well the profile satisfies the intent.

Respond with ONLY a JSON object in this exact format:
{
  "score": 0.85,
  "confidence": 0.9,
  "matched_aspects": ["aspect one", "aspect two"],
  "missing_aspects": ["aspect three"],
  "explanation": "one or two sentences"
}

Rules:
- score is between 0.0 (no match) and 1.0 (perfect match)
- confidence is between 0.0 and 1.0 and reflects how certain you are
- matched_aspects lists intent requirements the profile satisfies
- missing_aspects lists intent requirements the profile lacks
- keep the explanation short and concrete
- do not include any text outside the JSON object`

// Two phrasings of the user prompt. Which one an owner gets is stable
// across runs so their judgment scores stay comparable over time.
var userTemplates = []string{
	`Evaluate this candidate profile against the buyer intent.

Intent:
{{INTENT_JSON}}

Profile:
{{PROFILE_JSON}}

Return your judgment as JSON.`,

	`A buyer posted the following intent:
{{INTENT_JSON}}

A candidate has this profile:
{{PROFILE_JSON}}

How well does the candidate satisfy the intent? Return your judgment as JSON.`,
}

// promptVariant picks a user-prompt template for an owner. The choice is a
// stable hash of the owner ID so repeat runs use the same phrasing.
func promptVariant(ownerID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ownerID))
	return int(h.Sum32()) % len(userTemplates)
}

// buildUserPrompt renders the owner's template with the intent and profile
// serialized as JSON.
func buildUserPrompt(intent *model.Intent, profile *model.Profile) string {
	intentJSON, err := json.MarshalIndent(intentPromptView(intent), "", "  ")
	if err != nil {
		intentJSON = []byte(intent.Description)
	}
	profileJSON, err := json.MarshalIndent(profilePromptView(profile), "", "  ")
	if err != nil {
		profileJSON = []byte(profile.FlattenedText())
	}

	tmpl := userTemplates[promptVariant(intent.OwnerID)]
	prompt := strings.ReplaceAll(tmpl, "{{INTENT_JSON}}", string(intentJSON))
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_JSON}}", string(profileJSON))
	return prompt
}

// intentPromptView trims the intent to the fields a judgment needs. Owner
// and bookkeeping fields never reach the provider.
func intentPromptView(intent *model.Intent) map[string]any {
	view := map[string]any{
		"description": intent.Description,
	}
	if len(intent.Keywords) > 0 {
		view["keywords"] = intent.Keywords
	}
	if len(intent.Required) > 0 {
		view["required_conditions"] = conditionViews(intent.Required)
	}
	if len(intent.Preferred) > 0 {
		view["preferred_conditions"] = conditionViews(intent.Preferred)
	}
	return view
}

func conditionViews(conditions []model.Condition) []map[string]any {
	views := make([]map[string]any, 0, len(conditions))
	for _, c := range conditions {
		view := map[string]any{
			"field":    c.Field,
			"operator": string(c.Operator),
		}
		if c.Value != nil {
			view["value"] = c.Value
		}
		if c.Min != nil {
			view["min"] = *c.Min
		}
		if c.Max != nil {
			view["max"] = *c.Max
		}
		views = append(views, view)
	}
	return views
}

func profilePromptView(profile *model.Profile) map[string]any {
	view := map[string]any{}
	if len(profile.Attributes) > 0 {
		view["attributes"] = profile.Attributes
	}
	if len(profile.Tags) > 0 {
		view["tags"] = profile.Tags
	}
	return view
}
