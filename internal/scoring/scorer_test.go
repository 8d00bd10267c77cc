package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaylabs/leadmatch/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func testProfile() model.Profile {
	return model.Profile{
		ID:      "p1",
		OwnerID: "o1",
		Attributes: map[string]any{
			"skills":     "Python, Go, SQL",
			"experience": 5,
			"city":       "Berlin",
			"salary":     85000,
		},
		Tags: []string{"remote", "senior"},
	}
}

func TestRequiredConditionsSatisfied(t *testing.T) {
	// Intent requires skills containing "Python" and experience >= 3;
	// the profile has Python and 5 years.
	intent := model.Intent{
		ID:      "i1",
		OwnerID: "o1",
		Required: []model.Condition{
			{Field: "skills", Operator: model.OpContains, Value: "Python"},
			{Field: "experience", Operator: model.OpGreaterOrEqual, Value: 3},
		},
		Threshold: 0.5,
	}

	b := Score(intent, testProfile(), nil)
	assert.Equal(t, 1.0, b.Required)
	assert.False(t, b.RequiredFailed)
	assert.Equal(t, 1.0, b.Composite)
	assert.Len(t, b.Matched, 2)
}

func TestRequiredFailureForcesZero(t *testing.T) {
	// A single failing required condition zeroes the composite even when
	// every preferred condition and keyword matches.
	intent := model.Intent{
		ID:      "i1",
		OwnerID: "o1",
		Required: []model.Condition{
			{Field: "skills", Operator: model.OpContains, Value: "Rust"},
		},
		Preferred: []model.Condition{
			{Field: "city", Operator: model.OpEquals, Value: "Berlin"},
		},
		Keywords: []string{"python", "remote"},
	}

	b := Score(intent, testProfile(), nil)
	assert.True(t, b.RequiredFailed)
	assert.Equal(t, 0.0, b.Composite)
	assert.Contains(t, b.Missing, "skills contains Rust")
}

func TestOperators(t *testing.T) {
	profile := testProfile()

	tests := []struct {
		name string
		cond model.Condition
		want bool
	}{
		{"equals string case-insensitive", model.Condition{Field: "city", Operator: model.OpEquals, Value: "berlin"}, true},
		{"equals numeric", model.Condition{Field: "experience", Operator: model.OpEquals, Value: "5"}, true},
		{"contains", model.Condition{Field: "skills", Operator: model.OpContains, Value: "go"}, true},
		{"contains miss", model.Condition{Field: "skills", Operator: model.OpContains, Value: "java"}, false},
		{"contains any hit", model.Condition{Field: "skills", Operator: model.OpContainsAny, Value: []string{"java", "sql"}}, true},
		{"contains any comma string", model.Condition{Field: "skills", Operator: model.OpContainsAny, Value: "java, python"}, true},
		{"contains any miss", model.Condition{Field: "skills", Operator: model.OpContainsAny, Value: []string{"java", "ruby"}}, false},
		{"greater than", model.Condition{Field: "experience", Operator: model.OpGreaterThan, Value: 4}, true},
		{"greater than miss", model.Condition{Field: "experience", Operator: model.OpGreaterThan, Value: 5}, false},
		{"less or equal", model.Condition{Field: "salary", Operator: model.OpLessOrEqual, Value: 85000}, true},
		{"range inside", model.Condition{Field: "experience", Operator: model.OpRange, Min: floatPtr(3), Max: floatPtr(8)}, true},
		{"range below min", model.Condition{Field: "experience", Operator: model.OpRange, Min: floatPtr(6)}, false},
		{"range above max", model.Condition{Field: "salary", Operator: model.OpRange, Max: floatPtr(50000)}, false},
		{"tags pseudo field", model.Condition{Field: "tags", Operator: model.OpContains, Value: "remote"}, true},
		{"missing numeric field", model.Condition{Field: "age", Operator: model.OpGreaterThan, Value: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := model.Intent{ID: "i", OwnerID: "o", Required: []model.Condition{tt.cond}}
			b := Score(intent, profile, nil)
			if tt.want {
				assert.False(t, b.RequiredFailed, "expected condition to pass")
			} else {
				assert.True(t, b.RequiredFailed, "expected condition to fail")
			}
		})
	}
}

func TestPreferredPartialCredit(t *testing.T) {
	intent := model.Intent{
		ID:      "i1",
		OwnerID: "o1",
		Preferred: []model.Condition{
			{Field: "city", Operator: model.OpEquals, Value: "Berlin"},
			{Field: "skills", Operator: model.OpContains, Value: "Java"},
		},
	}

	b := Score(intent, testProfile(), nil)
	assert.InDelta(t, 0.5, b.Preferred, 1e-9)
}

func TestKeywordContainmentFraction(t *testing.T) {
	intent := model.Intent{
		ID:       "i1",
		OwnerID:  "o1",
		Keywords: []string{"python", "remote", "kubernetes", "senior"},
	}

	b := Score(intent, testProfile(), nil)
	assert.InDelta(t, 0.75, b.Keyword, 1e-9)
}

func TestBlankKeywordsDoNotDiluteFraction(t *testing.T) {
	intent := model.Intent{
		ID:       "i1",
		OwnerID:  "o1",
		Keywords: []string{"python", "", "remote", "  "},
	}

	// Both real keywords match; blanks must not hold the fraction below 1.
	b := Score(intent, testProfile(), nil)
	assert.InDelta(t, 1.0, b.Keyword, 1e-9)
	assert.InDelta(t, 1.0, b.Composite, 1e-9)
}

func TestWeightRedistributionWithoutSimilarity(t *testing.T) {
	intent := model.Intent{
		ID:      "i1",
		OwnerID: "o1",
		Required: []model.Condition{
			{Field: "skills", Operator: model.OpContains, Value: "Python"},
		},
		Keywords: []string{"python", "java"},
	}

	// No preferred group: weights renormalize over keyword (.40) and
	// required (.35). keyword=0.5, required=1.0.
	b := Score(intent, testProfile(), nil)
	want := (0.40*0.5 + 0.35*1.0) / (0.40 + 0.35)
	assert.InDelta(t, want, b.Composite, 1e-9)
}

func TestSimilaritySignalShiftsWeights(t *testing.T) {
	intent := model.Intent{
		ID:      "i1",
		OwnerID: "o1",
		Required: []model.Condition{
			{Field: "skills", Operator: model.OpContains, Value: "Python"},
		},
		Preferred: []model.Condition{
			{Field: "city", Operator: model.OpEquals, Value: "Berlin"},
		},
		Keywords: []string{"python"},
	}

	sim := &SimilaritySignal{Score: 0.8}
	b := Score(intent, testProfile(), sim)
	require.True(t, b.HasSimilarity)

	want := 0.30*0.8 + 0.30*1.0 + 0.25*1.0 + 0.15*1.0
	assert.InDelta(t, want, b.Composite, 1e-9)
}

func TestNoConditionsFallsBackToDescriptionOverlap(t *testing.T) {
	intent := model.Intent{
		ID:          "i1",
		OwnerID:     "o1",
		Description: "senior python developer in berlin",
	}

	b := Score(intent, testProfile(), nil)
	assert.Greater(t, b.Composite, 0.0, "fallback heuristic should not return zero for overlapping text")
}

func TestCompositeAlwaysInUnitInterval(t *testing.T) {
	intents := []model.Intent{
		{ID: "a", OwnerID: "o", Keywords: []string{"python", "go", "sql"}},
		{ID: "b", OwnerID: "o", Required: []model.Condition{{Field: "experience", Operator: model.OpGreaterThan, Value: 100}}},
		{ID: "c", OwnerID: "o", Description: "anything"},
	}

	sims := []*SimilaritySignal{nil, {Score: 1.5}, {Score: -0.3}}
	for _, intent := range intents {
		for _, sim := range sims {
			b := Score(intent, testProfile(), sim)
			assert.GreaterOrEqual(t, b.Composite, 0.0)
			assert.LessOrEqual(t, b.Composite, 1.0)
		}
	}
}
