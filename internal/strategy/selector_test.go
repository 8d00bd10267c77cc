package strategy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaylabs/leadmatch/internal/model"
)

func simpleIntent() *model.Intent {
	return &model.Intent{
		ID:          "i1",
		OwnerID:     "o1",
		Description: "looking for a plumber",
		Threshold:   0.5,
	}
}

func complexIntent() *model.Intent {
	required := make([]model.Condition, 4)
	for i := range required {
		required[i] = model.Condition{Field: "f", Operator: model.OpEquals, Value: "v"}
	}
	return &model.Intent{
		ID:          "i2",
		OwnerID:     "o1",
		Description: strings.Repeat("detailed requirement text ", 20) + " but not agencies",
		Required:    required,
		Preferred:   []model.Condition{{Field: "g", Operator: model.OpContains, Value: "x"}},
		Threshold:   0.6,
	}
}

func TestSelectDecisionTable(t *testing.T) {
	selector := NewSelector(Config{})

	tests := []struct {
		name           string
		intent         *model.Intent
		candidateCount int
		tier           model.Tier
		want           Mode
	}{
		{
			name:           "premium urgent goes thorough",
			intent:         &model.Intent{ID: "i", OwnerID: "o", Description: "anything at all really here", Priority: model.PriorityUrgent, Required: []model.Condition{{Field: "a", Operator: model.OpEquals, Value: 1}, {Field: "b", Operator: model.OpEquals, Value: 2}}},
			candidateCount: 10,
			tier:           model.TierPremium,
			want:           ModeThorough,
		},
		{
			name:           "high priority standard tier goes accurate",
			intent:         &model.Intent{ID: "i", OwnerID: "o", Description: "short", Priority: model.PriorityHigh},
			candidateCount: 10,
			tier:           model.TierStandard,
			want:           ModeAccurate,
		},
		{
			name:           "complex intent goes accurate",
			intent:         complexIntent(),
			candidateCount: 10,
			tier:           model.TierStandard,
			want:           ModeAccurate,
		},
		{
			name:           "large batch goes fast",
			intent:         &model.Intent{ID: "i", OwnerID: "o", Description: strings.Repeat("words ", 40), Required: []model.Condition{{Field: "a", Operator: model.OpEquals, Value: 1}}},
			candidateCount: 1000,
			tier:           model.TierStandard,
			want:           ModeFast,
		},
		{
			name:           "trivial intent goes fast",
			intent:         simpleIntent(),
			candidateCount: 10,
			tier:           model.TierStandard,
			want:           ModeFast,
		},
		{
			name:           "moderate intent defaults to balanced",
			intent:         &model.Intent{ID: "i", OwnerID: "o", Description: "needs a few things", Required: []model.Condition{{Field: "a", Operator: model.OpEquals, Value: 1}, {Field: "b", Operator: model.OpEquals, Value: 2}}},
			candidateCount: 10,
			tier:           model.TierStandard,
			want:           ModeBalanced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, _ := selector.Select(tt.intent, tt.candidateCount, tt.tier, true)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestSelectDegradesWithoutJudgment(t *testing.T) {
	selector := NewSelector(Config{})

	mode, params := selector.Select(complexIntent(), 10, model.TierStandard, false)
	assert.Equal(t, ModeAccurate, mode)
	assert.False(t, params.UseJudgment)
	assert.InDelta(t, 1.0, params.HeuristicWeight, 0.001)
	assert.InDelta(t, 0.0, params.JudgmentWeight, 0.001)
}

func TestSelectorOverrides(t *testing.T) {
	custom := Params{
		HeuristicWeight:  0.4,
		JudgmentWeight:   0.6,
		CandidateCap:     7,
		ForwardThreshold: 0.5,
		UseJudgment:      true,
	}
	selector := NewSelector(Config{Overrides: map[Mode]Params{ModeBalanced: custom}})

	assert.Equal(t, custom, selector.Params(ModeBalanced))
	// Other modes keep their defaults.
	assert.True(t, selector.Params(ModeThorough).UseJudgment)
	assert.Equal(t, 50, selector.Params(ModeThorough).CandidateCap)
}

func TestEstimateComplexity(t *testing.T) {
	assert.Equal(t, complexityTrivial, estimateComplexity(simpleIntent()))
	assert.Equal(t, complexityHigh, estimateComplexity(complexIntent()))

	exclusionary := &model.Intent{
		ID:          "i",
		OwnerID:     "o",
		Description: "a web designer, but not agencies",
	}
	assert.Equal(t, complexityModerate, estimateComplexity(exclusionary))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "fast", ModeFast.String())
	assert.Equal(t, "balanced", ModeBalanced.String())
	assert.Equal(t, "accurate", ModeAccurate.String())
	assert.Equal(t, "thorough", ModeThorough.String())
	assert.Equal(t, "unknown", Mode(99).String())
}
