package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionValidate(t *testing.T) {
	minVal := 1.0
	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{
			name:      "valid equals",
			condition: Condition{Field: "city", Operator: OpEquals, Value: "Berlin"},
		},
		{
			name:      "valid range with min only",
			condition: Condition{Field: "experience", Operator: OpRange, Min: &minVal},
		},
		{
			name:      "missing field",
			condition: Condition{Operator: OpEquals, Value: "x"},
			wantErr:   true,
		},
		{
			name:      "missing value",
			condition: Condition{Field: "city", Operator: OpContains},
			wantErr:   true,
		},
		{
			name:      "range without bounds",
			condition: Condition{Field: "age", Operator: OpRange},
			wantErr:   true,
		},
		{
			name:      "unknown operator",
			condition: Condition{Field: "city", Operator: "like", Value: "x"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.condition.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIntentValidate(t *testing.T) {
	valid := Intent{
		ID:        "int-1",
		OwnerID:   "owner-1",
		Threshold: 0.6,
		Required:  []Condition{{Field: "skills", Operator: OpContains, Value: "go"}},
	}
	require.NoError(t, valid.Validate())

	badThreshold := valid
	badThreshold.Threshold = 1.5
	assert.Error(t, badThreshold.Validate())

	noOwner := valid
	noOwner.OwnerID = ""
	assert.Error(t, noOwner.Validate())
}

func TestIntentContentKeyChangesWithContent(t *testing.T) {
	a := Intent{ID: "i1", OwnerID: "o1", Description: "backend engineer", Threshold: 0.5}
	b := a
	assert.Equal(t, a.ContentKey(), b.ContentKey())

	b.Keywords = []string{"golang"}
	assert.NotEqual(t, a.ContentKey(), b.ContentKey())

	c := a
	c.Threshold = 0.8
	assert.NotEqual(t, a.ContentKey(), c.ContentKey())
}

func TestProfileFlattenedText(t *testing.T) {
	p := Profile{
		ID:      "p1",
		OwnerID: "o1",
		Attributes: map[string]any{
			"skills":     "Python, Go",
			"experience": 5,
		},
		Tags: []string{"Remote", "Senior"},
	}

	text := p.FlattenedText()
	assert.Contains(t, text, "python")
	assert.Contains(t, text, "remote")
	assert.Contains(t, text, "5")

	// Deterministic across calls regardless of map iteration order.
	assert.Equal(t, text, p.FlattenedText())
}

func TestProfileContentKeyIsOrderInsensitive(t *testing.T) {
	a := Profile{ID: "p1", OwnerID: "o1", Tags: []string{"b", "a"}}
	b := Profile{ID: "p1", OwnerID: "o1", Tags: []string{"a", "b"}}
	assert.Equal(t, a.ContentKey(), b.ContentKey())
}

func TestFeedbackEventValidate(t *testing.T) {
	valid := FeedbackEvent{
		IntentID:  "i1",
		ProfileID: "p1",
		OwnerID:   "o1",
		Verdict:   VerdictAccept,
		Score:     0.7,
	}
	require.NoError(t, valid.Validate())
	assert.True(t, valid.IsLabeled())

	ignored := valid
	ignored.Verdict = VerdictIgnore
	require.NoError(t, ignored.Validate())
	assert.False(t, ignored.IsLabeled())

	bad := valid
	bad.Verdict = "MAYBE"
	assert.Error(t, bad.Validate())
}
