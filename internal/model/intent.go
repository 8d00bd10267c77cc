// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Operator identifies how a condition compares a profile attribute
// against the condition value.
type Operator string

// Supported condition operators.
const (
	OpEquals         Operator = "eq"
	OpContains       Operator = "contains"
	OpContainsAny    Operator = "contains_any"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpRange          Operator = "range"
)

// Priority orders intents by urgency. Higher values are more urgent.
type Priority int

// Intent priority levels.
const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// Tier identifies the service level of the caller initiating a match run.
type Tier int

// Caller tiers.
const (
	TierFree Tier = iota
	TierStandard
	TierPremium
)

// Condition is a single structured requirement on a profile attribute.
// Range conditions use Min/Max; all other operators use Value.
type Condition struct {
	Value    any      `json:"value,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
}

// Validate checks that the condition is structurally sound.
func (c *Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("condition field is required")
	}
	switch c.Operator {
	case OpEquals, OpContains, OpContainsAny, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		if c.Value == nil {
			return fmt.Errorf("condition on %q requires a value", c.Field)
		}
	case OpRange:
		if c.Min == nil && c.Max == nil {
			return fmt.Errorf("range condition on %q requires min or max", c.Field)
		}
	default:
		return fmt.Errorf("unsupported operator %q", c.Operator)
	}
	return nil
}

// Intent is a structured want/need description with conditions and a
// score threshold a candidate must clear to count as a match.
type Intent struct {
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Description string      `json:"description"`
	Required    []Condition `json:"required,omitempty"`
	Preferred   []Condition `json:"preferred,omitempty"`
	Keywords    []string    `json:"keywords,omitempty"`
	Threshold   float64     `json:"threshold"`
	Priority    Priority    `json:"priority"`
}

// Validate checks intent invariants before persistence or evaluation.
func (i *Intent) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("intent id is required")
	}
	if i.OwnerID == "" {
		return fmt.Errorf("intent owner id is required")
	}
	if i.Threshold < 0 || i.Threshold > 1 {
		return fmt.Errorf("intent threshold must be in [0,1], got %.2f", i.Threshold)
	}
	for idx := range i.Required {
		if err := i.Required[idx].Validate(); err != nil {
			return fmt.Errorf("required condition %d: %w", idx, err)
		}
	}
	for idx := range i.Preferred {
		if err := i.Preferred[idx].Validate(); err != nil {
			return fmt.Errorf("preferred condition %d: %w", idx, err)
		}
	}
	return nil
}

// ConditionCount returns the total number of structured conditions.
func (i *Intent) ConditionCount() int {
	return len(i.Required) + len(i.Preferred)
}

// HasConditions reports whether the intent carries any structured
// conditions or keywords at all.
func (i *Intent) HasConditions() bool {
	return i.ConditionCount() > 0 || len(i.Keywords) > 0
}

// ContentKey returns a stable string describing the matchable content of
// the intent. It feeds the judgment cache fingerprint, so it must change
// whenever the evaluation-relevant fields change.
func (i *Intent) ContentKey() string {
	var b strings.Builder
	b.WriteString(i.Description)
	for _, c := range i.Required {
		fmt.Fprintf(&b, "|r:%s %s %v", c.Field, c.Operator, c.Value)
		if c.Min != nil {
			fmt.Fprintf(&b, " min=%g", *c.Min)
		}
		if c.Max != nil {
			fmt.Fprintf(&b, " max=%g", *c.Max)
		}
	}
	for _, c := range i.Preferred {
		fmt.Fprintf(&b, "|p:%s %s %v", c.Field, c.Operator, c.Value)
	}
	for _, k := range i.Keywords {
		b.WriteString("|k:")
		b.WriteString(k)
	}
	fmt.Fprintf(&b, "|t:%.3f", i.Threshold)
	return b.String()
}
