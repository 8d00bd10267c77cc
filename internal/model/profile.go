package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profile is an extracted contact record evaluated against intents.
// The matching engine treats profiles as read-only.
type Profile struct {
	CreatedAt  time.Time      `json:"created_at"`
	Attributes map[string]any `json:"attributes"`
	ID         string         `json:"id"`
	OwnerID    string         `json:"owner_id"`
	Tags       []string       `json:"tags,omitempty"`
}

// Validate checks profile invariants before persistence.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if p.OwnerID == "" {
		return fmt.Errorf("profile owner id is required")
	}
	return nil
}

// Attribute returns the named attribute and whether it exists.
func (p *Profile) Attribute(field string) (any, bool) {
	if p.Attributes == nil {
		return nil, false
	}
	v, ok := p.Attributes[field]
	return v, ok
}

// FlattenedText returns all attribute values and tags joined into one
// lowercased string, used for keyword containment scoring. Keys are
// sorted so the output is deterministic.
func (p *Profile) FlattenedText() string {
	parts := make([]string, 0, len(p.Attributes)+len(p.Tags))

	keys := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %v", k, p.Attributes[k]))
	}
	parts = append(parts, p.Tags...)

	return strings.ToLower(strings.Join(parts, " "))
}

// ContentKey returns a stable string describing the matchable content of
// the profile, used for judgment cache fingerprinting.
func (p *Profile) ContentKey() string {
	var b strings.Builder
	keys := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "|a:%s=%v", k, p.Attributes[k])
	}
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	sort.Strings(tags)
	for _, t := range tags {
		b.WriteString("|t:")
		b.WriteString(t)
	}
	return b.String()
}
