package judge

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantSource     ParseSource
		wantScore      float64
		wantConfidence float64
	}{
		{
			name: "clean JSON",
			input: `{"score": 0.85, "confidence": 0.9, "matched_aspects": ["go experience"],
				"missing_aspects": [], "explanation": "strong match"}`,
			wantSource:     SourceJSON,
			wantScore:      0.85,
			wantConfidence: 0.9,
		},
		{
			name:           "markdown fenced JSON",
			input:          "```json\n{\"score\": 0.7, \"confidence\": 0.8, \"explanation\": \"ok\"}\n```",
			wantSource:     SourceJSON,
			wantScore:      0.7,
			wantConfidence: 0.8,
		},
		{
			name:           "JSON embedded in prose",
			input:          "Here is my judgment: {\"score\": 0.6, \"confidence\": 0.75, \"explanation\": \"partial\"} Hope that helps!",
			wantSource:     SourceJSON,
			wantScore:      0.6,
			wantConfidence: 0.75,
		},
		{
			name:           "regex fallback on mangled JSON",
			input:          `The score: 0.42 seems right, confidence: 0.5, but I forgot the braces`,
			wantSource:     SourceRegex,
			wantScore:      0.42,
			wantConfidence: 0.5,
		},
		{
			name:           "unparseable prose defaults",
			input:          "I cannot evaluate this pair.",
			wantSource:     SourceDefault,
			wantScore:      0.5,
			wantConfidence: 0.3,
		},
		{
			name:           "empty response defaults",
			input:          "",
			wantSource:     SourceDefault,
			wantScore:      0.5,
			wantConfidence: 0.3,
		},
		{
			name:           "score above range clamped",
			input:          `{"score": 1.4, "confidence": 0.9, "explanation": "overshoot"}`,
			wantSource:     SourceJSON,
			wantScore:      1.0,
			wantConfidence: 0.9,
		},
		{
			name:           "negative score clamped",
			input:          `{"score": -0.2, "confidence": 0.9, "explanation": "undershoot"}`,
			wantSource:     SourceJSON,
			wantScore:      0.0,
			wantConfidence: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseResponse(tt.input, testLogger())
			assert.Equal(t, tt.wantSource, result.Source)
			assert.InDelta(t, tt.wantScore, result.Score, 0.001)
			assert.InDelta(t, tt.wantConfidence, result.Confidence, 0.001)
		})
	}
}

func TestParseResponseAspects(t *testing.T) {
	input := `{"score": 0.8, "confidence": 0.85,
		"matched_aspects": ["python", "remote"],
		"missing_aspects": ["five years experience"],
		"explanation": "most requirements met"}`

	result := parseResponse(input, testLogger())
	require.Equal(t, SourceJSON, result.Source)
	assert.Equal(t, []string{"python", "remote"}, result.MatchedAspects)
	assert.Equal(t, []string{"five years experience"}, result.MissingAspects)
	assert.Equal(t, "most requirements met", result.Explanation)
}

func TestParseResponseTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte prose long enough to hit the explanation cap.
	input := "score: 0.7 das Profil passt, " + strings.Repeat("sehr überzeugend für die Rolle ", 20)

	result := parseResponse(input, testLogger())
	require.Equal(t, SourceRegex, result.Source)
	assert.LessOrEqual(t, len(result.Explanation), 280)
	assert.True(t, utf8.ValidString(result.Explanation), "truncation must not split a rune")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 280))
	assert.Equal(t, "ab", truncate("abcd", 2))
	// "é" is two bytes; cutting at 3 must back up to the rune start.
	assert.Equal(t, "aé", truncate("aéé", 4))
	assert.Equal(t, "a", truncate("aéé", 2))
}

func TestExtractJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "nested braces",
			input: `before {"a": {"b": 1}, "c": 2} after`,
			want:  `{"a": {"b": 1}, "c": 2}`,
		},
		{
			name:  "braces inside string literal",
			input: `{"explanation": "uses {curly} text", "score": 0.5}`,
			want:  `{"explanation": "uses {curly} text", "score": 0.5}`,
		},
		{
			name:  "no object",
			input: "just words",
			want:  "",
		},
		{
			name:  "unbalanced",
			input: `{"score": 0.5`,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONBlock(tt.input))
		})
	}
}
