// Package strategy picks an evaluation mode for a match run based on
// intent complexity, batch size and caller tier.
package strategy

import (
	"strings"

	"github.com/relaylabs/leadmatch/internal/model"
)

// Mode identifies an evaluation strategy. Modes trade cost for accuracy.
type Mode int

// Evaluation modes, cheapest first.
const (
	ModeFast Mode = iota
	ModeBalanced
	ModeAccurate
	ModeThorough
)

// String returns the mode name for logging.
func (m Mode) String() string {
	switch m {
	case ModeFast:
		return "fast"
	case ModeBalanced:
		return "balanced"
	case ModeAccurate:
		return "accurate"
	case ModeThorough:
		return "thorough"
	default:
		return "unknown"
	}
}

// Params are the tunables a mode carries into the engine.
type Params struct {
	HeuristicWeight  float64
	JudgmentWeight   float64
	ForwardThreshold float64
	CandidateCap     int
	UseJudgment      bool
	UseSimilarity    bool
}

// defaultParams maps each mode to its tuning. Accurate and thorough
// modes weight judgment roughly 3:1 over the heuristic.
var defaultParams = map[Mode]Params{
	ModeFast: {
		HeuristicWeight:  1.0,
		JudgmentWeight:   0.0,
		CandidateCap:     0,
		ForwardThreshold: 0.0,
		UseJudgment:      false,
		UseSimilarity:    false,
	},
	ModeBalanced: {
		HeuristicWeight:  0.5,
		JudgmentWeight:   0.5,
		CandidateCap:     10,
		ForwardThreshold: 0.35,
		UseJudgment:      true,
		UseSimilarity:    true,
	},
	ModeAccurate: {
		HeuristicWeight:  0.25,
		JudgmentWeight:   0.75,
		CandidateCap:     25,
		ForwardThreshold: 0.25,
		UseJudgment:      true,
		UseSimilarity:    true,
	},
	ModeThorough: {
		HeuristicWeight:  0.25,
		JudgmentWeight:   0.75,
		CandidateCap:     50,
		ForwardThreshold: 0.15,
		UseJudgment:      true,
		UseSimilarity:    true,
	},
}

// Config tunes the selector.
type Config struct {
	// Overrides replaces the parameter table entry for a mode.
	Overrides map[Mode]Params
	// LargeBatch is the candidate count above which runs drop to fast
	// mode. Zero means the default of 500.
	LargeBatch int
}

// Selector chooses a mode and its parameters for each run.
type Selector struct {
	params     map[Mode]Params
	largeBatch int
}

// NewSelector creates a selector, applying any configured overrides to
// the built-in parameter table.
func NewSelector(cfg Config) *Selector {
	params := make(map[Mode]Params, len(defaultParams))
	for mode, p := range defaultParams {
		params[mode] = p
	}
	for mode, p := range cfg.Overrides {
		params[mode] = p
	}
	largeBatch := cfg.LargeBatch
	if largeBatch <= 0 {
		largeBatch = 500
	}
	return &Selector{params: params, largeBatch: largeBatch}
}

// Params returns the parameter table entry for a mode.
func (s *Selector) Params(mode Mode) Params {
	return s.params[mode]
}

// Select chooses the mode for one run. judgmentAvailable is false when
// no judgment provider is configured or its circuit is open; the chosen
// mode then degrades to heuristic-only for the whole run.
func (s *Selector) Select(intent *model.Intent, candidateCount int, tier model.Tier, judgmentAvailable bool) (Mode, Params) {
	complexity := estimateComplexity(intent)

	var mode Mode
	switch {
	case tier >= model.TierPremium && intent.Priority >= model.PriorityHigh:
		mode = ModeThorough
	case complexity >= complexityHigh || intent.Priority >= model.PriorityHigh:
		mode = ModeAccurate
	case candidateCount > s.largeBatch || complexity == complexityTrivial:
		mode = ModeFast
	default:
		mode = ModeBalanced
	}

	params := s.params[mode]
	if !judgmentAvailable && params.UseJudgment {
		params.UseJudgment = false
		params.JudgmentWeight = 0
		params.HeuristicWeight = 1.0
	}
	return mode, params
}

type complexityLevel int

const (
	complexityTrivial complexityLevel = iota
	complexityModerate
	complexityHigh
)

// Exclusionary phrasing signals an intent the heuristic alone handles
// poorly, so it raises the complexity estimate.
var exclusionaryMarkers = []string{
	"but not",
	"except",
	"without",
	"exclude",
	"excluding",
	"no ",
	"不要",
	"除了",
}

// estimateComplexity scores an intent by its structured condition count,
// description length and exclusionary phrasing.
func estimateComplexity(intent *model.Intent) complexityLevel {
	points := intent.ConditionCount()

	desc := strings.ToLower(intent.Description)
	if len(desc) > 400 {
		points += 3
	} else if len(desc) > 150 {
		points += 1
	}

	for _, marker := range exclusionaryMarkers {
		if strings.Contains(desc, marker) {
			points += 2
			break
		}
	}

	switch {
	case points >= 6:
		return complexityHigh
	case points >= 2:
		return complexityModerate
	default:
		return complexityTrivial
	}
}
