// Package engine orchestrates match runs: strategy selection, heuristic
// scoring, bounded judgment fan-out, score fusion, calibration and
// persistence.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/relaylabs/leadmatch/internal/calibration"
	"github.com/relaylabs/leadmatch/internal/common"
	"github.com/relaylabs/leadmatch/internal/judge"
	"github.com/relaylabs/leadmatch/internal/model"
	"github.com/relaylabs/leadmatch/internal/scoring"
	"github.com/relaylabs/leadmatch/internal/service"
	"github.com/relaylabs/leadmatch/internal/strategy"
)

// ScoreFunc is the heuristic scoring function signature.
type ScoreFunc func(intent model.Intent, profile model.Profile, sim *scoring.SimilaritySignal) scoring.Breakdown

// Config tunes the engine.
type Config struct {
	// MaxConcurrentJudgments bounds the judgment fan-out regardless of
	// batch size. Zero means the default of 4.
	MaxConcurrentJudgments int
}

// Engine evaluates candidate profiles against an intent.
type Engine struct {
	store      MatchStore
	score      ScoreFunc
	estimator  SimilarityEstimator
	oracle     JudgmentOracle
	selector   ModeSelector
	calibrator ScoreCalibrator
	logger     *slog.Logger
	cfg        Config
}

// New creates an engine. The estimator, oracle and calibrator are
// optional: a nil oracle degrades every run to heuristic-only, a nil
// estimator drops the similarity signal, a nil calibrator passes raw
// scores through.
func New(store MatchStore, selector ModeSelector, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrentJudgments <= 0 {
		cfg.MaxConcurrentJudgments = 4
	}
	return &Engine{
		store:    store,
		score:    scoring.Score,
		selector: selector,
		cfg:      cfg,
		logger:   logger,
	}
}

// WithSimilarity attaches a similarity estimator.
func (e *Engine) WithSimilarity(estimator SimilarityEstimator) *Engine {
	e.estimator = estimator
	return e
}

// WithOracle attaches a judgment oracle.
func (e *Engine) WithOracle(oracle JudgmentOracle) *Engine {
	e.oracle = oracle
	return e
}

// WithCalibrator attaches a score calibrator.
func (e *Engine) WithCalibrator(calibrator ScoreCalibrator) *Engine {
	e.calibrator = calibrator
	return e
}

// candidate carries one profile through the run stages.
type candidate struct {
	judgment  *judge.Result
	profile   *model.Profile
	breakdown scoring.Breakdown
	fused     float64
}

// MatchIntent evaluates every candidate profile against the intent,
// persists qualifying matches and returns them ranked by fused score.
// Individual provider failures degrade the affected candidate to its
// heuristic score; the run itself only fails when no scoring path
// exists at all.
func (e *Engine) MatchIntent(ctx context.Context, intent *model.Intent, profiles []model.Profile, tier model.Tier) (*RunResult, error) {
	started := time.Now()

	if intent == nil {
		return nil, fmt.Errorf("intent cannot be nil")
	}
	if err := intent.Validate(); err != nil {
		return nil, fmt.Errorf("invalid intent: %w", err)
	}
	if len(profiles) == 0 {
		return nil, common.ErrNoCandidates
	}
	if e.score == nil {
		return nil, common.ErrNoScorer
	}

	stats := service.RunStats{Candidates: len(profiles)}

	judgmentAvailable := e.oracle != nil && e.oracle.Available()
	mode, params := e.selector.Select(intent, len(profiles), tier, judgmentAvailable)
	if params.UseJudgment && !judgmentAvailable {
		params.UseJudgment = false
	}

	e.logger.Info("match run starting",
		"intent_id", intent.ID,
		"candidates", len(profiles),
		"mode", mode.String(),
		"judgment", params.UseJudgment)

	candidates := e.heuristicPass(ctx, intent, profiles, params, &stats)

	if params.UseJudgment {
		e.judgmentPass(ctx, intent, candidates, params, &stats)
	}

	calParams := calibration.Params{}
	if e.calibrator != nil {
		calParams = e.calibrator.ParamsFor(ctx, intent.OwnerID)
	}

	results := make([]model.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		c.fused = fuse(c.breakdown.Composite, c.judgment, params)

		confidence := 0.5
		if c.judgment != nil {
			confidence = c.judgment.Confidence
		}
		c.fused = calibration.Apply(c.fused, confidence, calParams)

		if c.fused < intent.Threshold {
			continue
		}

		record := buildRecord(intent, c, confidence)
		stored, notify, err := e.store.UpsertMatch(ctx, record)
		if err != nil {
			e.logger.Error("match upsert failed",
				"intent_id", intent.ID,
				"profile_id", c.profile.ID,
				"error", err)
			continue
		}
		if notify {
			stats.Notified++
		}
		stats.Matched++
		results = append(results, model.MatchResult{Record: *stored, ShouldNotify: notify})
	}

	// Ranked best first; input order breaks ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Record.Score > results[j].Record.Score
	})

	stats.Duration = time.Since(started)
	e.logger.Info("match run finished",
		"intent_id", intent.ID,
		"matched", stats.Matched,
		"judged", stats.Judged,
		"degraded", stats.Degraded,
		"duration", stats.Duration)

	return &RunResult{Matches: results, Stats: stats}, nil
}

// heuristicPass scores every candidate. Similarity estimation errors are
// absorbed: the candidate is scored without that signal.
func (e *Engine) heuristicPass(ctx context.Context, intent *model.Intent, profiles []model.Profile, params strategy.Params, stats *service.RunStats) []*candidate {
	candidates := make([]*candidate, 0, len(profiles))
	for i := range profiles {
		profile := &profiles[i]

		var sim *scoring.SimilaritySignal
		if params.UseSimilarity && e.estimator != nil {
			result, err := e.estimator.Estimate(ctx, intent.Description, profile.FlattenedText())
			if err != nil {
				e.logger.Warn("similarity estimate failed, scoring without it",
					"intent_id", intent.ID,
					"profile_id", profile.ID,
					"error", err)
				stats.Degraded++
			} else {
				sim = &scoring.SimilaritySignal{Score: result.Score, Explanation: result.Explanation}
			}
		}

		candidates = append(candidates, &candidate{
			profile:   profile,
			breakdown: e.score(*intent, *profile, sim),
		})
	}
	return candidates
}

// judgmentPass sends the strongest heuristic candidates to the oracle
// under a fixed concurrency bound. A failed judgment leaves the
// candidate on its heuristic score.
func (e *Engine) judgmentPass(ctx context.Context, intent *model.Intent, candidates []*candidate, params strategy.Params, stats *service.RunStats) {
	eligible := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.breakdown.Composite >= params.ForwardThreshold && !c.breakdown.RequiredFailed {
			eligible = append(eligible, c)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].breakdown.Composite > eligible[j].breakdown.Composite
	})
	if params.CandidateCap > 0 && len(eligible) > params.CandidateCap {
		eligible = eligible[:params.CandidateCap]
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, e.cfg.MaxConcurrentJudgments)

	for _, c := range eligible {
		wg.Add(1)
		go func(c *candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := e.oracle.Judge(ctx, intent, c.profile)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.logger.Warn("judgment failed, keeping heuristic score",
					"intent_id", intent.ID,
					"profile_id", c.profile.ID,
					"error", err)
				stats.JudgmentErrors++
				stats.Degraded++
				return
			}
			stats.Judged++
			if result.Cached {
				stats.CacheHits++
			}
			c.judgment = &result
		}(c)
	}
	wg.Wait()
}

func buildRecord(intent *model.Intent, c *candidate, confidence float64) *model.MatchRecord {
	record := &model.MatchRecord{
		IntentID:   intent.ID,
		ProfileID:  c.profile.ID,
		Score:      c.fused,
		Confidence: confidence,
		Breakdown: model.ScoreBreakdown{
			Heuristic:  c.breakdown.Composite,
			Similarity: c.breakdown.Similarity,
			Required:   c.breakdown.Required,
			Preferred:  c.breakdown.Preferred,
			Keyword:    c.breakdown.Keyword,
			HasSim:     c.breakdown.HasSimilarity,
		},
	}

	if c.judgment != nil {
		record.Breakdown.Judgment = c.judgment.Score
		record.Breakdown.HasJudge = true
		record.Explanation = c.judgment.Explanation
		record.MatchedAspects = c.judgment.MatchedAspects
		record.MissingAspects = c.judgment.MissingAspects
	} else {
		record.MatchedAspects = c.breakdown.Matched
		record.MissingAspects = c.breakdown.Missing
		record.Explanation = heuristicExplanation(c.breakdown)
	}
	return record
}

func heuristicExplanation(b scoring.Breakdown) string {
	var parts []string
	if len(b.Matched) > 0 {
		parts = append(parts, "satisfies: "+strings.Join(b.Matched, ", "))
	}
	if len(b.Missing) > 0 {
		parts = append(parts, "lacks: "+strings.Join(b.Missing, ", "))
	}
	if len(parts) == 0 {
		return "scored on keyword and description overlap"
	}
	return strings.Join(parts, "; ")
}
