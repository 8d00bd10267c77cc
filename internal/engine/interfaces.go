package engine

import (
	"context"

	"github.com/relaylabs/leadmatch/internal/calibration"
	"github.com/relaylabs/leadmatch/internal/judge"
	"github.com/relaylabs/leadmatch/internal/model"
	"github.com/relaylabs/leadmatch/internal/service"
	"github.com/relaylabs/leadmatch/internal/similarity"
	"github.com/relaylabs/leadmatch/internal/strategy"
)

// SimilarityEstimator supplies an external text-similarity signal.
// *similarity.Client satisfies it.
type SimilarityEstimator interface {
	Estimate(ctx context.Context, textA, textB string) (similarity.Result, error)
}

// JudgmentOracle supplies semantic judgments for candidate pairs.
// *judge.Oracle satisfies it.
type JudgmentOracle interface {
	Judge(ctx context.Context, intent *model.Intent, profile *model.Profile) (judge.Result, error)
	Available() bool
}

// MatchStore is the persistence surface the engine writes through.
type MatchStore interface {
	UpsertMatch(ctx context.Context, record *model.MatchRecord) (*model.MatchRecord, bool, error)
}

// ScoreCalibrator yields per-owner score adjustment parameters.
// *calibration.Calibrator satisfies it.
type ScoreCalibrator interface {
	ParamsFor(ctx context.Context, ownerID string) calibration.Params
}

// ModeSelector picks evaluation parameters for a run.
// *strategy.Selector satisfies it.
type ModeSelector interface {
	Select(intent *model.Intent, candidateCount int, tier model.Tier, judgmentAvailable bool) (strategy.Mode, strategy.Params)
}

// RunResult is the outcome of one match run.
type RunResult struct {
	Matches []model.MatchResult
	Stats   service.RunStats
}
