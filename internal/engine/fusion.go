package engine

import (
	"github.com/relaylabs/leadmatch/internal/judge"
	"github.com/relaylabs/leadmatch/internal/strategy"
)

// fuse blends the heuristic composite with a judgment score using the
// mode's weights. Without a judgment the heuristic stands alone. The
// result is always clamped to [0,1].
func fuse(heuristic float64, judgment *judge.Result, params strategy.Params) float64 {
	if judgment == nil {
		return clamp01(heuristic)
	}
	return clamp01(heuristic*params.HeuristicWeight + judgment.Score*params.JudgmentWeight)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
