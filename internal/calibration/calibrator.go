// Package calibration derives per-owner score adjustments from accept and
// reject feedback, so raw engine scores better separate good matches from
// bad ones for that owner.
package calibration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relaylabs/leadmatch/internal/model"
	"github.com/relaylabs/leadmatch/internal/service"
)

// Params are the adjustments applied to a raw fused score for one owner.
type Params struct {
	// SeparationFactor stretches scores away from 0.5 when accepted and
	// rejected matches land too close together. 1.0 means no stretch.
	SeparationFactor float64
	// ConfidenceFloor pulls scores toward 0.5 when the judgment
	// confidence falls below it.
	ConfidenceFloor float64
	// Active is false when the owner has too little labeled feedback.
	Active bool
}

// Config tunes the calibrator.
type Config struct {
	// MinFeedback is the labeled-event count required before any
	// adjustment applies. Zero means the default of 20.
	MinFeedback int
	// MinSeparation is the accept/reject mean gap below which the
	// stretch kicks in. Zero means the default of 0.2.
	MinSeparation float64
	// MaxStretch caps the separation factor. Zero means 2.0.
	MaxStretch float64
	// RefreshInterval bounds how often per-owner parameters are
	// recomputed. Zero means 15 minutes.
	RefreshInterval time.Duration
	// FetchLimit bounds how many recent feedback events are read per
	// recompute. Zero means 500.
	FetchLimit int
}

func (c *Config) applyDefaults() {
	if c.MinFeedback <= 0 {
		c.MinFeedback = 20
	}
	if c.MinSeparation <= 0 {
		c.MinSeparation = 0.2
	}
	if c.MaxStretch <= 0 {
		c.MaxStretch = 2.0
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 15 * time.Minute
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 500
	}
}

type cachedParams struct {
	computedAt time.Time
	params     Params
}

// Calibrator computes and caches per-owner calibration parameters.
type Calibrator struct {
	feedback service.FeedbackSource
	logger   *slog.Logger
	cache    map[string]cachedParams
	cfg      Config
	mu       sync.Mutex
}

// NewCalibrator creates a calibrator reading labeled feedback from the
// given source.
func NewCalibrator(feedback service.FeedbackSource, cfg Config, logger *slog.Logger) *Calibrator {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Calibrator{
		feedback: feedback,
		cfg:      cfg,
		cache:    make(map[string]cachedParams),
		logger:   logger,
	}
}

// ParamsFor returns the calibration parameters for an owner, recomputing
// at most once per refresh interval. Errors reading feedback degrade to
// inactive parameters rather than failing the run.
func (c *Calibrator) ParamsFor(ctx context.Context, ownerID string) Params {
	c.mu.Lock()
	entry, ok := c.cache[ownerID]
	if ok && time.Since(entry.computedAt) < c.cfg.RefreshInterval {
		c.mu.Unlock()
		return entry.params
	}
	c.mu.Unlock()

	params := c.compute(ctx, ownerID)

	c.mu.Lock()
	c.cache[ownerID] = cachedParams{params: params, computedAt: time.Now()}
	c.mu.Unlock()
	return params
}

func (c *Calibrator) compute(ctx context.Context, ownerID string) Params {
	inactive := Params{SeparationFactor: 1.0, ConfidenceFloor: 0, Active: false}

	events, err := c.feedback.GetFeedbackByOwner(ctx, ownerID, c.cfg.FetchLimit)
	if err != nil {
		c.logger.Warn("calibration feedback read failed, using raw scores",
			"owner_id", ownerID,
			"error", err)
		return inactive
	}

	var acceptSum, rejectSum float64
	var acceptN, rejectN int
	for i := range events {
		e := &events[i]
		if !e.IsLabeled() {
			continue
		}
		if e.Verdict == model.VerdictAccept {
			acceptSum += e.Score
			acceptN++
		} else {
			rejectSum += e.Score
			rejectN++
		}
	}

	if acceptN+rejectN < c.cfg.MinFeedback || acceptN == 0 || rejectN == 0 {
		return inactive
	}

	acceptMean := acceptSum / float64(acceptN)
	rejectMean := rejectSum / float64(rejectN)
	gap := acceptMean - rejectMean

	params := Params{SeparationFactor: 1.0, Active: true}

	// Accept and reject clusters sitting too close together means raw
	// scores are not discriminating for this owner; stretch them apart.
	if gap > 0 && gap < c.cfg.MinSeparation {
		params.SeparationFactor = c.cfg.MinSeparation / gap
		if params.SeparationFactor > c.cfg.MaxStretch {
			params.SeparationFactor = c.cfg.MaxStretch
		}
	}

	// A high reject mean indicates confident-looking scores the owner
	// disagreed with; raise the confidence floor so low-confidence
	// judgments get pulled toward neutral.
	if rejectMean > 0.6 {
		params.ConfidenceFloor = 0.5
	} else if rejectMean > 0.45 {
		params.ConfidenceFloor = 0.3
	}

	c.logger.Debug("calibration parameters computed",
		"owner_id", ownerID,
		"labeled", acceptN+rejectN,
		"accept_mean", acceptMean,
		"reject_mean", rejectMean,
		"separation_factor", params.SeparationFactor,
		"confidence_floor", params.ConfidenceFloor)
	return params
}

// Apply adjusts a raw fused score with the owner's parameters. It is
// pure: same inputs, same output.
func Apply(score, confidence float64, params Params) float64 {
	if !params.Active {
		return clamp01(score)
	}

	adjusted := score
	if params.ConfidenceFloor > 0 && confidence < params.ConfidenceFloor {
		// Low-confidence judgments shrink toward neutral in proportion
		// to how far below the floor they fall.
		weight := confidence / params.ConfidenceFloor
		adjusted = 0.5 + (adjusted-0.5)*weight
	}

	if params.SeparationFactor > 1.0 {
		adjusted = 0.5 + (adjusted-0.5)*params.SeparationFactor
	}

	return clamp01(adjusted)
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
