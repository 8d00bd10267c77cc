package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/relaylabs/leadmatch/internal/common"
	"github.com/relaylabs/leadmatch/internal/model"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <intent-id>",
		Short: "Evaluate candidate profiles against an intent",
		Long: `Run the matching engine for one intent. Candidates default to every
profile in the database not owned by the intent's owner; use --candidate-owner
to restrict the pool.`,
		Args: cobra.ExactArgs(1),
		RunE: runMatch,
	}

	cmd.Flags().String("candidate-owner", "", "only evaluate profiles belonging to this owner")
	cmd.Flags().String("tier", "standard", "caller tier (free, standard, premium)")

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	intentID := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	intent, err := store.GetIntent(ctx, intentID)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("intent %s not found", intentID), err)
	}

	candidateOwner, _ := cmd.Flags().GetString("candidate-owner")
	var profiles []model.Profile
	if candidateOwner != "" {
		profiles, err = store.GetProfilesByOwner(ctx, candidateOwner)
	} else {
		profiles, err = store.GetCandidateProfiles(ctx, intent.OwnerID)
	}
	if err != nil {
		return fmt.Errorf("failed to load candidate profiles: %w", err)
	}
	if len(profiles) == 0 {
		return common.NewUserError("no candidate profiles to evaluate", common.ErrNoCandidates)
	}

	tierName, _ := cmd.Flags().GetString("tier")
	tier, err := parseTier(tierName)
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine(ctx, store)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := eng.MatchIntent(ctx, intent, profiles, tier)
	if err != nil {
		return fmt.Errorf("match run failed: %w", err)
	}

	slog.Info("match run complete",
		"intent_id", intentID,
		"candidates", result.Stats.Candidates,
		"matched", result.Stats.Matched,
		"notified", result.Stats.Notified,
		"judged", result.Stats.Judged,
		"cache_hits", result.Stats.CacheHits,
		"degraded", result.Stats.Degraded,
		"duration", result.Stats.Duration)

	for _, m := range result.Matches {
		fmt.Printf("%-20s score=%.3f confidence=%.2f notify=%-5v %s\n",
			m.Record.ProfileID, m.Record.Score, m.Record.Confidence,
			m.ShouldNotify, m.Record.Explanation)
	}
	return nil
}

func parseTier(name string) (model.Tier, error) {
	switch name {
	case "free":
		return model.TierFree, nil
	case "standard":
		return model.TierStandard, nil
	case "premium":
		return model.TierPremium, nil
	default:
		return model.TierFree, fmt.Errorf("invalid tier: %s", name)
	}
}
