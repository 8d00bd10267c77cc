package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/relaylabs/leadmatch/internal/model"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record and inspect match feedback",
	}

	cmd.AddCommand(feedbackRecordCmd())
	cmd.AddCommand(feedbackListCmd())

	return cmd
}

func feedbackRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <intent-id> <profile-id> <accept|reject|ignore>",
		Short: "Record the owner's verdict on a delivered match",
		Long: `Record feedback for a match. The stored event carries the match's
current fused score, so the calibration loop can compare scores against
outcomes.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			intentID, profileID := args[0], args[1]

			verdict, err := parseVerdict(args[2])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			intent, err := store.GetIntent(ctx, intentID)
			if err != nil {
				return fmt.Errorf("failed to load intent: %w", err)
			}

			match, err := store.GetMatch(ctx, intentID, profileID)
			if err != nil {
				return fmt.Errorf("failed to load match: %w", err)
			}

			event := &model.FeedbackEvent{
				IntentID:  intentID,
				ProfileID: profileID,
				OwnerID:   intent.OwnerID,
				Verdict:   verdict,
				Score:     match.Score,
			}
			if err := store.SaveFeedback(ctx, event); err != nil {
				return fmt.Errorf("failed to save feedback: %w", err)
			}

			slog.Info("Recorded feedback",
				"intent_id", intentID,
				"profile_id", profileID,
				"verdict", string(verdict),
				"score", match.Score)
			return nil
		},
	}

	return cmd
}

func feedbackListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's recent feedback",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ownerID, _ := cmd.Flags().GetString("owner")
			if ownerID == "" {
				return fmt.Errorf("--owner is required")
			}
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			events, err := store.GetFeedbackByOwner(ctx, ownerID, limit)
			if err != nil {
				return fmt.Errorf("failed to list feedback: %w", err)
			}

			for _, e := range events {
				fmt.Printf("%-10s %-20s %-20s score=%.3f %s\n",
					e.Verdict, e.IntentID, e.ProfileID, e.Score,
					e.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owner ID to list feedback for")
	cmd.Flags().Int("limit", 50, "maximum events to list")
	return cmd
}

func parseVerdict(name string) (model.FeedbackVerdict, error) {
	switch name {
	case "accept":
		return model.VerdictAccept, nil
	case "reject":
		return model.VerdictReject, nil
	case "ignore":
		return model.VerdictIgnore, nil
	default:
		return "", fmt.Errorf("invalid verdict: %s (expected accept, reject or ignore)", name)
	}
}
