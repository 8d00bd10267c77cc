package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaylabs/leadmatch/internal/model"
)

func intentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intents",
		Short: "Manage buyer intents",
	}

	cmd.AddCommand(intentsImportCmd())
	cmd.AddCommand(intentsListCmd())
	cmd.AddCommand(intentsDeleteCmd())
	cmd.AddCommand(intentsRethresholdCmd())

	return cmd
}

func intentsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import intents from a JSON file",
		Long:  `Import intents from a JSON file containing an array of intent objects.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			var intents []model.Intent
			if err := json.Unmarshal(data, &intents); err != nil {
				return fmt.Errorf("failed to parse intents: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			for i := range intents {
				if err := store.SaveIntent(ctx, &intents[i]); err != nil {
					return fmt.Errorf("failed to save intent %s: %w", intents[i].ID, err)
				}
			}

			slog.Info("Imported intents", "count", len(intents))
			return nil
		},
	}
}

func intentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's intents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ownerID, _ := cmd.Flags().GetString("owner")
			if ownerID == "" {
				return fmt.Errorf("--owner is required")
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			intents, err := store.GetIntentsByOwner(ctx, ownerID)
			if err != nil {
				return fmt.Errorf("failed to list intents: %w", err)
			}

			for _, intent := range intents {
				fmt.Printf("%-20s threshold=%.2f priority=%d conditions=%d %s\n",
					intent.ID, intent.Threshold, intent.Priority,
					intent.ConditionCount(), intent.Description)
			}
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owner ID to list intents for")
	return cmd
}

func intentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <intent-id>",
		Short: "Delete an intent and withdraw its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteIntent(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete intent: %w", err)
			}

			slog.Info("Deleted intent", "intent_id", args[0])
			return nil
		},
	}
}

func intentsRethresholdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rethreshold <intent-id>",
		Short: "Raise an intent's threshold and withdraw matches below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if threshold < 0 || threshold > 1 {
				return fmt.Errorf("threshold must be in [0,1], got %.2f", threshold)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			intent, err := store.GetIntent(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load intent: %w", err)
			}

			intent.Threshold = threshold
			if err := store.SaveIntent(ctx, intent); err != nil {
				return fmt.Errorf("failed to update intent: %w", err)
			}

			withdrawn, err := store.WithdrawMatchesBelowScore(ctx, intent.ID, threshold)
			if err != nil {
				return fmt.Errorf("failed to withdraw matches: %w", err)
			}

			slog.Info("Raised intent threshold",
				"intent_id", intent.ID,
				"threshold", threshold,
				"withdrawn", withdrawn)
			return nil
		},
	}

	cmd.Flags().Float64("threshold", 0.5, "new score threshold")
	return cmd
}
