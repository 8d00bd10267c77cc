package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func matchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Inspect stored matches",
	}

	cmd.AddCommand(matchesListCmd())
	cmd.AddCommand(matchesReadCmd())

	return cmd
}

func matchesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <intent-id>",
		Short: "List an intent's matches, best score first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			matches, err := store.GetMatchesForIntent(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list matches: %w", err)
			}

			for _, m := range matches {
				fmt.Printf("%-20s score=%.3f status=%-9s notified=%-5v %s\n",
					m.ProfileID, m.Score, m.Status, m.Notified, m.Explanation)
			}
			return nil
		},
	}
}

func matchesReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <intent-id> <profile-id>",
		Short: "Mark a pending match as read",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.MarkMatchRead(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to mark match read: %w", err)
			}

			slog.Info("Marked match read", "intent_id", args[0], "profile_id", args[1])
			return nil
		},
	}
}
