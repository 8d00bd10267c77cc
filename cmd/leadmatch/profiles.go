package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaylabs/leadmatch/internal/model"
)

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage candidate profiles",
	}

	cmd.AddCommand(profilesImportCmd())
	cmd.AddCommand(profilesListCmd())
	cmd.AddCommand(profilesDeleteCmd())

	return cmd
}

func profilesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import profiles from a JSON file",
		Long:  `Import profiles from a JSON file containing an array of profile objects.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			var profiles []model.Profile
			if err := json.Unmarshal(data, &profiles); err != nil {
				return fmt.Errorf("failed to parse profiles: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			for i := range profiles {
				if err := store.SaveProfile(ctx, &profiles[i]); err != nil {
					return fmt.Errorf("failed to save profile %s: %w", profiles[i].ID, err)
				}
			}

			slog.Info("Imported profiles", "count", len(profiles))
			return nil
		},
	}
}

func profilesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's profiles",
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

			profiles, err := store.GetProfilesByOwner(ctx, ownerID)
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}

			for _, profile := range profiles {
				fmt.Printf("%-20s attributes=%d tags=%v\n",
					profile.ID, len(profile.Attributes), profile.Tags)
			}
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owner ID to list profiles for")
	return cmd
}

func profilesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <profile-id>",
		Short: "Delete a profile and withdraw its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteProfile(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete profile: %w", err)
			}

			slog.Info("Deleted profile", "profile_id", args[0])
			return nil
		},
	}
}
