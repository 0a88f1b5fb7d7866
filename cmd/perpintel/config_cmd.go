package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perpintel/engine/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the versioned pipeline configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigGuardProfilesCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the default/active configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(config.Default())
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Validate a proposed config file against structural and bounded-delta rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var proposed config.Config
			data, err := readFile(args[0])
			if err != nil {
				return err
			}
			if err := json.Unmarshal(data, &proposed); err != nil {
				return fmt.Errorf("invalid config json: %w", err)
			}
			if err := config.Validate(proposed); err != nil {
				return err
			}
			if err := config.ValidateDelta(config.Default(), proposed); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

func newConfigGuardProfilesCmd() *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "guard-profiles <file.yaml>",
		Short: "Print a regime-scoped guard profile's Gates/Penalties overlaid on the default config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.LoadGuardProfiles(args[0])
			if err != nil {
				return err
			}
			if profileName != "" {
				doc.Active = profileName
			}
			profile, err := doc.ActiveProfile()
			if err != nil {
				return err
			}
			merged := config.ApplyGuardProfile(config.Default(), profile)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(merged)
		},
	}
	cmd.Flags().StringVar(&profileName, "profile", "", "profile name to activate; defaults to the file's active_profile")
	return cmd
}
