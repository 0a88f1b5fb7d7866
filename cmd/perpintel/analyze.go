package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/config"
)

func newAnalyzeCmd() *cobra.Command {
	var tf candle.Timeframe
	var demoBars int
	var asOfStr string
	var guardProfileFile, guardProfileName string

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Run one pipeline cycle and print the Market State Object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := args[0]

			nowMs := time.Now().UTC().UnixMilli()
			asOfMs := nowMs
			if asOfStr != "" {
				t, err := time.Parse(time.RFC3339, asOfStr)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				asOfMs = t.UnixMilli()
			}

			deps, err := defaultDeps(symbol, demoBars, asOfMs)
			if err != nil {
				return err
			}

			if guardProfileFile != "" {
				doc, err := config.LoadGuardProfiles(guardProfileFile)
				if err != nil {
					return err
				}
				if guardProfileName != "" {
					doc.Active = guardProfileName
				}
				profile, err := doc.ActiveProfile()
				if err != nil {
					return err
				}
				active := deps.ConfigStore.Active()
				overridden := config.ApplyGuardProfile(active, profile)
				if _, err := deps.ConfigStore.Update(active.Version, overridden, "guard-profile:"+profile.Name); err != nil {
					return err
				}
			}
			run := deps.buildRunner()

			ms, err := run(context.Background(), symbol, tf, asOfMs)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ms)
		},
	}

	cmd.Flags().VarP(newTimeframeFlag(&tf, candle.TF1h), "timeframe", "t", "primary timeframe (30m|1h|4h|1d)")
	cmd.Flags().IntVar(&demoBars, "demo-bars", 120, "synthetic candle count to seed for the demo provider")
	cmd.Flags().StringVar(&asOfStr, "as-of", "", "RFC3339 as-of timestamp; defaults to now")
	cmd.Flags().StringVar(&guardProfileFile, "guard-profile-file", "", "guard-profiles YAML file (regime-scoped gate/penalty overrides)")
	cmd.Flags().StringVar(&guardProfileName, "guard-profile", "", "profile name to activate from --guard-profile-file; defaults to the file's active_profile")
	return cmd
}
