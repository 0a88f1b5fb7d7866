package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/replay"
	"github.com/perpintel/engine/internal/state"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Historical replay and outcome labeling",
	}
	cmd.AddCommand(newReplayBatchCmd())
	return cmd
}

func newReplayBatchCmd() *cobra.Command {
	var (
		start, end string
		step       candle.Timeframe
		maxSamples int
		demoBars   int
	)

	cmd := &cobra.Command{
		Use:   "batch <symbol>",
		Short: "Run the pipeline over a deterministic list of past as-of timestamps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := args[0]
			startT, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endT, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}

			nowMs := endT.UnixMilli()
			deps, err := defaultDeps(symbol, demoBars, nowMs)
			if err != nil {
				return err
			}
			run := deps.buildRunner()

			b, err := replay.NewBatch("cli-"+symbol, replay.Request{
				Symbol:     symbol,
				StartTime:  startT.UnixMilli(),
				EndTime:    endT.UnixMilli(),
				StepSize:   step,
				MaxSamples: maxSamples,
			}, deps.ConfigStore.Active().Version)
			if err != nil {
				return err
			}

			store := replay.NewMemory()
			orch := replay.NewOrchestrator(func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
				return run(ctx, symbol, candle.TF1h, asOfMs)
			}, store)

			if err := orch.RunBatch(context.Background(), b); err != nil {
				return err
			}

			results, _ := store.Results(context.Background(), b.ID)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"batchId":  b.ID,
				"status":   b.Status,
				"samples":  len(b.Timestamps),
				"failures": b.Failures,
				"results":  results,
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "RFC3339 batch start time")
	cmd.Flags().StringVar(&end, "end", "", "RFC3339 batch end time")
	cmd.Flags().Var(newTimeframeFlag(&step, candle.TF1h), "step", "step size (30m|1h|4h)")
	cmd.Flags().IntVar(&maxSamples, "max-samples", 50, "maximum as-of samples (capped at 200)")
	cmd.Flags().IntVar(&demoBars, "demo-bars", 240, "synthetic candle count to seed for the demo provider")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}
