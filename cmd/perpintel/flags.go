package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/perpintel/engine/internal/candle"
)

// timeframeValue is a pflag.Value that only accepts the closed
// timeframe set (§3), so an invalid --timeframe is rejected by cobra's
// own flag parsing instead of by a RunE-time check.
type timeframeValue struct {
	tf *candle.Timeframe
}

var _ pflag.Value = (*timeframeValue)(nil)

func newTimeframeFlag(dst *candle.Timeframe, def candle.Timeframe) *timeframeValue {
	*dst = def
	return &timeframeValue{tf: dst}
}

func (v *timeframeValue) String() string {
	if v.tf == nil {
		return ""
	}
	return string(*v.tf)
}

func (v *timeframeValue) Set(s string) error {
	tf := candle.Timeframe(s)
	if !tf.Valid() {
		return fmt.Errorf("must be one of 30m|1h|4h|1d, got %q", s)
	}
	*v.tf = tf
	return nil
}

func (v *timeframeValue) Type() string {
	return "timeframe"
}
