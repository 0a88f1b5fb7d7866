package divergence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/enums"
)

func TestAnalyze_BelowUnclearFloorIsUnclear(t *testing.T) {
	cfg := config.Default()
	retail := ExchangeSnapshot{Exchange: "binance", OIChangePct: 0.1}
	whale := ExchangeSnapshot{Exchange: "bybit", OIChangePct: 0.2}
	r := Analyze(retail, whale, cfg)
	assert.Equal(t, enums.ScenarioUnclear, r.Scenario)
}

func TestAnalyze_WhaleDistribution(t *testing.T) {
	cfg := config.Default()
	retail := ExchangeSnapshot{Exchange: "binance", OIChangePct: 3, CVDSlope: 0.2}
	whale := ExchangeSnapshot{Exchange: "bybit", OIChangePct: -3, CVDSlope: -0.2}
	r := Analyze(retail, whale, cfg)
	assert.Equal(t, enums.ScenarioWhaleDistribution, r.Scenario)
	assert.Equal(t, enums.Short, r.Bias)
}

func TestAnalyze_SynchronizedBull(t *testing.T) {
	cfg := config.Default()
	retail := ExchangeSnapshot{Exchange: "binance", OIChangePct: 2, CVDSlope: 0.1}
	whale := ExchangeSnapshot{Exchange: "bybit", OIChangePct: 5, CVDSlope: 0.3}
	r := Analyze(retail, whale, cfg)
	assert.Equal(t, enums.ScenarioSynchronizedBull, r.Scenario)
	assert.Equal(t, enums.Long, r.Bias)
}
