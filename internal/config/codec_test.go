package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAML_MarshalUnmarshal_RoundTrip(t *testing.T) {
	cfg := Default()

	data, err := MarshalYAML(cfg)
	require.NoError(t, err)

	roundTripped, err := UnmarshalYAML(data)
	require.NoError(t, err)

	assert.Equal(t, cfg.Version, roundTripped.Version)
	assert.Equal(t, cfg.Weights, roundTripped.Weights)
	assert.Equal(t, cfg.Thresholds, roundTripped.Thresholds)
	assert.Equal(t, cfg.Gates, roundTripped.Gates)
	assert.Equal(t, cfg.Penalties, roundTripped.Penalties)
	assert.Equal(t, cfg.Bounds, roundTripped.Bounds)
	assert.Equal(t, cfg.Divergence, roundTripped.Divergence)
	assert.Equal(t, cfg.Outcome, roundTripped.Outcome)
	assert.True(t, cfg.CreatedAt.Equal(roundTripped.CreatedAt))
	assert.Equal(t, cfg.CreatedBy, roundTripped.CreatedBy)
	assert.Equal(t, cfg.Notes, roundTripped.Notes)
}

func TestGuardProfiles_SaveLoadActiveProfile_RoundTrip(t *testing.T) {
	doc := &GuardProfilesDocument{
		Active: "choppy",
		Profiles: map[string]GuardProfile{
			"choppy": {
				Name:      "choppy",
				Gates:     Gates{MacroPermission: 0.6, MacroAnchor: 0.5, SetupVeto: 0.3, StalenessMultiplier: 2, FundingZExtreme: 2.5},
				Penalties: Penalties{ConflictRatio: 0.5, ConflictPenaltyFactor: 0.6, AlignmentBonus: 0.05, StalenessPenaltyFactor: 0.2},
			},
			"trending": {
				Name:      "trending",
				Gates:     Gates{MacroPermission: 0.4, MacroAnchor: 0.4, SetupVeto: 0.2, StalenessMultiplier: 1.5, FundingZExtreme: 3},
				Penalties: Penalties{ConflictRatio: 0.4, ConflictPenaltyFactor: 0.5, AlignmentBonus: 0.1, StalenessPenaltyFactor: 0.15},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "guard_profiles.yaml")
	require.NoError(t, SaveGuardProfiles(doc, path))

	loaded, err := LoadGuardProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Active, loaded.Active)
	assert.Len(t, loaded.Profiles, 2)

	active, err := loaded.ActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, "choppy", active.Name)

	loaded.Active = "missing"
	_, err = loaded.ActiveProfile()
	assert.Error(t, err)
}

func TestApplyGuardProfile_OverlaysGatesAndPenaltiesOnly(t *testing.T) {
	base := Default()
	profile := GuardProfile{
		Name:      "choppy",
		Gates:     Gates{MacroPermission: 0.6, MacroAnchor: 0.5, SetupVeto: 0.3, StalenessMultiplier: 2, FundingZExtreme: 2.5},
		Penalties: Penalties{ConflictRatio: 0.5, ConflictPenaltyFactor: 0.6, AlignmentBonus: 0.05, StalenessPenaltyFactor: 0.2},
	}

	merged := ApplyGuardProfile(base, profile)

	assert.Equal(t, profile.Gates, merged.Gates)
	assert.Equal(t, profile.Penalties, merged.Penalties)
	assert.Equal(t, base.Weights, merged.Weights)
	assert.Equal(t, base.Thresholds, merged.Thresholds)
}
