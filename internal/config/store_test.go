package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpintel/engine/internal/xerr"
)

func TestStore_OptimisticConcurrency_Conflict(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)

	proposed := store.Active()
	proposed.Notes = "tweak"

	_, err = store.Update(999, proposed, "bad base version")
	require.Error(t, err)
	assert.True(t, xerr.Is(err, xerr.VersionConflict))
}

func TestStore_Update_AppliesAndVersions(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)

	active := store.Active()
	proposed := active.Clone()
	proposed.Notes = "updated"

	updated, err := store.Update(active.Version, proposed, "notes update")
	require.NoError(t, err)
	assert.Equal(t, active.Version+1, updated.Version)
}

func TestStore_Update_RejectsBoundedDeltaViolation(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)

	active := store.Active()
	proposed := active.Clone()
	proposed.Weights.Signals["technical"] += 0.3 // 0.20 -> 0.50 exceeds 0.25 bound
	proposed.Weights.Signals["exchange_divergence"] -= 0.15
	proposed.Weights.Signals["market_regime"] -= 0.15

	_, err = store.Update(active.Version, proposed, "big jump")
	require.Error(t, err)
}

func TestStore_LoadVersion_ByteIdentical(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)

	v1, err := store.LoadVersion(1)
	require.NoError(t, err)
	v1Again, err := store.LoadVersion(1)
	require.NoError(t, err)
	assert.Equal(t, v1, v1Again)
}

func TestStore_ExportImport_RoundTrip(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)

	exported := store.Export()
	proposed, changed, err := store.Import(exported)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, exported.Version, proposed.Version)
}

func TestValidate_RejectsBadWeightSum(t *testing.T) {
	c := Default()
	c.Weights.Signals["technical"] = 0.99
	err := Validate(c)
	require.Error(t, err)
}

func TestValidate_RejectsMissingRequiredSignal(t *testing.T) {
	c := Default()
	delete(c.Weights.Signals, "funding")
	err := Validate(c)
	require.Error(t, err)
}
