package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateWith(effects ...Effect) State {
	s := NewState()
	for _, e := range effects {
		s.Effects[e] = true
	}
	return s
}

func TestFiltersFor_NoEffects(t *testing.T) {
	f := FiltersFor(NewState())
	assert.Empty(t, f.Equalizer)
	assert.Nil(t, f.Timescale)
	assert.Nil(t, f.Karaoke)
	assert.Nil(t, f.Tremolo)
	assert.Nil(t, f.Vibrato)
	assert.Nil(t, f.Distortion)
}

func TestFiltersFor_Nightcore(t *testing.T) {
	f := FiltersFor(stateWith(EffectNightcore))
	require.NotNil(t, f.Timescale)
	assert.Equal(t, 1.2, f.Timescale.Speed)
	assert.Equal(t, 1.2, f.Timescale.Pitch)
}

func TestFiltersFor_VaporwaveWinsOverNightcore(t *testing.T) {
	f := FiltersFor(stateWith(EffectNightcore, EffectVaporwave))
	require.NotNil(t, f.Timescale)
	assert.Equal(t, 0.85, f.Timescale.Speed)
}

func TestFiltersFor_EqBandsCombine(t *testing.T) {
	f := FiltersFor(stateWith(EffectBassBoost, EffectTreble))
	assert.Len(t, f.Equalizer, 6)
	assert.Equal(t, 0, f.Equalizer[0].Band)
	assert.Equal(t, 13, f.Equalizer[5].Band)
}

func TestFiltersFor_IndependentFilters(t *testing.T) {
	f := FiltersFor(stateWith(EffectKaraoke, EffectTremolo, EffectVibrato, EffectDistortion))
	assert.NotNil(t, f.Karaoke)
	assert.NotNil(t, f.Tremolo)
	assert.NotNil(t, f.Vibrato)
	assert.NotNil(t, f.Distortion)
	assert.Nil(t, f.Timescale)
}

func TestState_ActiveEffectsOrdered(t *testing.T) {
	s := stateWith(EffectDistortion, EffectBassBoost)
	assert.Equal(t, []Effect{EffectBassBoost, EffectDistortion}, s.ActiveEffects())
	assert.Empty(t, NewState().ActiveEffects())
}
