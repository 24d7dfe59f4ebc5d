package player

import "github.com/nvallance/quaver/internal/lavalink"

// FiltersFor builds the node filter payload for the enabled effects.
// Nightcore and vaporwave both use the timescale filter; when both are on the
// later one in AllEffects order wins.
func FiltersFor(state State) lavalink.Filters {
	var f lavalink.Filters

	if state.Effects[EffectBassBoost] {
		f.Equalizer = append(f.Equalizer,
			lavalink.EqBand{Band: 0, Gain: 0.2},
			lavalink.EqBand{Band: 1, Gain: 0.15},
			lavalink.EqBand{Band: 2, Gain: 0.1},
		)
	}
	if state.Effects[EffectTreble] {
		f.Equalizer = append(f.Equalizer,
			lavalink.EqBand{Band: 11, Gain: 0.15},
			lavalink.EqBand{Band: 12, Gain: 0.2},
			lavalink.EqBand{Band: 13, Gain: 0.25},
		)
	}
	if state.Effects[EffectNightcore] {
		f.Timescale = &lavalink.Timescale{Speed: 1.2, Pitch: 1.2, Rate: 1.0}
	}
	if state.Effects[EffectVaporwave] {
		f.Timescale = &lavalink.Timescale{Speed: 0.85, Pitch: 0.85, Rate: 1.0}
	}
	if state.Effects[EffectKaraoke] {
		f.Karaoke = &lavalink.Karaoke{Level: 1.0, MonoLevel: 1.0, FilterBand: 220, FilterWidth: 100}
	}
	if state.Effects[EffectTremolo] {
		f.Tremolo = &lavalink.Tremolo{Frequency: 2.0, Depth: 0.5}
	}
	if state.Effects[EffectVibrato] {
		f.Vibrato = &lavalink.Vibrato{Frequency: 2.0, Depth: 0.5}
	}
	if state.Effects[EffectDistortion] {
		f.Distortion = &lavalink.Distortion{
			SinOffset: 0, SinScale: 1, CosOffset: 0, CosScale: 1,
			TanOffset: 0, TanScale: 1, Offset: 0, Scale: 1.2,
		}
	}
	return f
}
