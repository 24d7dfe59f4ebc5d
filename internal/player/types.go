package player

import "time"

// Track is an immutable description of a playable item. Encoded is the opaque
// handle the audio node needs to play it; everything else is display metadata.
// Tracks are never mutated once queued.
type Track struct {
	Encoded     string
	Title       string
	Author      string
	URI         string
	Length      time.Duration // 0 means live/unbounded
	ArtworkURL  string
	RequestedBy string // user id of whoever queued it, may be empty
}

// IsLive reports whether the track has no known end.
func (t Track) IsLive() bool { return t.Length == 0 }

type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
	StatusDestroyed
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "idle"
	}
}

type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopTrack
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopTrack:
		return "track"
	case LoopQueue:
		return "queue"
	default:
		return "none"
	}
}

func ParseLoopMode(s string) LoopMode {
	switch s {
	case "track":
		return LoopTrack
	case "queue":
		return LoopQueue
	default:
		return LoopNone
	}
}

// Effect names an audio filter toggle. Effects are orthogonal to queue/loop
// logic; they only change the filter payload sent to the node.
type Effect string

const (
	EffectBassBoost  Effect = "bassboost"
	EffectNightcore  Effect = "nightcore"
	EffectVaporwave  Effect = "vaporwave"
	EffectTreble     Effect = "treble"
	EffectKaraoke    Effect = "karaoke"
	EffectTremolo    Effect = "tremolo"
	EffectVibrato    Effect = "vibrato"
	EffectDistortion Effect = "distortion"
)

// AllEffects lists every toggleable effect, in display order.
var AllEffects = []Effect{
	EffectBassBoost, EffectNightcore, EffectVaporwave, EffectTreble,
	EffectKaraoke, EffectTremolo, EffectVibrato, EffectDistortion,
}

func ParseEffect(s string) (Effect, bool) {
	for _, e := range AllEffects {
		if string(e) == s {
			return e, true
		}
	}
	return "", false
}

const DefaultVolume = 100

// State is the user-tunable part of a guild player. It is seeded from the
// settings store when a session starts and written back on every change.
type State struct {
	Loop     LoopMode
	Autoplay bool
	Volume   int // 0-200
	Effects  map[Effect]bool
}

func NewState() State {
	return State{
		Loop:    LoopNone,
		Volume:  DefaultVolume,
		Effects: make(map[Effect]bool),
	}
}

// ActiveEffects returns the enabled effects in AllEffects order.
func (s State) ActiveEffects() []Effect {
	var out []Effect
	for _, e := range AllEffects {
		if s.Effects[e] {
			out = append(out, e)
		}
	}
	return out
}
