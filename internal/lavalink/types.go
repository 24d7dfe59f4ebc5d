package lavalink

import "encoding/json"

// Track is a playable item as the node describes it. Encoded is the opaque
// handle the node requires to (re)start playback.
type Track struct {
	Encoded string    `json:"encoded"`
	Info    TrackInfo `json:"info"`
}

type TrackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"` // milliseconds, 0 for streams
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl"`
	SourceName string `json:"sourceName"`
}

// TrackEndReason reports why the node stopped a track.
type TrackEndReason string

const (
	TrackEndFinished   TrackEndReason = "finished"
	TrackEndLoadFailed TrackEndReason = "loadFailed"
	TrackEndStopped    TrackEndReason = "stopped"
	TrackEndReplaced   TrackEndReason = "replaced"
	TrackEndCleanup    TrackEndReason = "cleanup"
)

// MayStartNext reports whether queue-advance logic should run for this reason.
// A replaced or stopped track was already handled by whoever replaced/stopped it.
func (r TrackEndReason) MayStartNext() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed
}

type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// LoadResult is the decoded response of the node's loadtracks endpoint.
type LoadResult struct {
	Type         LoadType
	Tracks       []Track
	PlaylistName string
	ErrorMessage string
}

type loadResultEnvelope struct {
	LoadType LoadType        `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type playlistData struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Tracks []Track `json:"tracks"`
}

type loadException struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Filters is the node's audio filter payload. Zero value means "no filters".
type Filters struct {
	Volume     *float64    `json:"volume,omitempty"`
	Equalizer  []EqBand    `json:"equalizer,omitempty"`
	Karaoke    *Karaoke    `json:"karaoke,omitempty"`
	Timescale  *Timescale  `json:"timescale,omitempty"`
	Tremolo    *Tremolo    `json:"tremolo,omitempty"`
	Vibrato    *Vibrato    `json:"vibrato,omitempty"`
	Distortion *Distortion `json:"distortion,omitempty"`
}

type EqBand struct {
	Band int     `json:"band"` // 0-14
	Gain float64 `json:"gain"` // -0.25 to 1.0
}

type Karaoke struct {
	Level       float64 `json:"level"`
	MonoLevel   float64 `json:"monoLevel"`
	FilterBand  float64 `json:"filterBand"`
	FilterWidth float64 `json:"filterWidth"`
}

type Timescale struct {
	Speed float64 `json:"speed"`
	Pitch float64 `json:"pitch"`
	Rate  float64 `json:"rate"`
}

type Tremolo struct {
	Frequency float64 `json:"frequency"`
	Depth     float64 `json:"depth"`
}

type Vibrato struct {
	Frequency float64 `json:"frequency"`
	Depth     float64 `json:"depth"`
}

type Distortion struct {
	SinOffset float64 `json:"sinOffset"`
	SinScale  float64 `json:"sinScale"`
	CosOffset float64 `json:"cosOffset"`
	CosScale  float64 `json:"cosScale"`
	TanOffset float64 `json:"tanOffset"`
	TanScale  float64 `json:"tanScale"`
	Offset    float64 `json:"offset"`
	Scale     float64 `json:"scale"`
}

// VoiceState carries the discord voice credentials the node needs to join.
type VoiceState struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

type playerUpdate struct {
	Track   *trackUpdate `json:"track,omitempty"`
	Paused  *bool        `json:"paused,omitempty"`
	Volume  *int         `json:"volume,omitempty"`
	Filters *Filters     `json:"filters,omitempty"`
	Voice   *VoiceState  `json:"voice,omitempty"`
}

type trackUpdate struct {
	Encoded *string `json:"encoded"` // null stops playback
}
