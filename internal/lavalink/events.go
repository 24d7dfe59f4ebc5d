package lavalink

// wire frames received on the node websocket

type wsMessage struct {
	Op        string `json:"op"`
	SessionID string `json:"sessionId,omitempty"` // op=ready
	Resumed   bool   `json:"resumed,omitempty"`   // op=ready
	Type      string `json:"type,omitempty"`      // op=event
	GuildID   string `json:"guildId,omitempty"`
}

type playerUpdateMessage struct {
	GuildID string `json:"guildId"`
	State   struct {
		Time      int64 `json:"time"`     // unix ms on the node
		Position  int64 `json:"position"` // track position in ms
		Connected bool  `json:"connected"`
		Ping      int64 `json:"ping"`
	} `json:"state"`
}

type trackStartEvent struct {
	GuildID string `json:"guildId"`
	Track   Track  `json:"track"`
}

type trackEndEvent struct {
	GuildID string         `json:"guildId"`
	Track   Track          `json:"track"`
	Reason  TrackEndReason `json:"reason"`
}

type trackExceptionEvent struct {
	GuildID   string `json:"guildId"`
	Track     Track  `json:"track"`
	Exception struct {
		Message  string `json:"message"`
		Severity string `json:"severity"`
		Cause    string `json:"cause"`
	} `json:"exception"`
}

type websocketClosedEvent struct {
	GuildID  string `json:"guildId"`
	Code     int    `json:"code"`
	Reason   string `json:"reason"`
	ByRemote bool   `json:"byRemote"`
}

// TrackStartHandler is invoked for every track-start notification from the node.
type TrackStartHandler func(guildID string, track Track)

// TrackEndHandler is invoked for every track-end notification from the node.
type TrackEndHandler func(guildID string, track Track, reason TrackEndReason)
