package hub

// clientMessage is the single inbound envelope. Fields beyond Type are
// command-specific; unused ones stay zero.
type clientMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"clientTime,omitempty"` // ping
	SongID     string `json:"songId,omitempty"`     // vote
	VoteType   string `json:"voteType,omitempty"`   // vote
	Index      int    `json:"index,omitempty"`      // select_suggestion
}

// serverMessage is the outbound envelope.
type serverMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// pongPayload echoes the client's timestamp next to the server's so the
// client can estimate its clock offset from one round trip.
type pongPayload struct {
	ClientTime int64 `json:"clientTime"`
	ServerTime int64 `json:"serverTime"`
}

// Inbound command types.
const (
	msgPing             = "ping"
	msgVote             = "vote"
	msgSelectSuggestion = "select_suggestion"
	msgSkip             = "skip"
	msgTogglePlayback   = "toggle_playback"
	msgRequestSync      = "request_sync"
)

// Outbound event types.
const (
	evtPong         = "pong"
	evtStateUpdate  = "state_update"
	evtSyncResponse = "sync_response"
	evtSongRemoved  = "song_removed"
	evtSongImmortal = "song_immortal"
)
