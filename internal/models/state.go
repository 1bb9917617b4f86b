package models

// SuggestionCandidate is one replacement option offered after the playing
// song is voted out.
type SuggestionCandidate struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// PendingSuggestion is the time-boxed negotiation created when the currently
// playing song is removed mid-play. Only the listener who cast the killing
// vote may pick; the window lapses at ExpiresAt.
type PendingSuggestion struct {
	Suggestions []SuggestionCandidate `json:"suggestions"`
	ChooserID   string                `json:"voterId"`
	ExpiresAt   int64                 `json:"expiresAt"` // ms since epoch
}

// BroadcastState is the read-only snapshot pushed to every listener.
// Removed songs are filtered out of the public playlist; timestamps are
// millisecond epochs so clients can do offset math against ServerTime.
type BroadcastState struct {
	Playlist           []Song             `json:"playlist"`
	CurrentSong        *Song              `json:"currentSong"`
	CurrentIndex       int                `json:"currentIndex"`
	SongStartTime      int64              `json:"songStartTime"` // ms since epoch
	IsPlaying          bool               `json:"isPlaying"`
	ServerTime         int64              `json:"serverTime"` // ms since epoch
	PendingSuggestions *PendingSuggestion `json:"pendingSuggestions"`
	ListenerCount      int                `json:"listenerCount"`
}
