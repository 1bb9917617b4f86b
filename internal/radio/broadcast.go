package radio

import "github.com/whisper-Tech/DNA-radio/internal/models"

// SongRemovedEvent announces that the playing song was voted out and a
// suggestion window has opened. NextIndex is where playback lands if the
// window lapses without a pick.
type SongRemovedEvent struct {
	SongID             string                    `json:"songId"`
	NextIndex          int                       `json:"nextIndex"`
	PendingSuggestions *models.PendingSuggestion `json:"pendingSuggestions,omitempty"`
}

// SongImmortalEvent announces that a song reached max health.
type SongImmortalEvent struct {
	SongID string `json:"songId"`
	Title  string `json:"title"`
}

// Broadcaster receives engine events for fan-out to connected listeners.
//
// The engine calls these synchronously while holding its own lock, so events
// arrive in the exact order the state changed. Implementations must not call
// back into the engine and must not block.
type Broadcaster interface {
	StateUpdate(state models.BroadcastState)
	SongRemoved(event SongRemovedEvent)
	SongImmortal(event SongImmortalEvent)
}

// NopBroadcaster discards every event. Used before the hub is attached and
// in tests that don't care about fan-out.
type NopBroadcaster struct{}

func (NopBroadcaster) StateUpdate(models.BroadcastState) {}
func (NopBroadcaster) SongRemoved(SongRemovedEvent)      {}
func (NopBroadcaster) SongImmortal(SongImmortalEvent)    {}
