// Package metadata maps a (title, artist) pair to a playable media
// identifier. Resolution talks to an external search API and is therefore
// best-effort: a miss or an outage yields ErrNotFound, never a hang.
package metadata

import (
	"context"
	"errors"

	"github.com/whisper-Tech/DNA-radio/internal/config"
)

// ErrNotFound means no playable media could be matched. Callers promote the
// song anyway and leave the media id empty ("resolution pending" on the
// client side).
var ErrNotFound = errors.New("metadata: no media found")

// Resolver finds the playable media identifier for a song.
type Resolver interface {
	Resolve(ctx context.Context, title, artist string, durationHintMs int) (string, error)
}

// New builds the configured resolver chain. Without an API key every lookup
// is a miss, which keeps the broadcast running in offline setups.
func New(cfg *config.Config) Resolver {
	if cfg.Services.YoutubeAPIKey == "" {
		return disabledResolver{}
	}
	return NewCache(NewYouTube(cfg.Services.YoutubeAPIKey))
}

type disabledResolver struct{}

func (disabledResolver) Resolve(ctx context.Context, title, artist string, durationHintMs int) (string, error) {
	return "", ErrNotFound
}
