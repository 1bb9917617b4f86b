// Package suggest produces replacement candidates after the playing song is
// voted out. The provider contract is strict: it always returns a full
// candidate list and never propagates a failure — the negotiation window is
// only ten seconds, so there is no time to surface errors to anyone.
package suggest

import (
	"context"

	"github.com/whisper-Tech/DNA-radio/internal/config"
	"github.com/whisper-Tech/DNA-radio/internal/models"
)

// Provider returns an ordered list of replacement candidates for an
// interrupted song.
type Provider interface {
	Suggest(ctx context.Context, interrupted models.Song) []models.SuggestionCandidate
}

// fallbackCandidates is served whenever the upstream model is unreachable or
// returns something unusable.
var fallbackCandidates = []models.SuggestionCandidate{
	{Title: "Resonance", Artist: "Home"},
	{Title: "Nightcall", Artist: "Kavinsky"},
	{Title: "Turbo Killer", Artist: "Carpenter Brut"},
	{Title: "After Dark", Artist: "Mr.Kitty"},
}

// New builds the configured provider. Without an API key the static list is
// used directly.
func New(cfg *config.Config) Provider {
	count := cfg.Radio.SuggestionCount
	if count <= 0 {
		count = len(fallbackCandidates)
	}
	if cfg.Services.SuggestAPIKey == "" {
		return &StaticProvider{Count: count}
	}
	return &AIProvider{
		apiURL: cfg.Services.SuggestAPIURL,
		apiKey: cfg.Services.SuggestAPIKey,
		model:  cfg.Services.SuggestModel,
		count:  count,
	}
}

// StaticProvider serves the fixed fallback list.
type StaticProvider struct {
	Count int
}

func (p *StaticProvider) Suggest(ctx context.Context, interrupted models.Song) []models.SuggestionCandidate {
	return pad(nil, p.Count)
}

// pad trims the list to count entries, topping up from the fallback list
// when the upstream came back short.
func pad(candidates []models.SuggestionCandidate, count int) []models.SuggestionCandidate {
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	for i := 0; len(candidates) < count; i++ {
		candidates = append(candidates, fallbackCandidates[i%len(fallbackCandidates)])
	}
	return candidates
}
