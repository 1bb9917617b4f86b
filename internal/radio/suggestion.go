package radio

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/whisper-Tech/DNA-radio/internal/models"
)

// beginInterruptLocked opens the suggestion window after the playing song is
// voted out. Only the listener who cast the killing vote may pick; the window
// lapses after the configured timeout and forces a plain advancement.
//
// Candidate generation happens off the lock — the window clock starts
// immediately, candidates are filled in and announced once they arrive.
func (e *Engine) beginInterruptLocked(removed *models.Song, chooserID string) {
	e.pendingGen++
	gen := e.pendingGen
	if e.suggestionTimer != nil {
		e.suggestionTimer.Stop()
	}

	window := e.suggestionWindow()
	e.pending = &models.PendingSuggestion{
		ChooserID: chooserID,
		ExpiresAt: e.clock.Now().Add(window).UnixMilli(),
	}
	nextIndex := e.nextValidIndexLocked(e.currentIndex)
	e.suggestionTimer = time.AfterFunc(window, func() {
		e.expireSuggestion(gen)
	})
	log.Printf("🗳️ [SUGGEST] %q interrupted, %s has %v to pick a replacement", removed.Title, chooserID, window)

	interrupted := *removed
	go func() {
		candidates := e.suggest.Suggest(context.Background(), interrupted)

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.pendingGen != gen || e.pending == nil {
			// Window already resolved while we were fetching.
			return
		}
		e.pending.Suggestions = candidates
		e.bcast.SongRemoved(SongRemovedEvent{
			SongID:             interrupted.ID,
			NextIndex:          nextIndex,
			PendingSuggestions: e.pending,
		})
		e.broadcastStateLocked()
	}()
}

// expireSuggestion closes the window if it is still the same one the timer
// was armed for, then advances. The generation check makes a late timer
// firing after a pick (or after a newer window) a no-op.
func (e *Engine) expireSuggestion(gen int) {
	e.mu.Lock()
	if e.pendingGen != gen || e.pending == nil {
		e.mu.Unlock()
		return
	}
	e.pending = nil
	e.suggestionTimer = nil
	e.mu.Unlock()

	log.Println("⏰ [SUGGEST] Window expired without a pick")
	e.advance(true, "suggestion_expired")
}

// SelectSuggestion resolves the window with the chooser's pick. Calls from
// anyone but the chooser, picks outside the candidate range, and picks after
// the window closed are all silently ignored.
func (e *Engine) SelectSuggestion(chooserID string, index int) {
	e.mu.Lock()
	p := e.pending
	if p == nil {
		e.mu.Unlock()
		return
	}
	if p.ChooserID != chooserID {
		e.mu.Unlock()
		log.Printf("⚠️ [SUGGEST] Ignoring pick from %s, window belongs to %s", chooserID, p.ChooserID)
		return
	}
	if index < 0 || index >= len(p.Suggestions) {
		e.mu.Unlock()
		log.Printf("⚠️ [SUGGEST] Pick %d out of range", index)
		return
	}
	pick := p.Suggestions[index]
	e.pendingGen++
	if e.suggestionTimer != nil {
		e.suggestionTimer.Stop()
		e.suggestionTimer = nil
	}
	e.pending = nil
	// Hold the advancement guard while the pick's media id resolves.
	e.transitioning = true
	e.mu.Unlock()

	var mediaID string
	if e.resolver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		if id, err := e.resolver.Resolve(ctx, pick.Title, pick.Artist, e.defaultDuration()); err == nil {
			mediaID = id
		}
		cancel()
	}

	now := e.clock.Now()
	song := &models.Song{
		ID:        fmt.Sprintf("ai_%d_%s", now.UnixMilli(), uuid.NewString()[:8]),
		Title:     pick.Title,
		Artist:    pick.Artist,
		MediaID:   mediaID,
		Duration:  e.defaultDuration(),
		Status:    models.StatusActive,
		CreatedAt: now,
	}

	e.mu.Lock()
	insertAt := e.currentIndex + 1
	if insertAt > len(e.playlist) {
		insertAt = len(e.playlist)
	}
	e.playlist = append(e.playlist[:insertAt], append([]*models.Song{song}, e.playlist[insertAt:]...)...)
	e.mu.Unlock()

	if err := e.store.CreateSong(song); err != nil {
		log.Printf("❌ [SUGGEST] Storing replacement failed: %v", err)
	}
	log.Printf("🎯 [SUGGEST] %s picked %q by %s", chooserID, pick.Title, pick.Artist)
	e.advance(true, "suggestion_pick")
}
