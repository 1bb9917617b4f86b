// Package radio runs the shared broadcast: one playlist, one playhead, one
// clock that every listener syncs against. All mutations funnel through the
// Engine's single mutex so connected clients observe one consistent order of
// events.
package radio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whisper-Tech/DNA-radio/internal/config"
	"github.com/whisper-Tech/DNA-radio/internal/metadata"
	"github.com/whisper-Tech/DNA-radio/internal/models"
	"github.com/whisper-Tech/DNA-radio/internal/store"
	"github.com/whisper-Tech/DNA-radio/internal/suggest"
	"github.com/whisper-Tech/DNA-radio/internal/utils"
)

const resolveTimeout = 5 * time.Second

// Engine owns the broadcast state machine. It never sleeps on its own: the
// tick loop drives natural song endings, everything else happens inside the
// calls that mutate state.
type Engine struct {
	cfg      *config.Config
	clock    Clock
	store    store.Store
	resolver metadata.Resolver
	suggest  suggest.Provider

	mu    sync.Mutex
	bcast Broadcaster

	playlist      []*models.Song
	currentIndex  int
	currentPlayID string
	songStartTime time.Time
	isPlaying     bool
	pausedAt      time.Time

	// Advancement guard. transitioning covers the advancement itself
	// (including the media lookup, which runs outside the lock);
	// transitionUntil extends the guard through the cross-fade so a vote
	// and a natural ending can't double-advance.
	transitioning   bool
	transitionUntil time.Time

	// Suggestion window, see suggestion.go. pendingGen invalidates expiry
	// timers from windows that were already resolved.
	pending         *models.PendingSuggestion
	pendingGen      int
	suggestionTimer *time.Timer

	listenerCount int

	ticker   *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg *config.Config, clock Clock, st store.Store, resolver metadata.Resolver, suggester suggest.Provider) *Engine {
	return &Engine{
		cfg:      cfg,
		clock:    clock,
		store:    st,
		resolver: resolver,
		suggest:  suggester,
		bcast:    NopBroadcaster{},
		stop:     make(chan struct{}),
	}
}

// SetBroadcaster attaches the fan-out sink. Call before Start.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.mu.Lock()
	e.bcast = b
	e.mu.Unlock()
}

// Init loads the playlist and picks up where the last run left off. An
// empty store is seeded from seeds, or from the built-in demo playlist as
// the last resort so the station never boots silent.
func (e *Engine) Init(seeds []models.Song) error {
	songs, err := e.store.ActiveSongs()
	if err != nil {
		log.Printf("❌ [ENGINE] Loading songs failed: %v", err)
	}

	if len(songs) == 0 && len(seeds) > 0 {
		now := e.clock.Now()
		for i := range seeds {
			if seeds[i].ID == "" {
				seeds[i].ID = fmt.Sprintf("song_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
			}
			if seeds[i].Status == "" {
				seeds[i].Status = models.StatusActive
			}
			if seeds[i].Duration <= 0 {
				seeds[i].Duration = e.defaultDuration()
			}
			seeds[i].CreatedAt = now
			if err := e.store.CreateSong(&seeds[i]); err != nil {
				log.Printf("❌ [ENGINE] Seeding %q failed: %v", seeds[i].Title, err)
			}
		}
		songs = seeds
		log.Printf("🌱 [ENGINE] Seeded %d songs", len(songs))
	}

	if len(songs) == 0 {
		songs = demoPlaylist(e.clock.Now())
		for i := range songs {
			if err := e.store.CreateSong(&songs[i]); err != nil {
				log.Printf("❌ [ENGINE] Storing demo song failed: %v", err)
			}
		}
		log.Println("⚠️ [ENGINE] Empty library, falling back to the demo playlist")
	}

	e.mu.Lock()
	e.playlist = make([]*models.Song, len(songs))
	for i := range songs {
		s := songs[i]
		e.playlist[i] = &s
	}
	e.currentIndex = 0
	e.songStartTime = e.clock.Now()
	e.isPlaying = true
	e.mu.Unlock()

	resumed := false
	if e.store.Durable() {
		if plays, err := e.store.RecentPlays(1); err == nil && len(plays) == 1 {
			e.mu.Lock()
			for i, s := range e.playlist {
				if s.ID == plays[0].SongID && !s.Removed() {
					// The resumed play may already be over; the first
					// tick will advance past it.
					e.currentIndex = i
					e.songStartTime = plays[0].StartedAt
					e.currentPlayID = plays[0].ID
					resumed = true
					log.Printf("♻️ [ENGINE] Resumed %q from the last run", s.Title)
					break
				}
			}
			e.mu.Unlock()
		}
	}

	if !resumed {
		e.mu.Lock()
		e.startPlayLocked(e.playlist[e.currentIndex])
		e.mu.Unlock()
	}

	e.resolveCurrent()
	go e.prefetchNext()
	return nil
}

// Start launches the tick loop that notices natural song endings.
func (e *Engine) Start() {
	interval := time.Duration(e.cfg.Radio.TickIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	e.ticker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-e.stop:
				return
			case <-e.ticker.C:
				e.Tick()
			}
		}
	}()
	log.Println("🚀 [ENGINE] Broadcast loop running")
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stop)
		if e.ticker != nil {
			e.ticker.Stop()
		}
		e.mu.Lock()
		if e.suggestionTimer != nil {
			e.suggestionTimer.Stop()
			e.suggestionTimer = nil
		}
		e.mu.Unlock()
	})
}

// Tick checks whether the current song is over. Exported so tests can drive
// the loop with a mock clock instead of waiting out real seconds.
func (e *Engine) Tick() {
	e.mu.Lock()
	if len(e.playlist) == 0 || e.pending != nil {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	if e.inTransitionLocked(now) {
		e.mu.Unlock()
		return
	}

	cur := e.playlist[e.currentIndex]
	if cur.Removed() {
		e.mu.Unlock()
		e.advance(false, "removed")
		return
	}
	if !e.isPlaying {
		e.mu.Unlock()
		return
	}

	dur := cur.Duration
	if dur <= 0 {
		dur = e.defaultDuration()
	}
	if now.Sub(e.songStartTime) >= time.Duration(dur)*time.Millisecond {
		e.mu.Unlock()
		e.advance(false, "finished")
		return
	}
	e.mu.Unlock()
}

// Vote applies one listener verdict. Terminal states are sticky: immortal
// songs keep collecting votes for the record but can never be removed,
// removed songs take nothing.
func (e *Engine) Vote(songID, voteType, listenerID string) {
	if voteType != models.VoteAccept && voteType != models.VoteReject {
		return
	}

	e.mu.Lock()
	song := e.findSongLocked(songID)
	if song == nil {
		e.mu.Unlock()
		log.Printf("⚠️ [VOTE] Unknown song %s", songID)
		return
	}
	if song.Removed() {
		e.mu.Unlock()
		return
	}

	playID := e.currentPlayID
	if listenerID != "" && playID != "" {
		voted, err := e.store.HasVoted(listenerID, playID)
		if err != nil {
			log.Printf("❌ [VOTE] Dedup check failed: %v", err)
		} else if voted {
			e.mu.Unlock()
			return
		}
	}

	isCurrent := len(e.playlist) > 0 && e.playlist[e.currentIndex].ID == songID
	votesTotal.WithLabelValues(voteType).Inc()

	switch voteType {
	case models.VoteAccept:
		if song.Health < models.MaxHealth {
			song.Health++
		}
		song.TotalAccepts++
		if song.Health >= models.MaxHealth && song.Status != models.StatusImmortal {
			song.Status = models.StatusImmortal
			songsImmortal.Inc()
			log.Printf("⭐ [VOTE] %q is now immortal", song.Title)
			e.persistSongLocked(song)
			e.bcast.SongImmortal(SongImmortalEvent{SongID: song.ID, Title: song.Title})
		} else {
			e.persistSongLocked(song)
		}

	case models.VoteReject:
		if song.Status == models.StatusImmortal {
			// Immortal is terminal. The reject is tallied for the record
			// but health stays pinned and no removal can follow.
			song.TotalRejects++
			e.persistSongLocked(song)
			break
		}
		song.Health--
		if song.Health < models.MinHealth {
			song.Health = models.MinHealth
		}
		song.TotalRejects++
		if song.Health <= models.MinHealth {
			song.Status = models.StatusRemoved
			songsRemoved.Inc()
			log.Printf("💀 [VOTE] %q was voted out", song.Title)
			e.persistSongLocked(song)
			if isCurrent {
				// The killing vote interrupts playback instead of going
				// through the normal broadcast path.
				e.beginInterruptLocked(song, listenerID)
				e.mu.Unlock()
				return
			}
			e.bcast.SongRemoved(SongRemovedEvent{SongID: song.ID, NextIndex: -1})
		} else {
			e.persistSongLocked(song)
		}
	}

	e.recordVoteLocked(song, voteType, listenerID, playID)
	e.broadcastStateLocked()
	e.mu.Unlock()
}

func (e *Engine) recordVoteLocked(song *models.Song, voteType, listenerID, playID string) {
	if playID == "" || listenerID == "" {
		return
	}
	vote := &models.Vote{
		ID:         uuid.NewString(),
		ListenerID: listenerID,
		SongID:     song.ID,
		PlayID:     playID,
		Type:       voteType,
		VotedAt:    e.clock.Now(),
	}
	if err := e.store.CreateVote(vote); err != nil {
		log.Printf("❌ [VOTE] Recording vote failed: %v", err)
		return
	}
	accepts, rejects, err := e.store.CountVotesForPlay(playID)
	if err != nil {
		log.Printf("❌ [VOTE] Counting votes failed: %v", err)
		return
	}
	if err := e.store.UpdatePlayTallies(playID, accepts, rejects, song.Health); err != nil {
		log.Printf("❌ [VOTE] Updating play tallies failed: %v", err)
	}
}

// Skip force-advances past the current song. Ignored while a suggestion
// window is open: the negotiation owns the playhead until it resolves, and
// skipping under it would let the expiry timer advance a second time.
func (e *Engine) Skip() {
	e.mu.Lock()
	if e.pending != nil {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.advance(true, "skip")
}

// TogglePlayback pauses or resumes the station for everyone. On resume the
// start timestamp shifts forward by the pause duration so the song continues
// from where it stopped.
func (e *Engine) TogglePlayback() {
	e.mu.Lock()
	now := e.clock.Now()
	e.isPlaying = !e.isPlaying
	if e.isPlaying {
		e.songStartTime = e.songStartTime.Add(now.Sub(e.pausedAt))
		log.Println("▶️ [ENGINE] Playback resumed")
	} else {
		e.pausedAt = now
		log.Println("⏸️ [ENGINE] Playback paused")
	}
	e.broadcastStateLocked()
	e.mu.Unlock()
}

// SetListenerCount updates the live head-count and pushes it to everyone.
func (e *Engine) SetListenerCount(n int) {
	e.mu.Lock()
	e.listenerCount = n
	listenersGauge.Set(float64(n))
	e.broadcastStateLocked()
	e.mu.Unlock()
}

// advance moves the playhead to the next playable song. forced bypasses the
// transition guard (skips, suggestion picks, window expiry); unforced calls
// during a transition or the cross-fade window are dropped.
func (e *Engine) advance(forced bool, reason string) {
	e.mu.Lock()
	if len(e.playlist) == 0 {
		e.mu.Unlock()
		log.Println("❌ [ENGINE] Cannot advance an empty playlist")
		return
	}
	now := e.clock.Now()
	if !forced && e.inTransitionLocked(now) {
		e.mu.Unlock()
		return
	}
	next := e.nextValidIndexLocked(e.currentIndex)
	if next < 0 {
		e.transitioning = false
		e.mu.Unlock()
		log.Println("⚠️ [ENGINE] Every song is removed, staying put")
		return
	}
	e.transitioning = true
	song := e.playlist[next]
	title, artist := song.Title, song.Artist
	needsResolve := song.MediaID == ""
	dur := song.Duration
	e.mu.Unlock()

	var mediaID string
	if needsResolve && e.resolver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		id, err := e.resolver.Resolve(ctx, title, artist, dur)
		cancel()
		if err != nil {
			if !errors.Is(err, metadata.ErrNotFound) {
				log.Printf("❌ [ENGINE] Media lookup for %q failed: %v", title, err)
			}
		} else {
			mediaID = id
		}
	}

	e.mu.Lock()
	if mediaID != "" && song.MediaID == "" {
		song.MediaID = mediaID
		if err := e.store.UpdateSong(song.ID, map[string]any{"media_id": mediaID}); err != nil {
			log.Printf("❌ [ENGINE] Saving media id failed: %v", err)
		}
	}
	e.currentIndex = next
	e.startPlayLocked(song)
	now = e.clock.Now()
	e.transitioning = false
	e.transitionUntil = now.Add(e.crossfade())
	transitionsTotal.WithLabelValues(reason).Inc()
	log.Printf("🔄 [ENGINE] Now playing %q by %s (%s)", song.Title, song.Artist, reason)
	e.broadcastStateLocked()
	e.mu.Unlock()

	go e.prefetchNext()
}

// startPlayLocked stamps the playhead onto song and opens its play record.
func (e *Engine) startPlayLocked(song *models.Song) {
	now := e.clock.Now()
	e.songStartTime = now
	song.TotalPlays++
	played := now
	song.LastPlayedAt = &played

	play := &models.PlayRecord{
		ID:            uuid.NewString(),
		SongID:        song.ID,
		PlayNumber:    song.TotalPlays,
		StartedAt:     now,
		NetScoreAfter: song.Health,
		ListenerCount: e.listenerCount,
	}
	e.currentPlayID = play.ID
	if err := e.store.CreatePlay(play); err != nil {
		log.Printf("❌ [ENGINE] Creating play record failed: %v", err)
	}
	if err := e.store.MarkPlayed(song.ID, now); err != nil {
		log.Printf("❌ [ENGINE] Marking song played failed: %v", err)
	}
}

// nextValidIndexLocked walks the playlist circularly, skipping tombstones.
// Returns -1 when nothing is playable.
func (e *Engine) nextValidIndexLocked(from int) int {
	n := len(e.playlist)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if !e.playlist[idx].Removed() {
			return idx
		}
	}
	return -1
}

func (e *Engine) findSongLocked(id string) *models.Song {
	for _, s := range e.playlist {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (e *Engine) persistSongLocked(song *models.Song) {
	err := e.store.UpdateSong(song.ID, map[string]any{
		"health":        song.Health,
		"status":        song.Status,
		"total_accepts": song.TotalAccepts,
		"total_rejects": song.TotalRejects,
	})
	if err != nil {
		log.Printf("❌ [ENGINE] Persisting %q failed: %v", song.Title, err)
	}
}

func (e *Engine) inTransitionLocked(now time.Time) bool {
	return e.transitioning || now.Before(e.transitionUntil)
}

func (e *Engine) broadcastStateLocked() {
	e.bcast.StateUpdate(e.stateLocked())
}

// stateLocked builds the public snapshot. Removed songs are filtered out of
// the published playlist; CurrentIndex stays an index into the unfiltered
// list, clients key off CurrentSong.ID instead.
func (e *Engine) stateLocked() models.BroadcastState {
	playlist := make([]models.Song, 0, len(e.playlist))
	for _, s := range e.playlist {
		if !s.Removed() {
			playlist = append(playlist, *s)
		}
	}
	var cur *models.Song
	if e.currentIndex >= 0 && e.currentIndex < len(e.playlist) {
		c := *e.playlist[e.currentIndex]
		cur = &c
	}
	var pending *models.PendingSuggestion
	if e.pending != nil {
		p := *e.pending
		pending = &p
	}
	return models.BroadcastState{
		Playlist:           playlist,
		CurrentSong:        cur,
		CurrentIndex:       e.currentIndex,
		SongStartTime:      e.songStartTime.UnixMilli(),
		IsPlaying:          e.isPlaying,
		ServerTime:         e.clock.Now().UnixMilli(),
		PendingSuggestions: pending,
		ListenerCount:      e.listenerCount,
	}
}

// Snapshot returns the current broadcast state.
func (e *Engine) Snapshot() models.BroadcastState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// SyncState is the snapshot plus the playhead position, served to clients
// that explicitly re-sync.
type SyncState struct {
	models.BroadcastState
	CurrentPosition int64 `json:"currentPosition"` // ms into the current song
}

func (e *Engine) FullSync() SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SyncState{
		BroadcastState:  e.stateLocked(),
		CurrentPosition: e.positionLocked(),
	}
}

// CurrentPosition reports milliseconds into the current song, zero while
// paused.
func (e *Engine) CurrentPosition() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *Engine) positionLocked() int64 {
	if !e.isPlaying {
		return 0
	}
	pos := e.clock.Now().Sub(e.songStartTime).Milliseconds()
	if pos < 0 {
		pos = 0
	}
	return pos
}

// AddSong appends a community submission to the rotation. The media id is
// resolved best-effort; an unresolved song still enters the playlist and is
// retried at play time.
func (e *Engine) AddSong(title, artist, uri string, durationMs int) (*models.Song, error) {
	title = utils.NormalizeField(title)
	artist = utils.NormalizeField(artist)
	if title == "" || artist == "" {
		return nil, fmt.Errorf("title and artist are required")
	}
	if durationMs <= 0 {
		durationMs = e.defaultDuration()
	}

	var mediaID string
	if e.resolver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		if id, err := e.resolver.Resolve(ctx, title, artist, durationMs); err == nil {
			mediaID = id
		}
		cancel()
	}

	now := e.clock.Now()
	song := &models.Song{
		ID:        fmt.Sprintf("song_%d_%s", now.UnixMilli(), uuid.NewString()[:8]),
		Title:     title,
		Artist:    artist,
		URI:       uri,
		MediaID:   mediaID,
		Duration:  durationMs,
		Status:    models.StatusActive,
		CreatedAt: now,
	}
	if err := e.store.CreateSong(song); err != nil {
		log.Printf("❌ [ENGINE] Storing submission failed: %v", err)
	}

	e.mu.Lock()
	e.playlist = append(e.playlist, song)
	log.Printf("🎵 [ENGINE] Added %q by %s to rotation", title, artist)
	e.broadcastStateLocked()
	copied := *song
	e.mu.Unlock()
	return &copied, nil
}

// RemoveSong tombstones a song by operator decree, bypassing the health
// ladder. Removing the playing song jumps straight to the next one, no
// suggestion window.
func (e *Engine) RemoveSong(id string) error {
	e.mu.Lock()
	song := e.findSongLocked(id)
	if song == nil {
		e.mu.Unlock()
		return e.store.UpdateSong(id, map[string]any{"status": models.StatusRemoved})
	}
	if song.Removed() {
		e.mu.Unlock()
		return nil
	}
	song.Status = models.StatusRemoved
	songsRemoved.Inc()
	e.persistSongLocked(song)
	wasCurrent := e.playlist[e.currentIndex].ID == id
	e.bcast.SongRemoved(SongRemovedEvent{SongID: id, NextIndex: -1})
	if !wasCurrent {
		e.broadcastStateLocked()
	}
	e.mu.Unlock()

	if wasCurrent {
		e.advance(true, "admin_remove")
	}
	return nil
}

// UpdateSongInfo edits song metadata in place. Empty fields are left alone.
func (e *Engine) UpdateSongInfo(id, title, artist string, durationMs int) error {
	updates := map[string]any{}
	if title != "" {
		updates["title"] = title
	}
	if artist != "" {
		updates["artist"] = artist
	}
	if durationMs > 0 {
		updates["duration"] = durationMs
	}
	if len(updates) == 0 {
		return nil
	}

	e.mu.Lock()
	if song := e.findSongLocked(id); song != nil {
		if title != "" {
			song.Title = title
		}
		if artist != "" {
			song.Artist = artist
		}
		if durationMs > 0 {
			song.Duration = durationMs
		}
		e.broadcastStateLocked()
	}
	e.mu.Unlock()

	return e.store.UpdateSong(id, updates)
}

// resolveCurrent fills in the playing song's media id at startup.
func (e *Engine) resolveCurrent() {
	e.mu.Lock()
	if len(e.playlist) == 0 {
		e.mu.Unlock()
		return
	}
	song := e.playlist[e.currentIndex]
	title, artist, dur := song.Title, song.Artist, song.Duration
	needs := song.MediaID == ""
	e.mu.Unlock()

	if !needs || e.resolver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	id, err := e.resolver.Resolve(ctx, title, artist, dur)
	cancel()
	if err != nil {
		return
	}

	e.mu.Lock()
	if song.MediaID == "" {
		song.MediaID = id
		if err := e.store.UpdateSong(song.ID, map[string]any{"media_id": id}); err != nil {
			log.Printf("❌ [ENGINE] Saving media id failed: %v", err)
		}
	}
	e.mu.Unlock()
}

// prefetchNext resolves the upcoming song's media id ahead of time so the
// next advancement doesn't wait on the lookup.
func (e *Engine) prefetchNext() {
	e.mu.Lock()
	if len(e.playlist) == 0 {
		e.mu.Unlock()
		return
	}
	next := e.nextValidIndexLocked(e.currentIndex)
	if next < 0 {
		e.mu.Unlock()
		return
	}
	song := e.playlist[next]
	title, artist, dur := song.Title, song.Artist, song.Duration
	needs := song.MediaID == ""
	e.mu.Unlock()

	if !needs || e.resolver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	id, err := e.resolver.Resolve(ctx, title, artist, dur)
	cancel()
	if err != nil {
		return
	}

	e.mu.Lock()
	if song.MediaID == "" {
		song.MediaID = id
		if err := e.store.UpdateSong(song.ID, map[string]any{"media_id": id}); err != nil {
			log.Printf("❌ [ENGINE] Saving media id failed: %v", err)
		}
	}
	e.mu.Unlock()
}

func (e *Engine) crossfade() time.Duration {
	ms := e.cfg.Radio.CrossfadeMillis
	if ms <= 0 {
		ms = 300
	}
	return time.Duration(ms) * time.Millisecond
}

func (e *Engine) suggestionWindow() time.Duration {
	s := e.cfg.Radio.SuggestionWindowSeconds
	if s <= 0 {
		s = 10
	}
	return time.Duration(s) * time.Second
}

func (e *Engine) defaultDuration() int {
	if e.cfg.Radio.DefaultDurationMillis > 0 {
		return e.cfg.Radio.DefaultDurationMillis
	}
	return 180000
}

// demoPlaylist keeps the station on air when both the library and the seed
// file are empty.
func demoPlaylist(now time.Time) []models.Song {
	return []models.Song{
		{ID: "demo_1", Title: "Resonance", Artist: "HOME", MediaID: "8GW6sLrK40k", Duration: 212000, Status: models.StatusActive, CreatedAt: now},
		{ID: "demo_2", Title: "Nightcall", Artist: "Kavinsky", MediaID: "MV_3Dpw-BRY", Duration: 258000, Status: models.StatusActive, CreatedAt: now},
		{ID: "demo_3", Title: "A Real Hero", Artist: "College & Electric Youth", MediaID: "-DSVDcw6iW8", Duration: 267000, Status: models.StatusActive, CreatedAt: now},
	}
}
