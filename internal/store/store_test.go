package store

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/driver/sqlite"

	database "github.com/whisper-Tech/DNA-radio/internal/db"
	"github.com/whisper-Tech/DNA-radio/internal/models"
)

// setupSQLite creates a throwaway DB for testing
func setupSQLite(t *testing.T) Store {
	t.Helper()
	d, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	d.AutoMigrate(&models.Song{}, &models.PlayRecord{}, &models.Vote{}, &models.Listener{}, &models.User{})
	return New(&database.Client{DB: d})
}

// Run every test against both backends; the engine must not care which one
// it got.
func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": setupSQLite(t),
		"memory": NewMemory(),
	}
}

func TestVoteDeduplication(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// 1. Seed a song and a play
			song := models.Song{ID: "song-1", Title: "Resonance", Artist: "HOME", Status: models.StatusActive}
			if err := s.CreateSong(&song); err != nil {
				t.Fatalf("create song: %v", err)
			}
			play := models.PlayRecord{ID: "play-1", SongID: song.ID, PlayNumber: 1, StartedAt: time.Now()}
			if err := s.CreatePlay(&play); err != nil {
				t.Fatalf("create play: %v", err)
			}

			// 2. First vote goes through
			voted, err := s.HasVoted("listener-1", play.ID)
			if err != nil || voted {
				t.Fatalf("expected no prior vote, got voted=%v err=%v", voted, err)
			}
			err = s.CreateVote(&models.Vote{ListenerID: "listener-1", SongID: song.ID, PlayID: play.ID, Type: models.VoteAccept})
			if err != nil {
				t.Fatalf("create vote: %v", err)
			}

			// 3. Second check reports the existing vote
			voted, err = s.HasVoted("listener-1", play.ID)
			if err != nil || !voted {
				t.Errorf("expected vote to be recorded, got voted=%v err=%v", voted, err)
			}

			// 4. A different listener is unaffected
			voted, _ = s.HasVoted("listener-2", play.ID)
			if voted {
				t.Error("listener-2 should not have a recorded vote")
			}
		})
	}
}

func TestActiveSongsExcludesTombstones(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Now().Add(-time.Hour)
			for i := 0; i < 3; i++ {
				song := models.Song{
					ID:        fmt.Sprintf("song-%d", i),
					Title:     fmt.Sprintf("Track %d", i),
					Artist:    "Various",
					Status:    models.StatusActive,
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				}
				if err := s.CreateSong(&song); err != nil {
					t.Fatalf("create song: %v", err)
				}
			}

			// Tombstone the middle one
			if err := s.UpdateSong("song-1", map[string]any{"status": models.StatusRemoved}); err != nil {
				t.Fatalf("update song: %v", err)
			}

			active, err := s.ActiveSongs()
			if err != nil {
				t.Fatalf("active songs: %v", err)
			}
			if len(active) != 2 {
				t.Fatalf("expected 2 active songs, got %d", len(active))
			}
			for _, song := range active {
				if song.ID == "song-1" {
					t.Error("removed song leaked into active set")
				}
			}

			// The tombstone is still visible to the full history view
			all, _ := s.AllSongs()
			if len(all) != 3 {
				t.Errorf("expected tombstone retained, got %d songs", len(all))
			}
		})
	}
}

func TestPlayTalliesAndRecentPlays(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			song := models.Song{ID: "song-1", Title: "Nightcall", Artist: "Kavinsky", Status: models.StatusActive}
			s.CreateSong(&song)

			now := time.Now()
			for i := 0; i < 3; i++ {
				play := models.PlayRecord{
					ID:         fmt.Sprintf("play-%d", i),
					SongID:     song.ID,
					PlayNumber: i + 1,
					StartedAt:  now.Add(time.Duration(i) * time.Minute),
				}
				s.CreatePlay(&play)
			}

			if err := s.UpdatePlayTallies("play-2", 5, 2, 3); err != nil {
				t.Fatalf("update tallies: %v", err)
			}

			plays, err := s.RecentPlays(2)
			if err != nil {
				t.Fatalf("recent plays: %v", err)
			}
			if len(plays) != 2 {
				t.Fatalf("expected 2 plays, got %d", len(plays))
			}
			if plays[0].ID != "play-2" {
				t.Errorf("expected most recent play first, got %s", plays[0].ID)
			}
			if plays[0].AcceptsThisPlay != 5 || plays[0].RejectsThisPlay != 2 || plays[0].NetScoreAfter != 3 {
				t.Errorf("tallies not persisted: %+v", plays[0])
			}
		})
	}
}

func TestGetOrCreateListener(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := s.GetOrCreateListener("fingerprint-a")
			if err != nil {
				t.Fatalf("create listener: %v", err)
			}
			again, err := s.GetOrCreateListener("fingerprint-a")
			if err != nil {
				t.Fatalf("fetch listener: %v", err)
			}
			if first.ID != again.ID {
				t.Errorf("same fingerprint produced different listeners: %s vs %s", first.ID, again.ID)
			}

			other, _ := s.GetOrCreateListener("fingerprint-b")
			if other.ID == first.ID {
				t.Error("different fingerprints must map to different listeners")
			}
		})
	}
}

func TestUserLookup(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			missing, err := s.GetUser("nobody")
			if err != nil || missing != nil {
				t.Fatalf("expected (nil, nil) for a missing user, got %v, %v", missing, err)
			}

			if err := s.CreateUser(&models.User{Username: "admin", PasswordHash: "$2a$10$fake", Role: "admin"}); err != nil {
				t.Fatalf("create user: %v", err)
			}
			user, err := s.GetUser("admin")
			if err != nil {
				t.Fatalf("get user: %v", err)
			}
			if user == nil || user.Role != "admin" {
				t.Errorf("unexpected user: %+v", user)
			}
		})
	}
}

func TestSongStats(t *testing.T) {
	s := NewMemory()
	s.CreateSong(&models.Song{ID: "a", Status: models.StatusActive})
	s.CreateSong(&models.Song{ID: "b", Status: models.StatusImmortal})
	s.CreateSong(&models.Song{ID: "c", Status: models.StatusRemoved})

	stats, err := s.SongStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSongs != 3 || stats.ActiveSongs != 1 || stats.ImmortalSongs != 1 || stats.RemovedSongs != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
