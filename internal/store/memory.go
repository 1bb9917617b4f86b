package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whisper-Tech/DNA-radio/internal/models"
)

// MemoryStore keeps everything in maps. It exists so that the engine works
// unchanged without a database; nothing survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	songs     map[string]models.Song
	songOrder []string
	plays     map[string]models.PlayRecord
	votes     map[string]models.Vote   // by vote id
	voted     map[string]struct{}      // listenerID+"\x00"+playID
	listeners map[string]models.Listener // by fingerprint
	users     map[string]models.User     // by username
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		songs:     make(map[string]models.Song),
		plays:     make(map[string]models.PlayRecord),
		votes:     make(map[string]models.Vote),
		voted:     make(map[string]struct{}),
		listeners: make(map[string]models.Listener),
		users:     make(map[string]models.User),
	}
}

func voteKey(listenerID, playID string) string {
	return listenerID + "\x00" + playID
}

func (s *MemoryStore) ActiveSongs() ([]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Song, 0, len(s.songOrder))
	for _, id := range s.songOrder {
		if song := s.songs[id]; song.Status != models.StatusRemoved {
			out = append(out, song)
		}
	}
	return out, nil
}

func (s *MemoryStore) AllSongs() ([]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Song, 0, len(s.songOrder))
	for _, id := range s.songOrder {
		out = append(out, s.songs[id])
	}
	return out, nil
}

func (s *MemoryStore) CreateSong(song *models.Song) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if song.CreatedAt.IsZero() {
		song.CreatedAt = time.Now()
	}
	if _, exists := s.songs[song.ID]; !exists {
		s.songOrder = append(s.songOrder, song.ID)
	}
	s.songs[song.ID] = *song
	return nil
}

func (s *MemoryStore) UpdateSong(id string, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs[id]
	if !ok {
		return nil
	}
	for key, val := range updates {
		switch key {
		case "health":
			song.Health = val.(int)
		case "status":
			song.Status = val.(string)
		case "media_id":
			song.MediaID = val.(string)
		case "total_accepts":
			song.TotalAccepts = val.(int)
		case "total_rejects":
			song.TotalRejects = val.(int)
		case "title":
			song.Title = val.(string)
		case "artist":
			song.Artist = val.(string)
		case "duration":
			song.Duration = val.(int)
		}
	}
	s.songs[id] = song
	return nil
}

func (s *MemoryStore) MarkPlayed(songID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs[songID]
	if !ok {
		return nil
	}
	song.TotalPlays++
	played := at
	song.LastPlayedAt = &played
	s.songs[songID] = song
	return nil
}

func (s *MemoryStore) CreatePlay(play *models.PlayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays[play.ID] = *play
	return nil
}

func (s *MemoryStore) UpdatePlayTallies(playID string, accepts, rejects, netScore int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	play, ok := s.plays[playID]
	if !ok {
		return nil
	}
	play.AcceptsThisPlay = accepts
	play.RejectsThisPlay = rejects
	play.NetScoreAfter = netScore
	s.plays[playID] = play
	return nil
}

func (s *MemoryStore) RecentPlays(limit int) ([]models.PlayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PlayRecord, 0, len(s.plays))
	for _, play := range s.plays {
		out = append(out, play)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) HasVoted(listenerID, playID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.voted[voteKey(listenerID, playID)]
	return ok, nil
}

func (s *MemoryStore) CreateVote(vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	if vote.VotedAt.IsZero() {
		vote.VotedAt = time.Now()
	}
	s.votes[vote.ID] = *vote
	s.voted[voteKey(vote.ListenerID, vote.PlayID)] = struct{}{}
	return nil
}

func (s *MemoryStore) CountVotesForPlay(playID string) (accepts, rejects int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.votes {
		if v.PlayID != playID {
			continue
		}
		if v.Type == models.VoteAccept {
			accepts++
		} else {
			rejects++
		}
	}
	return accepts, rejects, nil
}

func (s *MemoryStore) GetOrCreateListener(fingerprint string) (*models.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if listener, ok := s.listeners[fingerprint]; ok {
		listener.LastSeenAt = time.Now()
		s.listeners[fingerprint] = listener
		return &listener, nil
	}
	listener := models.Listener{
		ID:                uuid.NewString(),
		DeviceFingerprint: fingerprint,
		CreatedAt:         time.Now(),
		LastSeenAt:        time.Now(),
	}
	s.listeners[fingerprint] = listener
	return &listener, nil
}

func (s *MemoryStore) CreateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = uint(len(s.users) + 1)
	}
	s.users[user.Username] = *user
	return nil
}

func (s *MemoryStore) GetUser(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *MemoryStore) SongStats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{
		TotalSongs: int64(len(s.songs)),
		TotalPlays: int64(len(s.plays)),
		TotalVotes: int64(len(s.votes)),
	}
	for _, song := range s.songs {
		switch song.Status {
		case models.StatusActive:
			stats.ActiveSongs++
		case models.StatusImmortal:
			stats.ImmortalSongs++
		case models.StatusRemoved:
			stats.RemovedSongs++
		}
	}
	return stats, nil
}

func (s *MemoryStore) Durable() bool { return false }
