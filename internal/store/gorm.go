package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/whisper-Tech/DNA-radio/internal/models"
)

type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) ActiveSongs() ([]models.Song, error) {
	var songs []models.Song
	err := s.db.Where("status <> ?", models.StatusRemoved).
		Order("created_at").
		Find(&songs).Error
	return songs, err
}

func (s *gormStore) AllSongs() ([]models.Song, error) {
	var songs []models.Song
	err := s.db.Order("created_at").Find(&songs).Error
	return songs, err
}

func (s *gormStore) CreateSong(song *models.Song) error {
	return s.db.Create(song).Error
}

func (s *gormStore) UpdateSong(id string, updates map[string]any) error {
	return s.db.Model(&models.Song{}).Where("id = ?", id).Updates(updates).Error
}

func (s *gormStore) MarkPlayed(songID string, at time.Time) error {
	return s.db.Model(&models.Song{}).Where("id = ?", songID).Updates(map[string]any{
		"total_plays":    gorm.Expr("total_plays + 1"),
		"last_played_at": at,
	}).Error
}

func (s *gormStore) CreatePlay(play *models.PlayRecord) error {
	return s.db.Create(play).Error
}

func (s *gormStore) UpdatePlayTallies(playID string, accepts, rejects, netScore int) error {
	return s.db.Model(&models.PlayRecord{}).Where("id = ?", playID).Updates(map[string]any{
		"accepts_this_play": accepts,
		"rejects_this_play": rejects,
		"net_score_after":   netScore,
	}).Error
}

func (s *gormStore) RecentPlays(limit int) ([]models.PlayRecord, error) {
	var plays []models.PlayRecord
	err := s.db.Order("started_at DESC").Limit(limit).Find(&plays).Error
	return plays, err
}

func (s *gormStore) HasVoted(listenerID, playID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Vote{}).
		Where("listener_id = ? AND play_id = ?", listenerID, playID).
		Count(&count).Error
	return count > 0, err
}

func (s *gormStore) CreateVote(vote *models.Vote) error {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	if vote.VotedAt.IsZero() {
		vote.VotedAt = time.Now()
	}
	return s.db.Create(vote).Error
}

func (s *gormStore) CountVotesForPlay(playID string) (accepts, rejects int, err error) {
	var votes []models.Vote
	if err = s.db.Where("play_id = ?", playID).Find(&votes).Error; err != nil {
		return 0, 0, err
	}
	for _, v := range votes {
		if v.Type == models.VoteAccept {
			accepts++
		} else {
			rejects++
		}
	}
	return accepts, rejects, nil
}

func (s *gormStore) GetOrCreateListener(fingerprint string) (*models.Listener, error) {
	var listener models.Listener
	err := s.db.Where("device_fingerprint = ?", fingerprint).First(&listener).Error
	if err == nil {
		s.db.Model(&listener).Update("last_seen_at", time.Now())
		return &listener, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	listener = models.Listener{
		ID:                uuid.NewString(),
		DeviceFingerprint: fingerprint,
		CreatedAt:         time.Now(),
		LastSeenAt:        time.Now(),
	}
	if err := s.db.Create(&listener).Error; err != nil {
		return nil, err
	}
	return &listener, nil
}

func (s *gormStore) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

func (s *gormStore) GetUser(username string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) SongStats() (Stats, error) {
	var stats Stats
	if err := s.db.Model(&models.Song{}).Count(&stats.TotalSongs).Error; err != nil {
		return stats, err
	}
	s.db.Model(&models.Song{}).Where("status = ?", models.StatusActive).Count(&stats.ActiveSongs)
	s.db.Model(&models.Song{}).Where("status = ?", models.StatusImmortal).Count(&stats.ImmortalSongs)
	s.db.Model(&models.Song{}).Where("status = ?", models.StatusRemoved).Count(&stats.RemovedSongs)
	s.db.Model(&models.PlayRecord{}).Count(&stats.TotalPlays)
	s.db.Model(&models.Vote{}).Count(&stats.TotalVotes)
	return stats, nil
}

func (s *gormStore) Durable() bool { return true }
