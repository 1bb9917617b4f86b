package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// GetStatus returns the public broadcast snapshot.
func (s *Server) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

// GetSync returns the snapshot plus the playhead position for clients that
// prefer polling over the websocket.
func (s *Server) GetSync(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.FullSync())
}

type addSongRequest struct {
	Title    string `json:"title" binding:"required"`
	Artist   string `json:"artist" binding:"required"`
	URI      string `json:"uri"`
	Duration int    `json:"duration"`
}

// AddSong accepts a community submission into the rotation.
func (s *Server) AddSong(c *gin.Context) {
	var req addSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and artist are required"})
		return
	}

	song, err := s.engine.AddSong(req.Title, req.Artist, req.URI, req.Duration)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, song)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges operator credentials for a JWT.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := s.store.GetUser(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login unavailable"})
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	claims := jwt.MapClaims{
		"sub":  user.Username,
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": signed,
		"user":  gin.H{"username": user.Username, "role": user.Role},
	})
}

// ListSongs returns the full library, tombstones included.
func (s *Server) ListSongs(c *gin.Context) {
	songs, err := s.store.AllSongs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": songs, "meta": gin.H{"total": len(songs)}})
}

// ListPlays returns recent play history.
// Query Params: limit (default 50)
func (s *Server) ListPlays(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	plays, err := s.store.RecentPlays(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plays, "meta": gin.H{"limit": limit}})
}

// GetStats returns library aggregates plus live broadcast numbers.
func (s *Server) GetStats(c *gin.Context) {
	stats, err := s.store.SongStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"library":   stats,
		"listeners": s.hub.ListenerCount(),
		"durable":   s.store.Durable(),
	})
}

type updateSongRequest struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration int    `json:"duration"`
}

// UpdateSong edits song metadata.
func (s *Server) UpdateSong(c *gin.Context) {
	var req updateSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := s.engine.UpdateSongInfo(c.Param("id"), req.Title, req.Artist, req.Duration); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// DeleteSong tombstones a song by operator decree.
func (s *Server) DeleteSong(c *gin.Context) {
	if err := s.engine.RemoveSong(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// Skip force-advances the broadcast.
func (s *Server) Skip(c *gin.Context) {
	s.engine.Skip()
	c.JSON(http.StatusOK, gin.H{"status": "skipped"})
}
