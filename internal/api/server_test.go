package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/whisper-Tech/DNA-radio/internal/config"
	"github.com/whisper-Tech/DNA-radio/internal/hub"
	"github.com/whisper-Tech/DNA-radio/internal/models"
	"github.com/whisper-Tech/DNA-radio/internal/radio"
	"github.com/whisper-Tech/DNA-radio/internal/store"
	"github.com/whisper-Tech/DNA-radio/internal/suggest"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Port = ":0"
	cfg.Server.CORSOrigin = "*"
	cfg.Radio.CrossfadeMillis = 300
	cfg.Radio.SuggestionWindowSeconds = 10
	cfg.Radio.SuggestionCount = 4
	cfg.Radio.DefaultDurationMillis = 180000
	cfg.Auth.JWTSecret = "test-secret"

	st := store.NewMemory()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(&models.User{Username: "admin", PasswordHash: string(hash), Role: "admin"}))
	viewerHash, err := bcrypt.GenerateFromPassword([]byte("view"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(&models.User{Username: "viewer", PasswordHash: string(viewerHash), Role: "viewer"}))

	engine := radio.New(cfg, radio.RealClock{}, st, nil, &suggest.StaticProvider{Count: 4})
	require.NoError(t, engine.Init([]models.Song{
		{ID: "s1", Title: "Alpha", Artist: "One", Duration: 200000, Status: models.StatusActive},
		{ID: "s2", Title: "Beta", Artist: "Two", Duration: 200000, Status: models.StatusActive},
	}))
	t.Cleanup(engine.Stop)

	h := hub.New(engine, st, radio.RealClock{})
	engine.SetBroadcaster(h)
	return New(cfg, engine, st, h)
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, s *Server, username, password string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", payload{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

type payload = map[string]any

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestStatusAndSync(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state models.BroadcastState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Len(t, state.Playlist, 2)
	require.NotNil(t, state.CurrentSong)
	assert.Equal(t, "s1", state.CurrentSong.ID)
	assert.True(t, state.IsPlaying)

	w = doJSON(t, s, http.MethodGet, "/api/v1/sync", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sync radio.SyncState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sync))
	assert.NotZero(t, sync.ServerTime)
}

func TestAddSongValidation(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/songs", "", payload{"title": "No Artist"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/songs", "", payload{"title": "Midnight City", "artist": "M83"})
	require.Equal(t, http.StatusCreated, w.Code)
	var song models.Song
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &song))
	assert.Equal(t, 0, song.Health)
	assert.Equal(t, models.StatusActive, song.Status)

	w = doJSON(t, s, http.MethodGet, "/api/v1/status", "", nil)
	var state models.BroadcastState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Len(t, state.Playlist, 3)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", payload{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", payload{"username": "ghost", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", payload{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/stats", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := login(t, s, "admin", "hunter2")
	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/stats", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "library")

	// Query-param tokens work too
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats?token="+token, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminForbiddenForViewers(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "viewer", "view")

	w := doJSON(t, s, http.MethodGet, "/api/v1/admin/songs", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminSongManagement(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "admin", "hunter2")

	// 1. Full library view includes everything
	w := doJSON(t, s, http.MethodGet, "/api/v1/admin/songs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 2. Edit metadata
	w = doJSON(t, s, http.MethodPut, "/api/v1/admin/songs/s2", token, payload{"title": "Beta (Remastered)"})
	require.Equal(t, http.StatusOK, w.Code)

	// 3. Tombstone a song; it vanishes from the public playlist
	w = doJSON(t, s, http.MethodDelete, "/api/v1/admin/songs/s2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/status", "", nil)
	var state models.BroadcastState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Playlist, 1)
	assert.Equal(t, "s1", state.Playlist[0].ID)

	// 4. Forced skip wraps back to the only playable song
	w = doJSON(t, s, http.MethodPost, "/api/v1/admin/skip", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/status", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.NotNil(t, state.CurrentSong)
	assert.Equal(t, "s1", state.CurrentSong.ID)
}

func TestPlayHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s, "admin", "hunter2")

	w := doJSON(t, s, http.MethodGet, "/api/v1/admin/plays?limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.PlayRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// Init opened a play for the first song
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, "s1", resp.Data[0].SongID)
}
