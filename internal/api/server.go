// Package api is the REST surface: public status/sync/submission endpoints,
// the websocket upgrade, and a JWT-guarded admin group.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/whisper-Tech/DNA-radio/internal/api/middleware"
	"github.com/whisper-Tech/DNA-radio/internal/config"
	"github.com/whisper-Tech/DNA-radio/internal/hub"
	"github.com/whisper-Tech/DNA-radio/internal/radio"
	"github.com/whisper-Tech/DNA-radio/internal/store"
)

type Server struct {
	cfg    *config.Config
	engine *radio.Engine
	store  store.Store
	hub    *hub.Hub
	router *gin.Engine
}

func New(cfg *config.Config, engine *radio.Engine, st store.Store, h *hub.Hub) *Server {
	if cfg.Radio.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		engine: engine,
		store:  st,
		hub:    h,
		router: gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.SilentLogger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if s.cfg.Server.CORSOrigin == "" || s.cfg.Server.CORSOrigin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{s.cfg.Server.CORSOrigin}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	// "Authorization" must be allowed so the admin frontend can send the JWT
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	secret := []byte(s.cfg.Auth.JWTSecret)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "dna-radio"})
	})

	// Listeners stream state over this; commands go the same way.
	s.router.GET("/ws", s.hub.HandleWS)

	v1 := s.router.Group("/api/v1")
	{
		// ==========================================
		// PUBLIC ROUTES (No Token Required)
		// ==========================================
		v1.POST("/auth/login", s.Login)

		v1.GET("/status", s.GetStatus)
		v1.GET("/sync", s.GetSync)
		v1.POST("/songs", s.AddSong)

		// ==========================================
		// ADMIN ROUTES (JWT Token Required)
		// ==========================================
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAuth(secret), middleware.RequireRole("admin"))
		{
			admin.GET("/songs", s.ListSongs)
			admin.GET("/plays", s.ListPlays)
			admin.GET("/stats", s.GetStats)
			admin.PUT("/songs/:id", s.UpdateSong)
			admin.DELETE("/songs/:id", s.DeleteSong)
			admin.POST("/skip", s.Skip)
		}
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Run() error {
	return s.router.Run(s.cfg.Server.Port)
}
