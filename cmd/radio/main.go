package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/whisper-Tech/DNA-radio/internal/api"
	"github.com/whisper-Tech/DNA-radio/internal/config"
	database "github.com/whisper-Tech/DNA-radio/internal/db"
	"github.com/whisper-Tech/DNA-radio/internal/hub"
	"github.com/whisper-Tech/DNA-radio/internal/metadata"
	"github.com/whisper-Tech/DNA-radio/internal/models"
	"github.com/whisper-Tech/DNA-radio/internal/radio"
	"github.com/whisper-Tech/DNA-radio/internal/store"
	"github.com/whisper-Tech/DNA-radio/internal/suggest"
)

func main() {
	// 1. Parse Flags
	// We add flags to override config.yaml values
	seedFile := flag.String("seed", "", "Override seed playlist file (JSON array of songs)")
	port := flag.String("port", "", "Override listen address")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// 2. Load Config
	cfg := config.Load()
	if *seedFile != "" {
		cfg.Radio.SeedFile = *seedFile
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log.Println("🚀 Starting DNA Radio (community-voted broadcast)...")

	// 3. Init Infrastructure
	log.Printf("💾 Database: %s", database.Describe(cfg))
	db := database.New(cfg)
	if db != nil {
		db.AutoMigrate()
	} else {
		log.Println("⚠️ No database configured, running memory-only (state is lost on restart)")
	}
	st := store.New(db)
	seedAdmin(st, cfg)

	// 4. Wire the broadcast pipeline
	clock := radio.RealClock{}
	resolver := metadata.New(cfg)
	provider := suggest.New(cfg)
	engine := radio.New(cfg, clock, st, resolver, provider)

	h := hub.New(engine, st, clock)
	engine.SetBroadcaster(h)

	if err := engine.Init(loadSeeds(cfg.Radio.SeedFile)); err != nil {
		log.Fatalf("❌ Engine init failed: %v", err)
	}
	engine.Start()
	defer engine.Stop()

	// 5. Metrics on a separate port
	radio.RegisterMetrics()
	go radio.ServeMetrics(cfg.Server.MetricsPort)

	// 6. Serve
	server := api.New(cfg, engine, st, h)
	log.Printf("✅ Listening on %s", cfg.Server.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
}

// seedAdmin makes sure a fresh install has an operator account to log in
// with. Skipped when no password is configured.
func seedAdmin(st store.Store, cfg *config.Config) {
	if cfg.Auth.AdminPassword == "" {
		log.Println("⚠️ No admin password configured (RADIO_AUTH_ADMIN_PASSWORD), admin API stays locked")
		return
	}
	existing, err := st.GetUser(cfg.Auth.AdminUser)
	if err != nil {
		log.Printf("❌ Admin lookup failed: %v", err)
		return
	}
	if existing != nil {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash admin password: %v", err)
		return
	}
	if err := st.CreateUser(&models.User{
		Username:     cfg.Auth.AdminUser,
		PasswordHash: string(hash),
		Role:         "admin",
	}); err != nil {
		log.Printf("❌ Failed to seed admin user: %v", err)
		return
	}
	log.Printf("✅ Seeded admin user %q", cfg.Auth.AdminUser)
}

// loadSeeds reads the optional seed playlist. A broken file is not fatal,
// the engine falls back to its built-in demo playlist.
func loadSeeds(path string) []models.Song {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️ Could not read seed file %s: %v", path, err)
		return nil
	}
	var songs []models.Song
	if err := json.Unmarshal(raw, &songs); err != nil {
		log.Printf("⚠️ Could not parse seed file %s: %v", path, err)
		return nil
	}
	log.Printf("🌱 Loaded %d seed songs from %s", len(songs), path)
	return songs
}
