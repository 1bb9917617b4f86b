package database

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/whisper-Tech/DNA-radio/internal/config"
	"github.com/whisper-Tech/DNA-radio/internal/models"
)

type Client struct {
	DB *gorm.DB
}

// New opens the database named by cfg.Database.URL. The scheme picks the
// driver: "postgres://..." or "sqlite://file.db". An empty URL returns nil,
// which downstream code treats as memory-only mode.
func New(cfg *config.Config) *Client {
	rawURL := strings.TrimSpace(cfg.Database.URL)
	if rawURL == "" {
		log.Println("Info: no database URL configured, running memory-only")
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		log.Fatalf("❌ Invalid database URL: %v", err)
	}

	var dialector gorm.Dialector
	switch u.Scheme {
	case "postgres", "postgresql":
		dialector = postgres.Open(rawURL)
	case "sqlite":
		path := u.Host + u.Path
		if path == "" {
			path = "radio.sqlite3"
		}
		dialector = sqlite.Open(path)
	default:
		log.Fatalf("❌ Unsupported database scheme: %q", u.Scheme)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}

	// Connection Pool Settings
	sqlDB, _ := db.DB()
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("✅ Database Connected")

	return &Client{DB: db}
}

// AutoMigrate creates/updates tables based on struct definitions
func (c *Client) AutoMigrate() {
	log.Println("Running Database Migrations...")
	err := c.DB.AutoMigrate(
		&models.Song{},
		&models.PlayRecord{},
		&models.Vote{},
		&models.Listener{},
		&models.User{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("✅ Migrations Complete")
}

// Describe returns a short label for startup logs.
func Describe(cfg *config.Config) string {
	u, err := url.Parse(cfg.Database.URL)
	if err != nil || u.Scheme == "" {
		return "none"
	}
	return fmt.Sprintf("%s (%s)", u.Scheme, u.Host)
}
