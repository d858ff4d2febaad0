// SQLite-backed session store (pure Go driver) for single-host deployments
// without Redis. The same Store interface, persisted in two small tables.
package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/mkaravel/go-voice-fleet/internal/domain"
)

// sessionRecord is the persisted form of a guild's voice session.
type sessionRecord struct {
	GuildID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ActiveChannelID string    `gorm:"type:TEXT NOT NULL"`
	OwnerID         string    `gorm:"type:TEXT NOT NULL"`
	LastActorID     string    `gorm:"type:TEXT NOT NULL"`
	StartedAt       time.Time `gorm:"type:DATETIME NOT NULL"`
	UpdatedAt       time.Time `gorm:"type:DATETIME NOT NULL"`
	ExpiresAt       time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (sessionRecord) TableName() string { return "voice_sessions" }

// lastChannelRecord remembers a user's most recent target channel per guild.
type lastChannelRecord struct {
	GuildID   string    `gorm:"type:TEXT NOT NULL;primaryKey;priority:1"`
	UserID    string    `gorm:"type:TEXT NOT NULL;primaryKey;priority:2"`
	ChannelID string    `gorm:"type:TEXT NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL"`
}

// TableName implements the GORM tabler interface.
func (lastChannelRecord) TableName() string { return "last_channels" }

// SQLiteConfig holds settings for the SQLite backend.
type SQLiteConfig struct {
	Path string
	// TTL is the idle lifetime of a session record.
	TTL time.Duration
	// Tracing attaches the GORM OpenTelemetry plugin.
	Tracing bool
}

// SQLiteStore implements Store on a GORM SQLite handle.
type SQLiteStore struct {
	db  *gorm.DB
	ttl time.Duration

	now func() time.Time // test seam
}

// NewSQLiteStore opens (or creates) the database, applies PRAGMAs, and
// migrates the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	// Fail early if the parent directory does not exist.
	if dir := filepath.Dir(cfg.Path); dir != "." && cfg.Path != ":memory:" {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if cfg.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	if err := db.AutoMigrate(&sessionRecord{}, &lastChannelRecord{}); err != nil {
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// GetSession implements Store. Expired records read as absent.
func (s *SQLiteStore) GetSession(ctx context.Context, guildID string) (*domain.VoiceSession, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.now().After(rec.ExpiresAt) {
		return nil, nil
	}
	return &domain.VoiceSession{
		GuildID:         rec.GuildID,
		ActiveChannelID: rec.ActiveChannelID,
		OwnerID:         rec.OwnerID,
		LastActorID:     rec.LastActorID,
		StartedAt:       rec.StartedAt,
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}

// SetActiveSession implements Store.
func (s *SQLiteStore) SetActiveSession(ctx context.Context, guildID, channelID, userID string) error {
	now := s.now().UTC()
	rec := sessionRecord{
		GuildID:         guildID,
		ActiveChannelID: channelID,
		OwnerID:         userID,
		LastActorID:     userID,
		StartedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}

	var existing sessionRecord
	err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&existing).Error
	if err == nil && now.Before(existing.ExpiresAt) {
		// Live session: keep owner and start time, move the channel.
		rec.OwnerID = existing.OwnerID
		rec.StartedAt = existing.StartedAt
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// ClearActiveSession implements Store.
func (s *SQLiteStore) ClearActiveSession(ctx context.Context, guildID string) error {
	return s.db.WithContext(ctx).Where("guild_id = ?", guildID).Delete(&sessionRecord{}).Error
}

// RecordLastChannel implements Store.
func (s *SQLiteStore) RecordLastChannel(ctx context.Context, guildID, userID, channelID string) error {
	rec := lastChannelRecord{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
		UpdatedAt: s.now().UTC(),
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// LastChannel implements Store.
func (s *SQLiteStore) LastChannel(ctx context.Context, guildID, userID string) (string, error) {
	var rec lastChannelRecord
	err := s.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.ChannelID, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
