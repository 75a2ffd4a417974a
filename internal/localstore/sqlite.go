package localstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry is one row of the kv_entries table
type kvEntry struct {
	Name      string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLStore keeps keys in a sqlite database through gorm
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens (or creates) the sqlite file and migrates the table
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open store %s: %w", path, err)
	}
	return NewSQLStoreWithDB(db)
}

// NewSQLStoreWithDB wraps an existing gorm connection
func NewSQLStoreWithDB(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(key string) (string, bool, error) {
	var entry kvEntry
	err := s.db.Where("name = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *SQLStore) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// SetMany upserts every key in one statement
func (s *SQLStore) SetMany(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	now := time.Now()
	entries := make([]kvEntry, 0, len(values))
	for k, v := range values {
		entries = append(entries, kvEntry{Name: k, Value: v, UpdatedAt: now})
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entries).Error
}

func (s *SQLStore) Delete(key string) error {
	return s.db.Where("name = ?", key).Delete(&kvEntry{}).Error
}

func (s *SQLStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.Model(&kvEntry{}).
		Where("name LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("name").
		Pluck("name", &keys).Error
	return keys, err
}

func escapeLike(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close releases the underlying connection
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
