package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/georgepadayatti/esign/config"
	"github.com/georgepadayatti/esign/document"
)

// documentRecord is the table row. The queried columns are kept next to
// the full document, which is stored as JSON.
type documentRecord struct {
	ID          string             `gorm:"primaryKey;size:64"`
	Version     int64              `gorm:"not null;default:1"`
	IsCompleted bool               `gorm:"not null;default:false;index"`
	ContentHash string             `gorm:"size:64"`
	Data        *document.Document `gorm:"serializer:json;type:jsonb;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (documentRecord) TableName() string { return "esign_documents" }

func newRecord(doc *document.Document, version int64) *documentRecord {
	data := doc.Clone()
	data.Version = version
	return &documentRecord{
		ID:          doc.ID,
		Version:     version,
		IsCompleted: doc.IsCompleted,
		ContentHash: doc.ContentHash,
		Data:        data,
	}
}

// GormStore keeps documents in a SQL database through gorm.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenPostgres connects to Postgres with the pool settings of cfg and
// migrates the documents table.
func OpenPostgres(cfg *config.DatabaseConfig, log *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return NewGormStore(db, log)
}

// NewGormStore wraps an open connection and runs migrations.
func NewGormStore(db *gorm.DB, log *zap.Logger) (*GormStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&documentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &GormStore{db: db, logger: log.With(zap.String("component", "gorm_store"))}, nil
}

// Get implements DocumentStore.
func (s *GormStore) Get(ctx context.Context, id string) (*document.Document, error) {
	var rec documentRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	doc := rec.Data
	doc.ID = rec.ID
	doc.Version = rec.Version
	return doc, nil
}

// Create implements DocumentStore.
func (s *GormStore) Create(ctx context.Context, doc *document.Document) error {
	err := s.db.WithContext(ctx).Create(newRecord(doc, 1)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyExists
	}
	return err
}

// Update implements DocumentStore. The version check is repeated in the
// UPDATE statement so concurrent writers cannot both succeed.
func (s *GormStore) Update(ctx context.Context, id string, u Update) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur documentRecord
		if err := tx.Select("id", "version", "content_hash").First(&cur, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		current := &document.Document{ID: cur.ID, Version: cur.Version, ContentHash: cur.ContentHash}
		if err := checkUpdate(current, u); err != nil {
			return err
		}

		next := newRecord(u.Document, u.ExpectedVersion+1)
		next.ID = id
		next.Data.ID = id
		res := tx.Model(&documentRecord{}).
			Where("id = ? AND version = ?", id, u.ExpectedVersion).
			Select("version", "is_completed", "content_hash", "data", "updated_at").
			Updates(next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			s.logger.Debug("lost update race", zap.String("document_id", id), zap.Int64("version", u.ExpectedVersion))
			return ErrVersionConflict
		}
		return nil
	})
}
