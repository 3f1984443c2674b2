// Package history は分類履歴をgormで永続化するリポジトリを提供します。
package history

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ecosort_backend/internal/feature/classification/domain/entity"
	"ecosort_backend/internal/feature/classification/usecase"
)

type historyGorm struct {
	db *gorm.DB
}

var _ usecase.HistoryRepository = (*historyGorm)(nil)

func NewHistoryRepository(db *gorm.DB) *historyGorm {
	return &historyGorm{db: db}
}

// ClassificationRecord は分類履歴テーブルの行です。
type ClassificationRecord struct {
	ID         uint      `gorm:"primaryKey"`
	ImageHash  string    `gorm:"size:64;not null;index"`
	Width      int       `gorm:"not null;default:0"`
	Height     int       `gorm:"not null;default:0"`
	Label      string    `gorm:"size:128"`
	Category   string    `gorm:"size:32;index"`
	Confidence float64   `gorm:"not null;default:0"`
	Count      int       `gorm:"not null;default:0"`
	Backend    string    `gorm:"size:32"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (ClassificationRecord) TableName() string {
	return "classification_history"
}

func toModel(e entity.HistoryEntry) ClassificationRecord {
	return ClassificationRecord{
		ImageHash:  e.ImageHash,
		Width:      e.Width,
		Height:     e.Height,
		Label:      e.Label,
		Category:   string(e.Category),
		Confidence: e.Confidence,
		Count:      e.Count,
		Backend:    e.Backend,
		CreatedAt:  e.CreatedAt,
	}
}

func toEntity(m ClassificationRecord) entity.HistoryEntry {
	return entity.HistoryEntry{
		ID:         m.ID,
		ImageHash:  m.ImageHash,
		Width:      m.Width,
		Height:     m.Height,
		Label:      m.Label,
		Category:   entity.Category(m.Category),
		Confidence: m.Confidence,
		Count:      m.Count,
		Backend:    m.Backend,
		CreatedAt:  m.CreatedAt,
	}
}

func (r *historyGorm) Save(ctx context.Context, e entity.HistoryEntry) error {
	m := toModel(e)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *historyGorm) ListRecent(ctx context.Context, limit int) ([]entity.HistoryEntry, error) {
	var rows []ClassificationRecord
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.HistoryEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}
