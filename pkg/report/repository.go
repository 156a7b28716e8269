package report

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("report not found")

type ReportModel struct {
	ID               string            `gorm:"primaryKey;column:id"`
	ContextTag       string            `gorm:"column:context_tag"`
	SafetyLevel      string            `gorm:"column:safety_level"`
	PrecisionScore   float64           `gorm:"column:precision_score"`
	GenerationMethod string            `gorm:"column:generation_method"`
	NarrativeText    string            `gorm:"column:narrative_text;type:text"`
	ReportText       string            `gorm:"column:report_text;type:text"`
	Transcription    string            `gorm:"column:transcription;type:text"`
	Audit            datatypes.JSONMap `gorm:"column:audit"`
	CreatedAt        time.Time         `gorm:"column:created_at"`
}

func (ReportModel) TableName() string {
	return "generated_reports"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&ReportModel{})
}

func (r *Repository) Save(ctx context.Context, rec *ReportModel) error {
	rec.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) FindByID(ctx context.Context, id string) (*ReportModel, error) {
	var rec ReportModel
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
