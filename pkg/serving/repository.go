package serving

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/dependability/pkg/common/models"
	"github.com/synaptica-ai/dependability/pkg/vitals"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for served predictions.
type PredictionLog struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	ModelName       string            `gorm:"column:model_name"`
	ModelVersion    string            `gorm:"column:model_version"`
	Prediction      string            `gorm:"column:prediction"`
	Source          string            `gorm:"column:source"`
	InputData       datatypes.JSONMap `gorm:"column:input_data"`
	Probabilities   datatypes.JSONMap `gorm:"column:probabilities"`
	DefaultedFields datatypes.JSONMap `gorm:"column:defaulted_fields"`
	CreatedAt       time.Time         `gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "dependability_predictions"
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, resp models.PredictionResponse, version string) error {
	id, err := uuid.Parse(resp.PredictionID)
	if err != nil {
		id = uuid.New()
	}

	input, err := toJSONMap(resp.InputData)
	if err != nil {
		return err
	}
	probabilities := datatypes.JSONMap{}
	for label, p := range resp.Probabilities {
		probabilities[label] = p
	}
	defaulted := datatypes.JSONMap{}
	for _, field := range resp.DefaultedFields {
		defaulted[field] = true
	}

	log := PredictionLog{
		ID:              id,
		ModelName:       resp.ModelName,
		ModelVersion:    version,
		Prediction:      resp.Prediction,
		Source:          resp.Source,
		InputData:       input,
		Probabilities:   probabilities,
		DefaultedFields: defaulted,
		CreatedAt:       time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.PredictionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.PredictionLogEntry, 0, len(logs))
	for _, l := range logs {
		entry := models.PredictionLogEntry{
			ID:            l.ID.String(),
			ModelName:     l.ModelName,
			ModelVersion:  l.ModelVersion,
			Prediction:    l.Prediction,
			Probabilities: make(map[string]float64, len(l.Probabilities)),
			Source:        l.Source,
			CreatedAt:     l.CreatedAt,
		}
		for label, v := range l.Probabilities {
			switch n := v.(type) {
			case float64:
				entry.Probabilities[label] = n
			case json.Number:
				if f, err := n.Float64(); err == nil {
					entry.Probabilities[label] = f
				}
			}
		}
		if err := fromJSONMap(l.InputData, &entry.InputData); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toJSONMap(rec vitals.Record) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	out := datatypes.JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromJSONMap(m datatypes.JSONMap, rec *vitals.Record) error {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, rec)
}
