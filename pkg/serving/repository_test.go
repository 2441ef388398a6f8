package serving

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dependability/pkg/common/models"
	"github.com/synaptica-ai/dependability/pkg/vitals"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRepository(gdb), mock
}

func TestRepositoryRecordPrediction(t *testing.T) {
	repo, mock := setupMockRepository(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "dependability_predictions"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.RecordPrediction(context.Background(), models.PredictionResponse{
		PredictionID:    id.String(),
		ModelName:       "Ensemble",
		Prediction:      "High",
		Probabilities:   map[string]float64{"High": 0.7, "Low": 0.1, "Moderate": 0.2},
		InputData:       vitals.DefaultRecord(),
		DefaultedFields: []string{"spo2"},
		Source:          SourceReport,
	}, "v1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryRecent(t *testing.T) {
	repo, mock := setupMockRepository(t)
	id := uuid.New()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "model_name", "model_version", "prediction", "source",
		"input_data", "probabilities", "defaulted_fields", "created_at",
	}).AddRow(
		id.String(), "KNN", "v1", "Low", SourceDirect,
		[]byte(`{"heart_rate":70,"spo2":98,"temperature":36.6,"current_posture":"Left","left_pct":40,"right_pct":30,"supine_pct":30}`),
		[]byte(`{"Low":0.8,"Moderate":0.15,"High":0.05}`),
		[]byte(`{}`),
		created,
	)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "dependability_predictions" ORDER BY created_at DESC LIMIT`)).
		WillReturnRows(rows)

	entries, err := repo.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, id.String(), e.ID)
	assert.Equal(t, "KNN", e.ModelName)
	assert.Equal(t, "Low", e.Prediction)
	assert.Equal(t, 0.8, e.Probabilities["Low"])
	assert.Equal(t, vitals.PostureLeft, e.InputData.CurrentPosture)
	assert.Equal(t, 70.0, e.InputData.HeartRate)
	assert.True(t, created.Equal(e.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
