package serving

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dependability/pkg/common/kafka"
	"github.com/synaptica-ai/dependability/pkg/common/logger"
	"github.com/synaptica-ai/dependability/pkg/common/models"
	"github.com/synaptica-ai/dependability/pkg/features"
	"github.com/synaptica-ai/dependability/pkg/observability/metrics"
	"github.com/synaptica-ai/dependability/pkg/report"
	"github.com/synaptica-ai/dependability/pkg/serving/predictor"
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

const (
	SourceReport = "report"
	SourceDirect = "direct"
)

const sideChannelTimeout = 2 * time.Second

type Cache interface {
	Get(ctx context.Context, key string) (*models.PredictionResponse, bool, error)
	Set(ctx context.Context, key string, resp models.PredictionResponse) error
}

type PredictionStore interface {
	RecordPrediction(ctx context.Context, resp models.PredictionResponse, version string) error
	Recent(ctx context.Context, limit int) ([]models.PredictionLogEntry, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, key string, data map[string]interface{}) error
}

// Service runs both prediction paths against one loaded predictor. The cache,
// store and publisher are optional; their failures are logged and never fail
// a request.
type Service struct {
	predictor *predictor.Predictor
	cache     Cache
	store     PredictionStore
	events    EventPublisher
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithStore(st PredictionStore) Option {
	return func(s *Service) { s.store = st }
}

func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func NewService(p *predictor.Predictor, opts ...Option) *Service {
	s := &Service{predictor: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Predictor() *predictor.Predictor {
	return s.predictor
}

// PredictReport extracts vitals from report text and classifies them.
// Extraction never fails; defaulted fields are listed on the response.
func (s *Service) PredictReport(ctx context.Context, text, modelName string) (models.PredictionResponse, error) {
	ext := report.Extract(text)

	documentFailed := false
	for _, w := range ext.Warnings {
		if report.IsDocumentError(w) {
			documentFailed = true
		}
	}
	metrics.ObserveExtraction(ext.Defaulted, documentFailed)

	resp, err := s.predict(ctx, ext.Record, modelName, SourceReport, ext.Defaulted)
	if err != nil {
		return models.PredictionResponse{}, err
	}
	return resp, nil
}

// PredictDirect classifies a structured request. Absent fields take the
// defaults and the record is normalised like an extracted one.
func (s *Service) PredictDirect(ctx context.Context, req models.DirectRequest) (models.PredictionResponse, error) {
	rec, defaulted := ResolveDirect(req)
	if err := rec.Validate(); err != nil {
		return models.PredictionResponse{}, err
	}
	return s.predict(ctx, rec.Normalize(), req.ModelName, SourceDirect, defaulted)
}

// ResolveDirect fills absent request fields with defaults.
func ResolveDirect(req models.DirectRequest) (vitals.Record, []string) {
	rec := vitals.DefaultRecord()
	var defaulted []string

	pick := func(field string, src *float64, dst *float64) {
		if src != nil {
			*dst = *src
			return
		}
		defaulted = append(defaulted, field)
	}
	pick(report.FieldHeartRate, req.HeartRate, &rec.HeartRate)
	pick(report.FieldSpO2, req.SpO2, &rec.SpO2)
	pick(report.FieldTemperature, req.Temperature, &rec.Temperature)
	if req.CurrentPosture != nil {
		rec.CurrentPosture = vitals.Posture(*req.CurrentPosture)
	} else {
		defaulted = append(defaulted, report.FieldCurrentPosture)
	}
	pick(report.FieldLeftPct, req.LeftPct, &rec.LeftPct)
	pick(report.FieldRightPct, req.RightPct, &rec.RightPct)
	pick(report.FieldSupinePct, req.SupinePct, &rec.SupinePct)
	return rec, defaulted
}

func (s *Service) predict(ctx context.Context, rec vitals.Record, modelName, source string, defaulted []string) (models.PredictionResponse, error) {
	if modelName == "" {
		modelName = s.predictor.DefaultModel()
	}
	if !s.predictor.HasModel(modelName) {
		metrics.ObservePredictionError()
		return models.PredictionResponse{}, s.predictor.UnknownModel(modelName)
	}

	key := CacheKey(s.predictor.Version(), modelName, rec)
	if cached, ok := s.lookup(ctx, key); ok {
		cached.PredictionID = uuid.New().String()
		cached.Source = source
		cached.DefaultedFields = defaulted
		cached.Cached = true
		metrics.ObservePrediction(source, cached.Prediction)
		return *cached, nil
	}

	vector, err := features.Derive(rec, s.predictor.Encoder())
	if err != nil {
		metrics.ObservePredictionError()
		return models.PredictionResponse{}, err
	}
	logger.WithFields(logrus.Fields(vector.Map())).Debug("Derived features")

	result, err := s.predictor.Predict(vector, modelName)
	if err != nil {
		metrics.ObservePredictionError()
		return models.PredictionResponse{}, err
	}

	resp := models.PredictionResponse{
		PredictionID:    uuid.New().String(),
		ModelName:       result.Model,
		Prediction:      result.Label,
		Probabilities:   result.Probabilities,
		InputData:       rec.Rounded(),
		DefaultedFields: defaulted,
		Source:          source,
	}
	metrics.ObservePrediction(source, resp.Prediction)

	logger.WithFields(logrus.Fields{
		"prediction_id": resp.PredictionID,
		"model":         resp.ModelName,
		"prediction":    resp.Prediction,
		"source":        source,
		"defaulted":     len(defaulted),
	}).Info("Prediction completed")

	s.afterPredict(ctx, key, resp)
	return resp, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*models.PredictionResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, sideChannelTimeout)
	defer cancel()

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.ObserveSideChannelFailure()
		logger.Log.WithError(err).Warn("result cache lookup failed")
		return nil, false
	}
	metrics.ObserveCache(ok)
	return cached, ok
}

func (s *Service) afterPredict(ctx context.Context, key string, resp models.PredictionResponse) {
	ctx, cancel := context.WithTimeout(ctx, sideChannelTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			metrics.ObserveSideChannelFailure()
			logger.Log.WithError(err).Warn("result cache store failed")
		}
	}
	if s.store != nil {
		if err := s.store.RecordPrediction(ctx, resp, s.predictor.Version()); err != nil {
			metrics.ObserveSideChannelFailure()
			logger.Log.WithError(err).WithField("prediction_id", resp.PredictionID).Warn("prediction log insert failed")
		}
	}
	if s.events != nil {
		data := map[string]interface{}{
			"prediction_id":    resp.PredictionID,
			"model_name":       resp.ModelName,
			"model_version":    s.predictor.Version(),
			"prediction":       resp.Prediction,
			"probabilities":    resp.Probabilities,
			"source":           resp.Source,
			"defaulted_fields": resp.DefaultedFields,
		}
		if err := s.events.PublishEvent(ctx, kafka.EventPredicted, resp.PredictionID, data); err != nil {
			metrics.ObserveSideChannelFailure()
			logger.Log.WithError(err).WithField("prediction_id", resp.PredictionID).Warn("prediction event publish failed")
		}
	}
}

// History returns recent logged predictions. ok is false when no store is
// configured.
func (s *Service) History(ctx context.Context, limit int) ([]models.PredictionLogEntry, bool, error) {
	if s.store == nil {
		return nil, false, nil
	}
	entries, err := s.store.Recent(ctx, limit)
	return entries, true, err
}
