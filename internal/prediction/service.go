package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Brownie44l1/cancer-api/internal/metrics"
	"github.com/Brownie44l1/cancer-api/internal/model"
	"github.com/Brownie44l1/cancer-api/internal/preprocess"
)

type Config struct {
	Threshold      float64
	ImageSize      int
	Layout         preprocess.Layout
	MaxUploadBytes int64
	MaxPixels      int64
}

type Service struct {
	cfg        Config
	classifier Classifier
	store      Store
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(cfg Config, classifier Classifier, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		classifier: classifier,
		store:      store,
		logger:     logger.With("module", "prediction"),
		now:        time.Now,
	}
}

// timings records how long each pipeline stage took for one request.
type timings struct {
	validate  time.Duration
	normalize time.Duration
	infer     time.Duration
	persist   time.Duration
}

func (t timings) attrs() []any {
	return []any{
		"validate_ms", t.validate.Milliseconds(),
		"normalize_ms", t.normalize.Milliseconds(),
		"infer_ms", t.infer.Milliseconds(),
		"persist_ms", t.persist.Milliseconds(),
	}
}

// Predict runs an upload through validation, normalization, inference and
// classification, then persists the outcome. Every returned error wraps one
// of the package sentinels.
func (s *Service) Predict(ctx context.Context, up Upload) (Record, error) {
	var t timings

	rec, err := s.predict(ctx, up, &t)
	if err != nil {
		kind := Kind(err)
		metrics.PipelineFailures.WithLabelValues(kind).Inc()
		fields := append([]any{
			"operation", "predict",
			"outcome", "failure",
			"error_kind", kind,
			"error", err.Error(),
			"content_type", up.ContentType,
			"bytes", len(up.Data),
		}, t.attrs()...)
		s.logger.WarnContext(ctx, "prediction failed", fields...)
		return Record{}, err
	}

	metrics.Predictions.WithLabelValues(string(rec.Result)).Inc()
	fields := append([]any{
		"operation", "predict",
		"outcome", "success",
		"id", rec.ID,
		"result", rec.Result,
		"confidence", rec.Confidence,
	}, t.attrs()...)
	s.logger.InfoContext(ctx, "prediction stored", fields...)
	return rec, nil
}

func (s *Service) predict(ctx context.Context, up Upload, t *timings) (Record, error) {
	start := time.Now()
	if err := preprocess.Validate(up.Data, up.ContentType, preprocess.Limits{
		MaxBytes:  s.cfg.MaxUploadBytes,
		MaxPixels: s.cfg.MaxPixels,
	}); err != nil {
		t.validate = time.Since(start)
		switch {
		case errors.Is(err, preprocess.ErrTooLarge):
			return Record{}, fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
		case errors.Is(err, preprocess.ErrDecode):
			return Record{}, fmt.Errorf("%w: %w", ErrDecode, err)
		default:
			return Record{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	t.validate = time.Since(start)

	start = time.Now()
	input, err := preprocess.Normalize(up.Data, s.cfg.ImageSize, s.cfg.Layout)
	t.normalize = time.Since(start)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	start = time.Now()
	score, err := s.classifier.Infer(ctx, input)
	t.infer = time.Since(start)
	metrics.InferenceDuration.Observe(t.infer.Seconds())
	if err != nil {
		if errors.Is(err, model.ErrNotReady) {
			return Record{}, fmt.Errorf("%w: %w", ErrModelNotReady, err)
		}
		return Record{}, fmt.Errorf("%w: %w", ErrInference, err)
	}
	if score < 0 || score > 1 {
		return Record{}, fmt.Errorf("%w: score %v outside [0,1]", ErrInference, score)
	}

	confidence := Confidence(score)
	result, suggestion := Classify(confidence, s.cfg.Threshold)

	start = time.Now()
	rec, err := s.store.Create(ctx, Record{
		Result:     result,
		Suggestion: suggestion,
		Confidence: confidence,
		CreatedAt:  FormatTime(s.now()),
	})
	t.persist = time.Since(start)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return rec, nil
}

// Histories returns every stored record in the order the store yields them.
func (s *Service) Histories(ctx context.Context) ([]Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrRead, err)
		metrics.PipelineFailures.WithLabelValues(Kind(wrapped)).Inc()
		s.logger.ErrorContext(ctx, "list predictions failed",
			"operation", "histories",
			"outcome", "failure",
			"error", err.Error(),
		)
		return nil, wrapped
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
