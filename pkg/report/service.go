package report

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/medscribe-ai/platform/pkg/common/kafka"
	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/observability/metrics"
	"github.com/medscribe-ai/platform/pkg/pipeline"
	"gorm.io/datatypes"
)

// Service runs the anti-hallucination pipeline for a consultation and owns
// the downstream bookkeeping: persisting the audit row and publishing the
// report event. Persistence and publishing failures are logged, never
// surfaced; the caller always receives the document.
type Service struct {
	pipe     *pipeline.Pipeline
	repo     *Repository
	producer *kafka.Producer
}

func NewService(pipe *pipeline.Pipeline, repo *Repository, producer *kafka.Producer) *Service {
	return &Service{pipe: pipe, repo: repo, producer: producer}
}

// Analyze produces the structured document for a consultation. The
// returned ID identifies the persisted audit row when persistence is
// configured.
func (s *Service) Analyze(ctx context.Context, req models.AnalysisRequest) (string, models.PipelineResult) {
	result := s.pipe.Analyze(ctx, req)
	metrics.ObserveAnalysis(result.Audit)
	id := uuid.New().String()

	if s.repo != nil {
		rec := &ReportModel{
			ID:               id,
			ContextTag:       req.ContextTag,
			SafetyLevel:      result.Audit.SafetyLevel,
			PrecisionScore:   result.Audit.PrecisionScore,
			GenerationMethod: result.GenerationMethod,
			NarrativeText:    result.NarrativeText,
			ReportText:       result.ReportText,
			Transcription:    result.TranscriptionEcho,
			Audit:            auditToJSONMap(result.Audit),
		}
		if err := s.repo.Save(ctx, rec); err != nil {
			logger.Log.WithError(err).Error("failed to persist generated report")
		}
	}

	if s.producer != nil {
		payload := map[string]interface{}{
			"report_id":         id,
			"context_tag":       req.ContextTag,
			"safety_level":      result.Audit.SafetyLevel,
			"precision_score":   result.Audit.PrecisionScore,
			"generation_method": result.GenerationMethod,
		}
		if err := s.producer.PublishEvent(ctx, "report.generated", "analyzer-service", payload); err != nil {
			logger.Log.WithError(err).Error("failed to publish report event")
		}
	}

	return id, result
}

func (s *Service) Get(ctx context.Context, id string) (*ReportModel, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func auditToJSONMap(audit models.Audit) datatypes.JSONMap {
	encoded, err := json.Marshal(audit)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to encode audit block")
		return datatypes.JSONMap{}
	}

	out := datatypes.JSONMap{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		logger.Log.WithError(err).Warn("failed to decode audit block")
		return datatypes.JSONMap{}
	}
	return out
}
