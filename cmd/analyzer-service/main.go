package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/medscribe-ai/platform/pkg/common/config"
	"github.com/medscribe-ai/platform/pkg/common/database"
	"github.com/medscribe-ai/platform/pkg/common/kafka"
	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/medscribe-ai/platform/pkg/correction"
	"github.com/medscribe-ai/platform/pkg/extraction"
	"github.com/medscribe-ai/platform/pkg/generation"
	"github.com/medscribe-ai/platform/pkg/llm"
	"github.com/medscribe-ai/platform/pkg/observability/metrics"
	"github.com/medscribe-ai/platform/pkg/pipeline"
	"github.com/medscribe-ai/platform/pkg/report"
	"github.com/medscribe-ai/platform/pkg/retrieval"
	"github.com/medscribe-ai/platform/pkg/validation"
	"github.com/medscribe-ai/platform/pkg/vocabulary"
)

type AnalyzerApp struct {
	service  *report.Service
	producer *kafka.Producer
	consumer *kafka.Consumer
}

func main() {
	logger.Init()
	cfg := config.Load()

	patterns, err := extraction.LoadPatterns(os.Getenv("EXTRACTION_PATTERNS_PATH"))
	if err != nil {
		logger.Log.WithError(err).Warn("failed to load extraction patterns, using defaults")
	}
	extractor, err := extraction.NewExtractor(patterns)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to compile extraction patterns")
	}

	catalog, err := vocabulary.Load(os.Getenv("VOCABULARY_CATALOG_PATH"))
	if err != nil {
		logger.Log.WithError(err).Warn("failed to load vocabulary catalog, using defaults")
	}

	var completer llm.Completer
	if client, err := llm.NewClient(cfg); err != nil {
		logger.Log.WithError(err).Warn("LLM client unavailable, all documents will use the safe template")
	} else {
		completer = client
	}

	searcher := retrieval.NewClient(cfg.RetrievalBaseURL, cfg.RetrievalTimeout, database.GetRedis(), cfg.RetrievalCacheTTL)

	pipe := pipeline.New(
		extractor,
		generation.NewAdapter(completer, searcher, cfg.RetrievalTopK),
		validation.NewValidator(catalog, completer),
		correction.NewCorrector(cfg.EscalationThreshold),
	)

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := report.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate report tables")
	}

	app := &AnalyzerApp{}
	app.producer = kafka.NewProducer("report-events")
	defer app.producer.Close()

	app.service = report.NewService(pipe, repo, app.producer)

	app.consumer = kafka.NewConsumer("transcription-events", "analyzer-service")
	defer app.consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := app.consumer.Consume(ctx, app.processEvent); err != nil {
			logger.Log.WithError(err).Fatal("consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	report.NewHTTPHandler(app.service, cfg.MaxRequestBody).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Analyzer Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Analyzer Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Analyzer Service stopped")
}

func (a *AnalyzerApp) processEvent(ctx context.Context, event models.Event) error {
	req, err := parseTranscriptionPayload(event.Data)
	if err != nil {
		logger.Log.WithError(err).Error("invalid transcription payload")
		return err
	}

	id, result := a.service.Analyze(ctx, req)
	logger.Log.WithFields(map[string]interface{}{
		"report_id":    id,
		"event_id":     event.ID,
		"safety_level": result.Audit.SafetyLevel,
	}).Info("transcription event processed")

	return nil
}

func parseTranscriptionPayload(data map[string]interface{}) (models.AnalysisRequest, error) {
	transcript, ok := data["transcript_text"].(string)
	if !ok {
		return models.AnalysisRequest{}, fmt.Errorf("transcript_text missing")
	}

	summary, _ := data["patient_summary_text"].(string)
	contextTag, _ := data["context_tag"].(string)

	return models.AnalysisRequest{
		TranscriptText:     transcript,
		PatientSummaryText: summary,
		ContextTag:         contextTag,
	}, nil
}
