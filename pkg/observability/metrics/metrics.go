package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/medscribe-ai/platform/pkg/common/models"
)

var (
	analysesTotal      atomic.Int64
	maximumSafeTotal   atomic.Int64
	validatedSafeTotal atomic.Int64
	correctedSafeTotal atomic.Int64
	emergencySafeTotal atomic.Int64
	manualReviewTotal  atomic.Int64
	flagsDetectedTotal atomic.Int64
)

func Init() {}

// ObserveAnalysis records one finished pipeline run.
func ObserveAnalysis(audit models.Audit) {
	analysesTotal.Add(1)
	flagsDetectedTotal.Add(int64(len(audit.HallucinationFlags)))

	switch audit.SafetyLevel {
	case models.SafetyMaximumSafe:
		maximumSafeTotal.Add(1)
	case models.SafetyValidatedSafe:
		validatedSafeTotal.Add(1)
	case models.SafetyCorrectedSafe:
		correctedSafeTotal.Add(1)
	case models.SafetyEmergencySafe:
		emergencySafeTotal.Add(1)
	}
	if audit.RequiresManualReview {
		manualReviewTotal.Add(1)
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP medscribe_pipeline_analyses_total Number of consultations processed by the anti-hallucination pipeline.\n")
	fmt.Fprintf(w, "# TYPE medscribe_pipeline_analyses_total counter\n")
	fmt.Fprintf(w, "medscribe_pipeline_analyses_total %d\n", analysesTotal.Load())

	fmt.Fprintf(w, "# HELP medscribe_pipeline_maximum_safe_total Documents produced from the safe template without generation.\n")
	fmt.Fprintf(w, "# TYPE medscribe_pipeline_maximum_safe_total counter\n")
	fmt.Fprintf(w, "medscribe_pipeline_maximum_safe_total %d\n", maximumSafeTotal.Load())

	fmt.Fprintf(w, "# HELP medscribe_pipeline_validated_safe_total Generated documents that passed validation untouched.\n")
	fmt.Fprintf(w, "# TYPE medscribe_pipeline_validated_safe_total counter\n")
	fmt.Fprintf(w, "medscribe_pipeline_validated_safe_total %d\n", validatedSafeTotal.Load())

	fmt.Fprintf(w, "# HELP medscribe_pipeline_corrected_safe_total Generated documents that required correction or escalation.\n")
	fmt.Fprintf(w, "# TYPE medscribe_pipeline_corrected_safe_total counter\n")
	fmt.Fprintf(w, "medscribe_pipeline_corrected_safe_total %d\n", correctedSafeTotal.Load())

	fmt.Fprintf(w, "# HELP medscribe_pipeline_emergency_safe_total Runs that terminated in the emergency fallback.\n")
	fmt.Fprintf(w, "# TYPE medscribe_pipeline_emergency_safe_total counter\n")
	fmt.Fprintf(w, "medscribe_pipeline_emergency_safe_total %d\n", emergencySafeTotal.Load())

	fmt.Fprintf(w, "# HELP medscribe_pipeline_manual_review_total Documents flagged for manual medical review.\n")
	fmt.Fprintf(w, "# TYPE medscribe_pipeline_manual_review_total counter\n")
	fmt.Fprintf(w, "medscribe_pipeline_manual_review_total %d\n", manualReviewTotal.Load())

	fmt.Fprintf(w, "# HELP medscribe_pipeline_hallucination_flags_total Hallucination flags raised by the validator.\n")
	fmt.Fprintf(w, "# TYPE medscribe_pipeline_hallucination_flags_total counter\n")
	fmt.Fprintf(w, "medscribe_pipeline_hallucination_flags_total %d\n", flagsDetectedTotal.Load())
}
