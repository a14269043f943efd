package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/truthlens/app/analysis"
)

// AnalyzeTask runs an analysis queued through the API. The analysis is marked
// failed once its last retry fails.
type AnalyzeTask struct {
	Task
	Request   analysis.Request
	processor AnalysisProcessor
}

func NewAnalyzeTask(analysisID string, req analysis.Request, processor AnalysisProcessor) *AnalyzeTask {
	return &AnalyzeTask{
		Task:      NewTask(TaskTypeAnalyze, analysisID),
		Request:   req,
		processor: processor,
	}
}

func (t *AnalyzeTask) Execute(ctx context.Context) error {
	report, err := t.processor.Process(ctx, t.Subject, t.Request)
	if err != nil {
		if errors.Is(err, analysis.ErrNoInput) {
			t.RetryCount = t.MaxRetries
		}
		if !t.CanRetry() {
			if failErr := t.processor.Fail(t.Subject, err); failErr != nil {
				slog.Error("Failed to mark analysis as failed", "analysis", t.Subject, "error", failErr)
			}
		}
		return fmt.Errorf("failed to analyze: %w", err)
	}

	slog.Info("Task completed",
		"type", "Analyze",
		"analysis", t.Subject,
		"duration", t.GetDuration(),
		"verdict", report.Verdict,
		"confidence", report.ConfidenceScore)

	return nil
}

// Abandon marks the analysis failed when the scheduler drops the task.
func (t *AnalyzeTask) Abandon(err error) {
	slog.Warn("Analysis abandoned", "analysis", t.Subject, "retry_count", t.RetryCount, "error", err)
	if failErr := t.processor.Fail(t.Subject, fmt.Errorf("analysis abandoned: %w", err)); failErr != nil {
		slog.Error("Failed to mark analysis as failed", "analysis", t.Subject, "error", failErr)
	}
}
