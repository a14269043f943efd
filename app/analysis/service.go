package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/trust"
)

const maxSnippetChars = 300

// Runner produces a report for a request.
type Runner interface {
	Analyze(ctx context.Context, req Request) (*Report, error)
}

var _ Runner = (*Analyzer)(nil)

// Service persists analyses around a Runner.
type Service struct {
	runner Runner
	repo   database.AnalysisRepository
	trust  *trust.Table
}

func NewService(runner Runner, repo database.AnalysisRepository, table *trust.Table) *Service {
	if table == nil {
		table = trust.Default()
	}
	return &Service{runner: runner, repo: repo, trust: table}
}

// Create validates req and records it as pending.
func (s *Service) Create(req Request) (*database.Analysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a := &database.Analysis{
		InputText: req.Text,
		ImageName: req.ImageName,
		SourceURL: req.SourceURL,
	}
	if err := s.repo.CreateAnalysis(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Process runs the recorded analysis id and stores its outcome. On failure the
// record stays in processing; callers decide when to give up with Fail.
func (s *Service) Process(ctx context.Context, id string, req Request) (*Report, error) {
	if err := s.repo.UpdateAnalysisStatus(id, database.StatusProcessing, ""); err != nil {
		return nil, err
	}

	report, err := s.runner.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CompleteAnalysis(id, s.outcome(report)); err != nil {
		return nil, fmt.Errorf("failed to store analysis outcome: %w", err)
	}

	return report, nil
}

// Fail marks the analysis id as failed with cause.
func (s *Service) Fail(id string, cause error) error {
	return s.repo.UpdateAnalysisStatus(id, database.StatusFailed, cause.Error())
}

// Analyze records, runs and stores req in one call.
func (s *Service) Analyze(ctx context.Context, req Request) (string, *Report, error) {
	a, err := s.Create(req)
	if err != nil {
		return "", nil, err
	}

	report, err := s.Process(ctx, a.ID, req)
	if err != nil {
		if failErr := s.Fail(a.ID, err); failErr != nil {
			slog.Error("Failed to mark analysis as failed", "id", a.ID, "error", failErr)
		}
		return a.ID, nil, err
	}

	return a.ID, report, nil
}

// RecoverUnfinished fails analyses left pending or processing by a previous
// run. Call it before any task is queued.
func (s *Service) RecoverUnfinished() (int64, error) {
	return s.repo.FailUnfinishedAnalyses("analysis interrupted by a service restart")
}

func (s *Service) Get(id string) (*database.Analysis, error) {
	return s.repo.GetAnalysis(id)
}

func (s *Service) Stats() (map[string]int, error) {
	return s.repo.GetAnalysisStats()
}

func (s *Service) outcome(r *Report) database.AnalysisOutcome {
	sources := make([]database.Source, 0, len(r.Evidence))
	for _, item := range r.Evidence {
		sources = append(sources, database.Source{
			URL:         item.URL,
			Title:       item.Title,
			Snippet:     evidence.Truncate(item.Content, maxSnippetChars),
			Credibility: s.trust.Score(item.URL),
		})
	}

	return database.AnalysisOutcome{
		IsMisinformation: r.IsMisinformation,
		Verdict:          r.Verdict,
		Confidence:       r.ConfidenceScore,
		Report:           r.Report,
		ImageReport:      r.ImageReport,
		TextReport:       r.TextReport,
		Warnings:         r.Warnings,
		Sources:          sources,
	}
}
