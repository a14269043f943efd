package tasks

import (
	"context"

	"github.com/lysyi3m/truthlens/app/analysis"
	"github.com/lysyi3m/truthlens/app/textcheck"
)

// TaskSchedulerInterface is what the HTTP layer needs to queue work.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Abandoner is implemented by tasks that must record being dropped by the
// scheduler before their retries ran out.
type Abandoner interface {
	Abandon(err error)
}

// AnalysisProcessor runs and stores a recorded analysis.
type AnalysisProcessor interface {
	Process(ctx context.Context, id string, req analysis.Request) (*analysis.Report, error)
	Fail(id string, cause error) error
}

var _ AnalysisProcessor = (*analysis.Service)(nil)

// TrendVerifier checks the claims of a trend's text.
type TrendVerifier interface {
	Run(ctx context.Context, in textcheck.Input) (*textcheck.Result, error)
}
