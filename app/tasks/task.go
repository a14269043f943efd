package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeAnalyze        TaskType = "analyze"
	TaskTypeProcessFeed    TaskType = "watch_feed"
	TaskTypeRefilterFeed   TaskType = "refilter_feed"
	TaskTypeSyncFeedConfig TaskType = "sync_feed_config"
	TaskTypeVerifyTrends   TaskType = "verify_trend"
)

const (
	DefaultMaxRetries = 3
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSubject() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by all tasks. Subject is the feed name
// or the analysis ID the task works on.
type Task struct {
	ID         string
	Type       TaskType
	Subject    string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetSubject() string {
	return t.Subject
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, subject string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Subject:    subject,
		MaxRetries: DefaultMaxRetries,
	}
}

// retryDelay is the wait before the given retry: 1s, 2s, 4s... capped at 30s.
func retryDelay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	if retry > 6 {
		return 30 * time.Second
	}
	return min(time.Duration(1<<uint(retry-1))*time.Second, 30*time.Second)
}
