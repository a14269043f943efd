package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var ErrSchedulerStopped = errors.New("scheduler stopped")

const (
	queueSize   = 300
	taskTimeout = 5 * time.Minute
)

// Options tune the scheduler loop.
type Options struct {
	UserAgent   string
	Interval    time.Duration
	WorkerCount int
}

type Scheduler struct {
	feedRepo    database.FeedRepository
	trendRepo   database.TrendRepository
	configCache *feed.ConfigCache
	httpClient  *http.Client
	parser      *feed.Parser
	filterer    *feed.Filterer
	verifier    TrendVerifier
	userAgent   string
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	trendRepo database.TrendRepository, httpClient *http.Client, parser *feed.Parser, filterer *feed.Filterer,
	verifier TrendVerifier, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}

	return &Scheduler{
		feedRepo:    feedRepo,
		trendRepo:   trendRepo,
		configCache: configCache,
		httpClient:  httpClient,
		parser:      parser,
		filterer:    filterer,
		verifier:    verifier,
		userAgent:   opts.UserAgent,
		interval:    opts.Interval,
		workerCount: opts.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

// Stop cancels running tasks and waits for the workers to exit. Tasks still
// queued are dropped and abandoned.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()

	for {
		select {
		case task := <-s.taskQueue:
			abandon(task, ErrSchedulerStopped)
		default:
			return
		}
	}
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// NewRefilterFeedTask builds a refilter task bound to the scheduler's
// dependencies.
func (s *Scheduler) NewRefilterFeedTask(feedConfig *feed.Config) *RefilterFeedTask {
	return NewRefilterFeedTask(feedConfig.Name, feedConfig, s.filterer, s.trendRepo)
}

func (s *Scheduler) NewSyncFeedConfigTask(feedConfig *feed.Config) *SyncFeedConfigTask {
	return NewSyncFeedConfigTask(feedConfig.Name, feedConfig, s.feedRepo)
}

func (s *Scheduler) enqueueStartupTasks() {
	feedConfigs := s.configCache.GetConfigs()
	if len(feedConfigs) == 0 {
		slog.Debug("No feed configurations found")
		return
	}

	slog.Debug("Processing feed configurations", "count", len(feedConfigs))

	for _, feedConfig := range feedConfigs {
		if err := s.EnqueueTask(s.NewSyncFeedConfigTask(feedConfig)); err != nil {
			slog.Warn("Failed to enqueue SyncFeedConfigTask", "feed", feedConfig.Name, "error", err)
			continue
		}

		if !feedConfig.Settings.Enabled {
			slog.Debug("Feed disabled, skipping ProcessFeedTask", "feed", feedConfig.Name)
			continue
		}

		if err := s.EnqueueTask(s.newProcessFeedTask(feedConfig)); err != nil {
			slog.Warn("Failed to enqueue ProcessFeedTask", "feed", feedConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	feedConfigs := s.configCache.GetEnabledConfigs()
	if len(feedConfigs) == 0 {
		slog.Debug("No enabled feed configurations found")
		return
	}

	for _, feedConfig := range feedConfigs {
		feed, err := s.feedRepo.GetFeed(feedConfig.Name)
		if err != nil {
			slog.Warn("Failed to get feed from database, skipping", "feed", feedConfig.Name, "error", err)
			continue
		}
		if feed == nil {
			slog.Warn("Feed not found in database, skipping", "feed", feedConfig.Name)
			continue
		}

		now := time.Now().UTC()
		if feed.NextFetchAt != nil && feed.NextFetchAt.After(now) {
			slog.Debug("Feed not due for refresh yet", "feed", feedConfig.Name, "next_fetch_at", feed.NextFetchAt)
		} else if err := s.EnqueueTask(s.newProcessFeedTask(feedConfig)); err != nil {
			slog.Warn("Failed to enqueue ProcessFeedTask", "feed", feedConfig.Name, "error", err)
		}

		if feedConfig.Settings.Verify && s.verifier != nil {
			verifyTask := NewVerifyTrendsTask(feedConfig.Name, feedConfig, s.verifier, s.trendRepo)
			if err := s.EnqueueTask(verifyTask); err != nil {
				slog.Warn("Failed to enqueue VerifyTrendsTask", "feed", feedConfig.Name, "error", err)
			}
		}
	}
}

func (s *Scheduler) newProcessFeedTask(feedConfig *feed.Config) *ProcessFeedTask {
	return NewProcessFeedTask(feedConfig.Name, feedConfig, s.httpClient, s.parser, s.filterer,
		s.feedRepo, s.trendRepo, s.userAgent)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed",
		"worker_id", workerID,
		"type", string(task.GetType()),
		"id", task.GetID(),
		"subject", task.GetSubject(),
		"retry_count", task.GetRetryCount(),
		"error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries",
			"type", string(task.GetType()),
			"id", task.GetID(),
			"retry_count", task.GetRetryCount(),
			"max_retries", task.GetMaxRetries(),
			"last_error", err)
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled",
		"type", string(task.GetType()),
		"subject", task.GetSubject(),
		"retry_count", task.GetRetryCount(),
		"max_retries", task.GetMaxRetries(),
		"delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			abandon(task, ErrSchedulerStopped)
		case <-timer.C:
			if err := s.EnqueueTask(task); err != nil {
				slog.Error("Failed to re-enqueue task for retry",
					"type", string(task.GetType()),
					"id", task.GetID(),
					"retry_count", task.GetRetryCount(),
					"error", err)
				abandon(task, err)
			}
		}
	}()
}

func abandon(task TaskInterface, err error) {
	if a, ok := task.(Abandoner); ok {
		a.Abandon(err)
	}
}
