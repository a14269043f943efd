package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/feed"
	"github.com/lysyi3m/truthlens/app/textcheck"
)

// VerifyTrendsTask runs pending trends of a feed through text verification.
// A trend whose verification fails is retried on later ticks up to a fixed
// number of attempts.
type VerifyTrendsTask struct {
	Task
	FeedConfig *feed.Config
	verifier   TrendVerifier
	trendRepo  database.TrendRepository
}

func NewVerifyTrendsTask(feedName string, feedConfig *feed.Config, verifier TrendVerifier,
	trendRepo database.TrendRepository) *VerifyTrendsTask {
	return &VerifyTrendsTask{
		Task:       NewTask(TaskTypeVerifyTrends, feedName),
		FeedConfig: feedConfig,
		verifier:   verifier,
		trendRepo:  trendRepo,
	}
}

func (t *VerifyTrendsTask) Execute(ctx context.Context) error {
	if !t.FeedConfig.Settings.Verify {
		slog.Debug("Verification disabled for feed", "feed", t.Subject)
		return nil
	}

	trends, err := t.trendRepo.GetTrendsForVerification(t.Subject, t.FeedConfig.Settings.VerifyLimit)
	if err != nil {
		return fmt.Errorf("failed to get trends for verification: %w", err)
	}

	if len(trends) == 0 {
		slog.Debug("No trends need verification", "feed", t.Subject)
		return nil
	}

	verified, failed, skipped := 0, 0, 0

	for _, trend := range trends {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		v := t.verify(ctx, trend)
		switch v.Status {
		case database.VerificationVerified:
			verified++
		case database.VerificationSkipped:
			skipped++
		default:
			failed++
		}

		if err := t.trendRepo.UpdateVerification(trend.ID, v); err != nil {
			return fmt.Errorf("failed to store verification: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "VerifyTrends",
		"feed", t.Subject,
		"duration", t.GetDuration(),
		"verified", verified,
		"failed", failed,
		"skipped", skipped)

	return nil
}

func (t *VerifyTrendsTask) verify(ctx context.Context, trend database.Trend) database.Verification {
	text := feed.Item{Title: trend.Title, Description: trend.Description, Content: trend.Content}.Text()
	if strings.TrimSpace(text) == "" {
		return database.Verification{Status: database.VerificationSkipped}
	}

	result, err := t.verifier.Run(ctx, textcheck.Input{Text: text})
	if err != nil {
		slog.Warn("Trend verification failed", "feed", t.Subject, "trend_id", trend.ID, "error", err)
		return database.Verification{Status: database.VerificationFailed, Error: err.Error()}
	}

	return database.Verification{
		Status:           database.VerificationVerified,
		IsMisinformation: result.IsMisinformation,
		Verdict:          string(result.Verdict),
		Confidence:       result.ConfidenceScore,
		Result:           result.Report,
	}
}
