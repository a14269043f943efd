package api

import (
	"context"
	"time"

	"github.com/lysyi3m/truthlens/app/analysis"
	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/feed"
	"github.com/lysyi3m/truthlens/app/tasks"
)

type GeneratorInterface interface {
	Run(feed database.Feed, trends []database.Trend) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// AnalysisService records and runs analyses.
type AnalysisService interface {
	tasks.AnalysisProcessor
	Analyze(ctx context.Context, req analysis.Request) (string, *analysis.Report, error)
	Create(req analysis.Request) (*database.Analysis, error)
	Get(id string) (*database.Analysis, error)
	Stats() (map[string]int, error)
}

var _ AnalysisService = (*analysis.Service)(nil)

type Handler struct {
	service     AnalysisService
	feedRepo    database.FeedRepository
	trendRepo   database.TrendRepository
	generator   GeneratorInterface
	configCache *feed.ConfigCache
	filterer    *feed.Filterer
	scheduler   tasks.TaskSchedulerInterface
	images      *ImageFetcher
	maxUpload   int64
	version     string
}

type analyzeForm struct {
	Text          string   `form:"text" json:"text"`
	ImageURL      string   `form:"image_url" json:"image_url"`
	EmbeddedPosts []string `form:"embedded_posts" json:"embedded_posts"`
}

type AnalyzeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	*analysis.Report
}

type SourceResponse struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet"`
	Credibility float64 `json:"credibility"`
}

type AnalysisResponse struct {
	ID               string           `json:"id"`
	Status           string           `json:"status"`
	InputText        string           `json:"input_text"`
	ImageName        string           `json:"image_name,omitempty"`
	SourceURL        string           `json:"source_url,omitempty"`
	IsMisinformation bool             `json:"is_misinformation"`
	Verdict          string           `json:"verdict,omitempty"`
	Confidence       float64          `json:"confidence_score"`
	Report           string           `json:"report,omitempty"`
	ImageReport      string           `json:"image_report,omitempty"`
	TextReport       string           `json:"text_report,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	Error            string           `json:"error,omitempty"`
	Sources          []SourceResponse `json:"sources"`
	CreatedAt        time.Time        `json:"created_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

type TrendResponse struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Link               string     `json:"link"`
	Description        string     `json:"description,omitempty"`
	Categories         []string   `json:"categories"`
	PublishedAt        time.Time  `json:"published_at"`
	DetectedAt         time.Time  `json:"detected_at"`
	VerificationStatus string     `json:"verification_status"`
	IsMisinformation   bool       `json:"is_misinformation"`
	Verdict            string     `json:"verdict,omitempty"`
	Confidence         float64    `json:"confidence_score"`
	VerificationResult string     `json:"verification_result,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
}

func newAnalysisResponse(a *database.Analysis) AnalysisResponse {
	sources := make([]SourceResponse, 0, len(a.Sources))
	for _, s := range a.Sources {
		sources = append(sources, SourceResponse{URL: s.URL, Title: s.Title, Snippet: s.Snippet, Credibility: s.Credibility})
	}

	return AnalysisResponse{
		ID:               a.ID,
		Status:           a.Status,
		InputText:        a.InputText,
		ImageName:        a.ImageName,
		SourceURL:        a.SourceURL,
		IsMisinformation: a.IsMisinformation,
		Verdict:          a.Verdict,
		Confidence:       a.Confidence,
		Report:           a.Report,
		ImageReport:      a.ImageReport,
		TextReport:       a.TextReport,
		Warnings:         a.Warnings,
		Error:            a.Error,
		Sources:          sources,
		CreatedAt:        a.CreatedAt,
		CompletedAt:      a.CompletedAt,
	}
}

func newTrendResponse(t database.Trend) TrendResponse {
	categories := t.Categories
	if categories == nil {
		categories = []string{}
	}
	return TrendResponse{
		ID:                 t.ID,
		Title:              t.Title,
		Link:               t.Link,
		Description:        t.Description,
		Categories:         categories,
		PublishedAt:        t.PublishedAt,
		DetectedAt:         t.DetectedAt,
		VerificationStatus: t.VerificationStatus,
		IsMisinformation:   t.IsMisinformation,
		Verdict:            t.Verdict,
		Confidence:         t.Confidence,
		VerificationResult: t.VerificationResult,
		VerifiedAt:         t.VerifiedAt,
	}
}
