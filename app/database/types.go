package database

import (
	"time"
)

// Analysis statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Trend verification statuses.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationFailed   = "failed"
	VerificationSkipped  = "skipped"
)

type Analysis struct {
	ID               string
	InputText        string // Truncated to MaxInputText runes
	ImageName        string
	SourceURL        string
	Status           string
	IsMisinformation bool
	Verdict          string
	Confidence       float64
	Report           string
	ImageReport      string
	TextReport       string
	Warnings         []string
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	Sources          []Source
}

// AnalysisOutcome is what a completed analysis stores.
type AnalysisOutcome struct {
	IsMisinformation bool
	Verdict          string
	Confidence       float64
	Report           string
	ImageReport      string
	TextReport       string
	Warnings         []string
	Sources          []Source
}

type Source struct {
	ID          int64
	AnalysisID  string
	Position    int
	URL         string
	Title       string
	Snippet     string
	Credibility float64 // Trust tier score of the URL
}

type Feed struct {
	ID              string // Database UUID
	Name            string // Derived from the config filename
	FeedURL         string
	Verify          bool
	Title           string
	Link            string
	Description     string
	Language        string
	FeedPublishedAt *time.Time
	LastFetchedAt   *time.Time
	NextFetchAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TrendItem is a parsed feed entry ready to be stored.
type TrendItem struct {
	GUID         string
	Link         string
	Title        string
	Description  string
	Content      string
	Categories   []string
	PublishedAt  time.Time
	ContentHash  string
	IsFiltered   bool
	FilterReason string
}

type Trend struct {
	ID                   string
	FeedID               string
	GUID                 string
	Link                 string
	Title                string
	Description          string
	Content              string
	Categories           []string
	PublishedAt          time.Time
	DetectedAt           time.Time
	ContentHash          string
	IsFiltered           bool
	FilterReason         string
	VerificationStatus   string
	IsMisinformation     bool
	Verdict              string
	Confidence           float64
	VerificationResult   string
	VerificationError    string
	VerificationAttempts int
	VerifiedAt           *time.Time
}

// Verification is the outcome of checking one trend.
type Verification struct {
	Status           string
	IsMisinformation bool
	Verdict          string
	Confidence       float64
	Result           string
	Error            string
}
