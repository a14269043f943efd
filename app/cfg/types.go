package cfg

import "time"

type Cfg struct {
	// HTTP server
	Port          string
	BaseURL       string
	APIAccessKey  string
	MaxUploadSize int64 // bytes

	// Storage and background work
	DBPath            string
	FeedsDir          string
	WorkerCount       int
	SchedulerInterval int // seconds

	// Language model
	ModelBaseURL     string
	ModelAPIKey      string
	ModelName        string
	ModelTemperature float32
	ModelTimeout     time.Duration

	// Evidence providers
	TavilyAPIKey    string
	SerperAPIKey    string
	GoogleAPIKey    string
	GoogleCSEID     string
	XBearerToken    string
	FactCheckFeeds  []string
	ProviderTimeout time.Duration
	FetchTimeout    time.Duration

	// Analysis
	TesseractPath  string
	OCRLanguage    string
	OCRTimeout     time.Duration
	TrustTiersFile string
	SignaturesFile string
	MinTextLength  int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
