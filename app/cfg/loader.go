package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseURL      string `long:"base-url" env:"BASE_URL" description:"Public base URL of the service, used in generated feeds"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key; when set, /api requires it"`
	MaxUploadMB  int    `long:"max-upload-mb" env:"MAX_UPLOAD_MB" default:"10" description:"Maximum accepted image size in megabytes"`

	// Storage and background work
	DBPath            string `long:"db-path" env:"DB_PATH" default:"./data/truthlens.db" description:"SQLite database file"`
	FeedsDir          string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing watch-feed configuration files"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`

	// Language model
	ModelBaseURL     string  `long:"model-base-url" env:"MODEL_BASE_URL" default:"https://api.cerebras.ai/v1" description:"OpenAI-compatible API base URL"`
	ModelAPIKey      string  `long:"model-api-key" env:"MODEL_API_KEY" description:"Language model API key (required)" required:"true"`
	ModelName        string  `long:"model" env:"MODEL_NAME" default:"llama-3.3-70b" description:"Model name"`
	ModelTemperature float32 `long:"model-temperature" env:"MODEL_TEMPERATURE" default:"0" description:"Sampling temperature"`
	ModelTimeout     int     `long:"model-timeout" env:"MODEL_TIMEOUT" default:"60" description:"Model call timeout in seconds"`

	// Evidence providers
	TavilyAPIKey    string   `long:"tavily-api-key" env:"TAVILY_API_KEY" description:"Tavily search API key"`
	SerperAPIKey    string   `long:"serper-api-key" env:"SERPER_API_KEY" description:"Serper search API key"`
	GoogleAPIKey    string   `long:"google-api-key" env:"GOOGLE_API_KEY" description:"Google API key for Custom Search and Fact Check Tools"`
	GoogleCSEID     string   `long:"google-cse-id" env:"GOOGLE_CSE_ID" description:"Google Custom Search engine ID"`
	XBearerToken    string   `long:"x-bearer-token" env:"X_BEARER_TOKEN" description:"X API bearer token"`
	FactCheckFeeds  []string `long:"fact-check-feed" env:"FACT_CHECK_FEEDS" env-delim:"," description:"Fact-check RSS/Atom feed URL (repeatable)"`
	ProviderTimeout int      `long:"provider-timeout" env:"PROVIDER_TIMEOUT" default:"10" description:"Search provider call timeout in seconds"`
	FetchTimeout    int      `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Page fetch timeout in seconds"`

	// Analysis
	TesseractPath  string `long:"tesseract" env:"TESSERACT_PATH" default:"tesseract" description:"Tesseract binary used for OCR"`
	OCRLanguage    string `long:"ocr-language" env:"OCR_LANGUAGE" default:"eng" description:"Tesseract language"`
	OCRTimeout     int    `long:"ocr-timeout" env:"OCR_TIMEOUT" default:"15" description:"OCR timeout in seconds"`
	TrustTiersFile string `long:"trust-tiers" env:"TRUST_TIERS_FILE" description:"YAML file replacing the built-in trust tiers"`
	SignaturesFile string `long:"signatures" env:"SIGNATURES_FILE" description:"YAML file replacing the built-in image software signatures"`
	MinTextLength  int    `long:"min-text-length" env:"MIN_TEXT_LENGTH" default:"50" description:"Text longer than this is verified alongside an image"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses the command line and environment and stores the result for Get.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	cfg, err := Parse(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

// Parse builds a configuration from args and the environment.
func Parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be positive, got %d", raw.WorkerCount)
	}
	if raw.SchedulerInterval < 1 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %d", raw.SchedulerInterval)
	}

	return &Cfg{
		Port:              raw.Port,
		BaseURL:           raw.BaseURL,
		APIAccessKey:      raw.APIAccessKey,
		MaxUploadSize:     int64(raw.MaxUploadMB) << 20,
		DBPath:            raw.DBPath,
		FeedsDir:          raw.FeedsDir,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		ModelBaseURL:      raw.ModelBaseURL,
		ModelAPIKey:       raw.ModelAPIKey,
		ModelName:         raw.ModelName,
		ModelTemperature:  raw.ModelTemperature,
		ModelTimeout:      seconds(raw.ModelTimeout),
		TavilyAPIKey:      raw.TavilyAPIKey,
		SerperAPIKey:      raw.SerperAPIKey,
		GoogleAPIKey:      raw.GoogleAPIKey,
		GoogleCSEID:       raw.GoogleCSEID,
		XBearerToken:      raw.XBearerToken,
		FactCheckFeeds:    raw.FactCheckFeeds,
		ProviderTimeout:   seconds(raw.ProviderTimeout),
		FetchTimeout:      seconds(raw.FetchTimeout),
		TesseractPath:     raw.TesseractPath,
		OCRLanguage:       raw.OCRLanguage,
		OCRTimeout:        seconds(raw.OCRTimeout),
		TrustTiersFile:    raw.TrustTiersFile,
		SignaturesFile:    raw.SignaturesFile,
		MinTextLength:     raw.MinTextLength,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
