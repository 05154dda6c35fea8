package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./dailies.db" description:"Path to the SQLite database file"`

	// Application configuration
	TaxonomyFile      string `long:"taxonomy-file" env:"TAXONOMY_FILE" default:"./taxonomy.yml" description:"YAML file seeding categories, matchers, aliases and actions"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for content processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// AI provider configuration
	ProviderOrder   []string `long:"provider" env:"PROVIDER_ORDER" env-delim:"," default:"openai" default:"local" description:"Ordered list of classification providers"`
	OpenAIAPIKey    string   `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIBaseUrl   string   `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"Override base URL for the OpenAI provider"`
	OpenAIModel     string   `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"Model used by the OpenAI provider"`
	LocalEndpoint   string   `long:"local-endpoint" env:"LOCAL_ENDPOINT" default:"http://localhost:11434/v1" description:"OpenAI-compatible endpoint for the local provider"`
	LocalModel      string   `long:"local-model" env:"LOCAL_MODEL" default:"llama3.1" description:"Model used by the local provider"`
	ProviderTimeout int      `long:"provider-timeout" env:"PROVIDER_TIMEOUT" default:"60" description:"Per-provider request timeout in seconds"`
	UseConsensus    bool     `long:"use-consensus" env:"USE_CONSENSUS" description:"Query multiple providers and resolve by majority vote"`
	MinConfidence   float64  `long:"min-confidence" env:"MIN_CONFIDENCE" default:"0.6" description:"Confidence below which content is flagged for manual review"`

	// Capture configuration
	FeedURLs []string `long:"feed-url" env:"FEED_URLS" env-delim:"," description:"RSS/Atom feed URLs to ingest content from"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Dailies/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		TaxonomyFile:      raw.TaxonomyFile,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		ProviderOrder:     raw.ProviderOrder,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		OpenAIBaseUrl:     raw.OpenAIBaseUrl,
		OpenAIModel:       raw.OpenAIModel,
		LocalEndpoint:     raw.LocalEndpoint,
		LocalModel:        raw.LocalModel,
		ProviderTimeout:   raw.ProviderTimeout,
		UseConsensus:      raw.UseConsensus,
		MinConfidence:     raw.MinConfidence,
		FeedURLs:          raw.FeedURLs,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
