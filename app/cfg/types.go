package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	TaxonomyFile      string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// AI provider configuration
	ProviderOrder   []string
	OpenAIAPIKey    string
	OpenAIBaseUrl   string
	OpenAIModel     string
	LocalEndpoint   string
	LocalModel      string
	ProviderTimeout int
	UseConsensus    bool
	MinConfidence   float64

	// Capture configuration
	FeedURLs []string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
