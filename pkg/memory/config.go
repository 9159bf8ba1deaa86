package memory

// Config holds the Memory Store tunables.
type Config struct {
	// SimilarityWeight, RelevanceWeight and RecencyWeight combine into the search score.
	SimilarityWeight float64 `yaml:"similarity_weight" json:"similarity_weight"`
	RelevanceWeight  float64 `yaml:"relevance_weight" json:"relevance_weight"`
	RecencyWeight    float64 `yaml:"recency_weight" json:"recency_weight"`

	// RecencyWindowDays is the staleness after which the recency term saturates at 1.
	RecencyWindowDays float64 `yaml:"recency_window_days" json:"recency_window_days"`

	// DefaultLimit applies when Search is called with a non-positive limit.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// CleanupDays is the default unused period before a weak record is deleted.
	CleanupDays int `yaml:"cleanup_days" json:"cleanup_days"`

	// CleanupRelevanceThreshold: only records below it are eligible for cleanup.
	CleanupRelevanceThreshold float64 `yaml:"cleanup_relevance_threshold" json:"cleanup_relevance_threshold"`

	// CleanupSchedule is the cron expression of the Janitor.
	CleanupSchedule string `yaml:"cleanup_schedule" json:"cleanup_schedule"`

	// BoostRetries bounds compare-and-set retries in BoostRelevance.
	BoostRetries int `yaml:"boost_retries" json:"boost_retries"`

	// ResetRelevanceOnUpsert resets relevance to 1.0 when a key is re-stored.
	ResetRelevanceOnUpsert bool `yaml:"reset_relevance_on_upsert" json:"reset_relevance_on_upsert"`

	// NodeID is the snowflake node used for record ids (0-1023).
	NodeID int64 `yaml:"node_id" json:"node_id"`
}

// DefaultConfig returns the default Memory Store configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityWeight:          0.7,
		RelevanceWeight:           0.2,
		RecencyWeight:             0.1,
		RecencyWindowDays:         30,
		DefaultLimit:              10,
		CleanupDays:               90,
		CleanupRelevanceThreshold: 0.5,
		CleanupSchedule:           "0 3 * * *",
		BoostRetries:              5,
		NodeID:                    1,
	}
}
