package database

import (
	"time"
)

// Content item lifecycle statuses set by the processing pipeline.
const (
	StatusPending      = "pending"
	StatusClassified   = "classified"
	StatusManualReview = "needs_manual_review"
	StatusFailed       = "failed"
)

// ContentItem represents a captured piece of content. Identity fields are
// immutable after capture; category, confidence, match type, status and
// metadata are set by the classification pipeline.
type ContentItem struct {
	ID                string
	URL               string
	Title             string
	RawText           string
	SourceDomain      string
	ContentType       string // article, video, post
	ContentHash       string
	CategoryID        *int64
	Confidence        *float64
	MatchType         string
	Status            string
	NeedsManualReview bool
	Metadata          map[string]interface{} // merged analysis results, stored as JSON
	CapturedAt        time.Time
	ClassifiedAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Category is a canonical classification bucket
type Category struct {
	ID         int64
	Name       string
	Priority   int
	IsActive   bool
	IsFallback bool
}

// Matcher is a domain/keyword pattern used as an advisory classification hint
type Matcher struct {
	ID          int64
	CategoryID  int64
	Pattern     string
	MatchType   string // domain or keyword
	IsExclusion bool
}

// CategoryAlias maps a free-text provider label to a canonical category
type CategoryAlias struct {
	ID                  int64
	Alias               string
	CategoryID          int64
	ConfidenceThreshold float64
}

// Action is a named analysis step resolved to a registered handler
type Action struct {
	ID       int64
	Name     string
	Handler  string // symbolic handler name resolved via the actions registry
	IsActive bool
}

// CategoryAction binds an action to a category with an execution order
// and action-specific configuration
type CategoryAction struct {
	ID             int64
	CategoryID     int64
	ActionID       int64
	ExecutionOrder int
	Config         map[string]interface{}
}

// ProcessingLog is a best-effort record of a single pipeline step
type ProcessingLog struct {
	ID         int64
	ContentID  string
	Step       string
	Status     string
	Detail     string
	DurationMs int64
	CreatedAt  time.Time
}
