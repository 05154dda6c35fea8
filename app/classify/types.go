package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

// Match types describing how a raw label resolved to a category
const (
	MatchExact         = "exact"
	MatchAlias         = "alias"
	MatchPartial       = "partial"
	MatchFallback      = "fallback"
	MatchErrorFallback = "error_fallback"
)

// Resolution is the outcome of mapping a raw provider label to a category
type Resolution struct {
	Category   database.Category
	MatchType  string
	Confidence float64
}

// ClassificationResult is the aggregate outcome of classifying one item
type ClassificationResult struct {
	ProviderName      string
	RawLabel          string
	Category          database.Category
	MatchType         string
	Confidence        float64
	NeedsManualReview bool
	Consensus         *ConsensusInfo
	FromCache         bool
	ProviderDuration  time.Duration
	TotalDuration     time.Duration
}

// ConsensusInfo carries consensus-mode metadata
type ConsensusInfo struct {
	Agreement float64  // fraction of providers voting for the winner
	Providers []string // providers contributing to the winning vote
	Unanimous bool
}

// Options are caller-supplied classification parameters
type Options struct {
	UseConsensus  bool
	MinConfidence float64
	Force         bool // bypass the result cache and consult providers again
}

// ExhaustedError is returned when every configured provider failed.
// The caller is responsible for routing the item to manual review.
type ExhaustedError struct {
	Attempted []string
	LastErr   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted (%s): %v",
		strings.Join(e.Attempted, ", "), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}
