package classify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/loydmilligan/dailies-sub000/app/database"
	"github.com/loydmilligan/dailies-sub000/app/provider"
	"github.com/loydmilligan/dailies-sub000/app/signals"
	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

// Consensus-mode tunables. Heuristic multipliers carried over from
// production behavior.
const (
	unanimousBoost       = 1.2
	splitPenalty         = 0.7
	splitConfidenceFloor = 0.3
	majorityThreshold    = 2.0 / 3.0
)

// Orchestrator runs the classification control flow: provider fallback or
// consensus, confidence scoring, category resolution and result caching.
type Orchestrator struct {
	providers []provider.Provider
	taxonomy  *taxonomy.Cache
	cache     *ResultCache
	logRepo   database.LogRepository // optional, best effort
}

func NewOrchestrator(providers []provider.Provider, taxonomyCache *taxonomy.Cache,
	resultCache *ResultCache, logRepo database.LogRepository) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		taxonomy:  taxonomyCache,
		cache:     resultCache,
		logRepo:   logRepo,
	}
}

// Classify classifies a content item. In fallback mode providers are tried
// in configured order and the first sufficiently confident response wins;
// in consensus mode at least two providers are queried in parallel and
// disagreement is resolved by majority vote. Results below the caller's
// minimum confidence are still returned, flagged for manual review. Only a
// full provider exhaustion is an error.
func (o *Orchestrator) Classify(ctx context.Context, item database.ContentItem, opts Options) (*ClassificationResult, error) {
	start := time.Now()

	if !opts.Force {
		if cached, ok := o.cache.Get(item.ContentHash); ok {
			slog.Debug("Classification cache hit", "content_id", item.ID, "hash", item.ContentHash)
			cached.FromCache = true
			return cached, nil
		}
	}

	snapshot := o.taxonomy.Current()
	sig := signals.Compute(item.Title, item.RawText, item.SourceDomain, snapshot.Matchers)
	prompt := BuildClassificationPrompt(item, snapshot, sig)

	var result *ClassificationResult
	var err error

	if opts.UseConsensus && o.availableCount() >= 2 {
		result, err = o.classifyConsensus(ctx, snapshot, sig, prompt)
	} else {
		result, err = o.classifySequential(ctx, snapshot, sig, prompt, opts.MinConfidence)
	}

	if err != nil {
		o.logStep(item.ID, "classification", "error", err.Error(), time.Since(start))
		return nil, err
	}

	result.TotalDuration = time.Since(start)
	if result.Confidence < opts.MinConfidence {
		result.NeedsManualReview = true
	}

	o.cache.Put(item.ContentHash, result)
	o.logStep(item.ID, "classification", "success", result.Category.Name, result.TotalDuration)

	return result, nil
}

// ResolveCategory resolves a raw label against the current taxonomy
func (o *Orchestrator) ResolveCategory(rawLabel string) Resolution {
	return resolveOn(o.taxonomy.Current(), rawLabel)
}

// ErrorFallback is the terminal resolution for an item whose classification
// exhausted every provider: the fallback category at the confidence floor,
// flagged for manual review. Items always end up in a category, even when
// no provider answered.
func (o *Orchestrator) ErrorFallback() *ClassificationResult {
	return &ClassificationResult{
		Category:          o.taxonomy.Current().FallbackCategory(),
		MatchType:         MatchErrorFallback,
		Confidence:        ConfidenceFloor,
		NeedsManualReview: true,
	}
}

// classifySequential tries providers in order and short-circuits on the
// first result meeting the minimum confidence. A provider error advances to
// the next provider without retry; a confident-enough result returns
// immediately; a low-confidence result is kept as the best candidate.
func (o *Orchestrator) classifySequential(ctx context.Context, snapshot *taxonomy.Snapshot,
	sig *signals.ContentSignals, prompt string, minConfidence float64) (*ClassificationResult, error) {

	var best *ClassificationResult
	var attempted []string
	var lastErr error

	for _, p := range o.providers {
		if !p.Available() {
			slog.Debug("Provider not configured, skipping", "provider", p.Name())
			continue
		}
		attempted = append(attempted, p.Name())

		raw, err := p.Classify(ctx, prompt)
		if err != nil {
			if errors.Is(err, provider.ErrRateLimited) {
				slog.Warn("Provider rate limited, advancing", "provider", p.Name())
			} else {
				slog.Warn("Provider classification failed, advancing", "provider", p.Name(), "error", err)
			}
			lastErr = err
			continue
		}

		result := o.scoreAndResolve(snapshot, sig, raw)
		if result.Confidence >= minConfidence {
			return result, nil
		}

		slog.Debug("Provider result below threshold, trying next",
			"provider", p.Name(),
			"confidence", result.Confidence,
			"min_confidence", minConfidence)
		if best == nil || result.Confidence > best.Confidence {
			best = result
		}
	}

	if best != nil {
		return best, nil
	}

	if lastErr == nil {
		lastErr = provider.ErrUnavailable
	}
	return nil, &ExhaustedError{Attempted: attempted, LastErr: lastErr}
}

// classifyConsensus queries all available providers in parallel and
// resolves the winner by majority vote over resolved category ids.
func (o *Orchestrator) classifyConsensus(ctx context.Context, snapshot *taxonomy.Snapshot,
	sig *signals.ContentSignals, prompt string) (*ClassificationResult, error) {

	type vote struct {
		providerName string
		result       *ClassificationResult
		err          error
	}

	available := o.availableProviders()
	votes := make(chan vote, len(available))

	var wg sync.WaitGroup
	for _, p := range available {
		wg.Add(1)
		go func(p provider.Provider) {
			defer wg.Done()
			raw, err := p.Classify(ctx, prompt)
			if err != nil {
				votes <- vote{providerName: p.Name(), err: err}
				return
			}
			votes <- vote{providerName: p.Name(), result: o.scoreAndResolve(snapshot, sig, raw)}
		}(p)
	}
	wg.Wait()
	close(votes)

	var results []*ClassificationResult
	var attempted []string
	var lastErr error
	for v := range votes {
		attempted = append(attempted, v.providerName)
		if v.err != nil {
			slog.Warn("Consensus provider failed", "provider", v.providerName, "error", v.err)
			lastErr = v.err
			continue
		}
		results = append(results, v.result)
	}

	if len(results) == 0 {
		return nil, &ExhaustedError{Attempted: attempted, LastErr: lastErr}
	}
	if len(results) == 1 {
		// Consensus degraded to a single responder; treat as plain result
		return results[0], nil
	}

	return tallyVotes(results), nil
}

// tallyVotes implements the majority vote: unanimity boosts the mean
// confidence, a two-thirds majority uses the majority mean, and a split
// decision is penalized with a hard floor.
func tallyVotes(results []*ClassificationResult) *ClassificationResult {
	byCategory := make(map[int64][]*ClassificationResult)
	for _, r := range results {
		byCategory[r.Category.ID] = append(byCategory[r.Category.ID], r)
	}

	var winner []*ClassificationResult
	for _, group := range byCategory {
		if winner == nil || len(group) > len(winner) ||
			(len(group) == len(winner) && mean(group) > mean(winner)) {
			winner = group
		}
	}

	agreement := float64(len(winner)) / float64(len(results))
	majorityMean := mean(winner)

	var confidence float64
	switch {
	case len(winner) == len(results):
		confidence = Clamp(majorityMean * unanimousBoost)
	case agreement >= majorityThreshold:
		confidence = Clamp(majorityMean)
	default:
		confidence = majorityMean * splitPenalty
		if confidence < splitConfidenceFloor {
			confidence = splitConfidenceFloor
		}
		confidence = Clamp(confidence)
	}

	contributors := make([]string, 0, len(winner))
	for _, r := range winner {
		contributors = append(contributors, r.ProviderName)
	}

	// Representative result: the most confident member of the majority
	representative := winner[0]
	for _, r := range winner[1:] {
		if r.Confidence > representative.Confidence {
			representative = r
		}
	}

	return &ClassificationResult{
		ProviderName:     "consensus",
		RawLabel:         representative.RawLabel,
		Category:         representative.Category,
		MatchType:        representative.MatchType,
		Confidence:       confidence,
		ProviderDuration: representative.ProviderDuration,
		Consensus: &ConsensusInfo{
			Agreement: agreement,
			Providers: contributors,
			Unanimous: len(winner) == len(results),
		},
	}
}

// scoreAndResolve turns a raw provider response into a scored, resolved
// classification. Overall confidence is the lower of the provider-side and
// resolution-side confidences: both dimensions must be trusted.
func (o *Orchestrator) scoreAndResolve(snapshot *taxonomy.Snapshot,
	sig *signals.ContentSignals, raw *provider.ClassifyResult) *ClassificationResult {

	resolution := resolveOn(snapshot, raw.RawLabel)

	providerConfidence := Score(raw, sig, resolution.Category.ID,
		resolution.MatchType == MatchExact,
		categoryHasMatchers(snapshot, resolution.Category.ID))

	confidence := providerConfidence
	if resolution.Confidence < confidence {
		confidence = resolution.Confidence
	}

	return &ClassificationResult{
		ProviderName:     raw.ProviderName,
		RawLabel:         raw.RawLabel,
		Category:         resolution.Category,
		MatchType:        resolution.MatchType,
		Confidence:       Clamp(confidence),
		ProviderDuration: raw.Duration,
	}
}

func categoryHasMatchers(snapshot *taxonomy.Snapshot, categoryID int64) bool {
	for _, m := range snapshot.Matchers {
		if m.CategoryID == categoryID {
			return true
		}
	}
	return false
}

func (o *Orchestrator) availableProviders() []provider.Provider {
	var available []provider.Provider
	for _, p := range o.providers {
		if p.Available() {
			available = append(available, p)
		}
	}
	return available
}

func (o *Orchestrator) availableCount() int {
	return len(o.availableProviders())
}

func (o *Orchestrator) logStep(contentID, step, status, detail string, duration time.Duration) {
	if o.logRepo == nil {
		return
	}
	err := o.logRepo.Append(database.ProcessingLog{
		ContentID:  contentID,
		Step:       step,
		Status:     status,
		Detail:     detail,
		DurationMs: duration.Milliseconds(),
	})
	if err != nil {
		slog.Warn("Failed to append processing log", "content_id", contentID, "step", step, "error", err)
	}
}

func mean(results []*ClassificationResult) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}
