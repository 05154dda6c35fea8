package actions

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

// PoliticalAnalyzer runs the full political analysis batch for an item:
// bias, quality, credibility, loaded language and summary. The analyses are
// independent, so they fan out concurrently. A single failed analysis does
// not sink the batch; the handler fails only when every analysis failed.
type PoliticalAnalyzer struct {
	subHandlers []Handler
}

func NewPoliticalAnalyzer(client AnalysisClient) *PoliticalAnalyzer {
	return &PoliticalAnalyzer{
		subHandlers: []Handler{
			NewBiasAnalyzer(client),
			NewQualityScorer(client),
			NewCredibilityScorer(client),
			NewLoadedLanguageDetector(client),
			NewSummarizer(client),
		},
	}
}

func (a *PoliticalAnalyzer) Name() string { return "political_analyzer" }

func (a *PoliticalAnalyzer) Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error) {
	var mu sync.Mutex
	merged := map[string]interface{}{}
	var failures []string

	g, groupCtx := errgroup.WithContext(ctx)
	for _, sub := range a.subHandlers {
		sub := sub
		g.Go(func() error {
			payload, err := sub.Execute(groupCtx, item, config)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", sub.Name(), err))
				return nil
			}
			for key, value := range payload {
				merged[key] = value
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(failures) == len(a.subHandlers) {
		return nil, fmt.Errorf("all analyses failed: %v", failures)
	}
	if len(failures) > 0 {
		merged["analysis_partial_failures"] = failures
	}
	return merged, nil
}
