package classify

import (
	"strings"

	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

// Resolution confidences per match tier
const (
	exactConfidence    = 0.95
	aliasConfidence    = 0.9
	partialConfidence  = 0.7
	fallbackConfidence = 0.5
)

// Resolver maps free-text provider labels to canonical categories.
// Resolution is deterministic for a fixed taxonomy snapshot: exact name
// match, then alias table, then substring containment, then the single
// fallback category. It never fails to produce a category.
type Resolver struct {
	taxonomy *taxonomy.Cache
}

func NewResolver(taxonomyCache *taxonomy.Cache) *Resolver {
	return &Resolver{taxonomy: taxonomyCache}
}

// Resolve maps a raw label against the current taxonomy snapshot
func (r *Resolver) Resolve(rawLabel string) Resolution {
	return resolveOn(r.taxonomy.Current(), rawLabel)
}

func resolveOn(snapshot *taxonomy.Snapshot, rawLabel string) Resolution {
	label := normalizeLabel(rawLabel)

	if label == "" {
		return Resolution{
			Category:   snapshot.FallbackCategory(),
			MatchType:  MatchFallback,
			Confidence: fallbackConfidence,
		}
	}

	// Tier 1: case-insensitive exact match against active category names
	for _, category := range snapshot.Categories {
		if normalizeLabel(category.Name) == label {
			return Resolution{
				Category:   category,
				MatchType:  MatchExact,
				Confidence: exactConfidence,
			}
		}
	}

	// Tier 2: alias table
	for _, alias := range snapshot.Aliases {
		if normalizeLabel(alias.Alias) != label {
			continue
		}
		category, ok := snapshot.CategoryByID(alias.CategoryID)
		if !ok {
			continue
		}
		confidence := alias.ConfidenceThreshold
		if confidence <= 0 {
			confidence = aliasConfidence
		}
		return Resolution{
			Category:   category,
			MatchType:  MatchAlias,
			Confidence: confidence,
		}
	}

	// Tier 3: substring containment in either direction
	for _, category := range snapshot.Categories {
		name := normalizeLabel(category.Name)
		if strings.Contains(name, label) || strings.Contains(label, name) {
			return Resolution{
				Category:   category,
				MatchType:  MatchPartial,
				Confidence: partialConfidence,
			}
		}
	}

	// Tier 4: the single fallback category
	return Resolution{
		Category:   snapshot.FallbackCategory(),
		MatchType:  MatchFallback,
		Confidence: fallbackConfidence,
	}
}

// normalizeLabel lowercases and collapses separators so "US_Politics_News"
// and "us politics news" compare equal
func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, "_", " ")
	label = strings.ReplaceAll(label, "-", " ")
	return strings.Join(strings.Fields(label), " ")
}
