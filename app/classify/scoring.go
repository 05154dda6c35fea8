package classify

import (
	"strings"

	"github.com/loydmilligan/dailies-sub000/app/provider"
	"github.com/loydmilligan/dailies-sub000/app/signals"
)

// Tunable scoring constants. The multipliers are heuristics inherited from
// production behavior, not validated thresholds.
const (
	baseShortExact = 0.95
	baseShort      = 0.8
	baseLong       = 0.65
	baseHedged     = 0.55
	baseEmpty      = 0.5
	baseTruncated  = 0.3
	baseFiltered   = 0.2

	maxSignalBoost    = 1.3
	weakSignalPenalty = 0.7
	minSignalPenalty  = 0.5

	shortLabelLimit = 30

	// ConfidenceFloor and ConfidenceCeiling bound every confidence the
	// pipeline reports. Never exactly 0 or 1: downstream consumers divide
	// by and take logs of these values.
	ConfidenceFloor   = 0.1
	ConfidenceCeiling = 1.0
)

var hedgeMarkers = []string{
	"maybe", "possibly", "probably", "likely", "perhaps",
	"i think", "not sure", "unsure", "could be", "might be",
}

// Score computes a provider-side confidence for a classification response,
// combining response shape with content-signal alignment. Pure: no I/O.
//
// exactMatch reports whether the label resolved exactly to a category name;
// hasMatchers reports whether the resolved category has any matchers
// configured (absent signals only count against a category that was
// expected to produce them).
func Score(result *provider.ClassifyResult, sig *signals.ContentSignals, categoryID int64, exactMatch, hasMatchers bool) float64 {
	base := baseConfidence(result, exactMatch)

	if hint := result.ConfidenceHint; hint > 0 && hint <= 1 {
		base = (base + hint) / 2
	}

	return Clamp(base * signalMultiplier(sig, categoryID, hasMatchers))
}

func baseConfidence(result *provider.ClassifyResult, exactMatch bool) float64 {
	if result.ContentFiltered {
		return baseFiltered
	}
	if result.Truncated {
		return baseTruncated
	}

	label := strings.TrimSpace(result.RawLabel)
	if label == "" {
		return baseEmpty
	}

	if isHedged(result.RawResponse) {
		return baseHedged
	}

	if len(label) < shortLabelLimit {
		if exactMatch {
			return baseShortExact
		}
		return baseShort
	}

	return baseLong
}

func signalMultiplier(sig *signals.ContentSignals, categoryID int64, hasMatchers bool) float64 {
	if sig == nil || !hasMatchers {
		return 1.0
	}

	alignment := sig.Alignment(categoryID)

	switch {
	case sig.Excluded[categoryID]:
		// An exclusion hint actively contradicts the label
		return minSignalPenalty
	case alignment >= 0.6:
		m := 1.0 + alignment*0.3
		if m > maxSignalBoost {
			m = maxSignalBoost
		}
		return m
	case alignment > 0:
		return 1.0
	default:
		// The category has matchers but none fired
		return weakSignalPenalty
	}
}

func isHedged(response string) bool {
	lower := strings.ToLower(response)
	for _, marker := range hedgeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Clamp bounds a confidence to [ConfidenceFloor, ConfidenceCeiling]
func Clamp(confidence float64) float64 {
	if confidence < ConfidenceFloor {
		return ConfidenceFloor
	}
	if confidence > ConfidenceCeiling {
		return ConfidenceCeiling
	}
	return confidence
}
