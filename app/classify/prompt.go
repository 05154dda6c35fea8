package classify

import (
	"fmt"
	"strings"

	"github.com/loydmilligan/dailies-sub000/app/database"
	"github.com/loydmilligan/dailies-sub000/app/signals"
	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

const promptExcerptLimit = 1500

// BuildClassificationPrompt assembles the provider prompt for one item:
// the active category names, advisory domain/keyword hints derived from the
// matcher signals, and a content excerpt. Hints are advisory only; the
// provider is free to contradict them.
func BuildClassificationPrompt(item database.ContentItem, snapshot *taxonomy.Snapshot, sig *signals.ContentSignals) string {
	var b strings.Builder

	b.WriteString("Classify the following content into exactly one of these categories:\n")
	for _, category := range snapshot.Categories {
		fmt.Fprintf(&b, "- %s\n", category.Name)
	}

	hints := buildHints(snapshot, sig)
	if len(hints) > 0 {
		b.WriteString("\nAdvisory signals (may be wrong, use your judgment):\n")
		for _, hint := range hints {
			fmt.Fprintf(&b, "- %s\n", hint)
		}
	}

	fmt.Fprintf(&b, "\nTitle: %s\n", item.Title)
	if item.SourceDomain != "" {
		fmt.Fprintf(&b, "Source: %s\n", item.SourceDomain)
	}
	fmt.Fprintf(&b, "Content: %s\n", excerpt(item.RawText, promptExcerptLimit))

	b.WriteString("\nAnswer with the category name only.")

	return b.String()
}

func buildHints(snapshot *taxonomy.Snapshot, sig *signals.ContentSignals) []string {
	if sig == nil {
		return nil
	}

	var hints []string
	for _, category := range snapshot.Categories {
		if sig.DomainHits[category.ID] {
			hints = append(hints, fmt.Sprintf("source domain suggests %s", category.Name))
		} else if sig.KeywordDensity[category.ID] > 0 {
			hints = append(hints, fmt.Sprintf("keywords suggest %s", category.Name))
		}
		if sig.Excluded[category.ID] {
			hints = append(hints, fmt.Sprintf("signals argue against %s", category.Name))
		}
	}
	return hints
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}

	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
