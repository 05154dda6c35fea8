package database

// ContentRepository handles persistence of captured content items.
// Used by the capture layer to store new items and by the classification
// pipeline to record results.
type ContentRepository interface {
	StoreItem(item ContentItem) error
	GetItem(id string) (*ContentItem, error)
	GetItemByHash(contentHash string) (*ContentItem, error)
	GetItems(status string, categoryID *int64, limit int) ([]ContentItem, error)
	GetItemCount() (int, error)
	GetStatusCounts() (map[string]int, error)

	UpdateClassification(id string, categoryID int64, confidence float64, matchType string, needsManualReview bool) error
	UpdateStatus(id string, status string) error
	MergeMetadata(id string, metadata map[string]interface{}) error
}

// TaxonomyRepository loads the active classification configuration.
// Writes happen only at seed time; the taxonomy cache reads a full set
// and treats it as immutable until the next reload.
type TaxonomyRepository interface {
	GetActiveCategories() ([]Category, error)
	GetMatchers() ([]Matcher, error)
	GetAliases() ([]CategoryAlias, error)
	GetActiveActions() ([]Action, error)
	GetCategoryActions() ([]CategoryAction, error)

	UpsertCategory(name string, priority int, isFallback bool) (int64, error)
	UpsertMatcher(categoryID int64, pattern, matchType string, isExclusion bool) error
	UpsertAlias(alias string, categoryID int64, threshold float64) error
	UpsertAction(name, handler string) (int64, error)
	UpsertCategoryAction(categoryID, actionID int64, executionOrder int, config map[string]interface{}) error
}

// LogRepository appends processing-log entries. Best effort: callers must
// treat failures as non-fatal.
type LogRepository interface {
	Append(entry ProcessingLog) error
	GetByContentID(contentID string, limit int) ([]ProcessingLog, error)
}
