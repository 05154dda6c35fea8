package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loydmilligan/dailies-sub000/app/capture"
	"github.com/loydmilligan/dailies-sub000/app/database"
	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

func NewHandler(contentRepo database.ContentRepository, logRepo database.LogRepository,
	taxonomyCache *taxonomy.Cache, extractor *capture.Extractor,
	scheduler SchedulerInterface) *Handler {
	return &Handler{
		contentRepo: contentRepo,
		logRepo:     logRepo,
		taxonomy:    taxonomyCache,
		extractor:   extractor,
		scheduler:   scheduler,
	}
}

// CaptureContent fetches the submitted URL, stores the extracted item and
// queues it for classification. A URL already captured (same content hash)
// returns the existing item instead of a duplicate.
func (h *Handler) CaptureContent(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	item, err := h.extractor.Capture(c.Request.Context(), req.URL)
	if err != nil {
		slog.Error("Capture failed", "url", req.URL, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.contentRepo.GetItemByHash(item.ContentHash)
	if err != nil {
		slog.Error("Database error", "operation", "get_item_by_hash", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, gin.H{
			"id":        existing.ID,
			"status":    existing.Status,
			"duplicate": true,
		})
		return
	}

	if err := h.contentRepo.StoreItem(*item); err != nil {
		slog.Error("Database error", "operation", "store_item", "url", req.URL, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if err := h.scheduler.EnqueueClassification(*item); err != nil {
		slog.Warn("Failed to enqueue classification", "content_id", item.ID, "error", err)
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     item.ID,
		"status": item.Status,
	})
}

// GetContentByID returns an item with its classification, analysis metadata
// and processing history
func (h *Handler) GetContentByID(c *gin.Context) {
	id := c.Param("id")

	item, err := h.contentRepo.GetItem(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "content_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}

	response := h.renderItem(*item)

	if logs, err := h.logRepo.GetByContentID(id, 50); err == nil && len(logs) > 0 {
		history := make([]map[string]interface{}, 0, len(logs))
		for _, entry := range logs {
			history = append(history, map[string]interface{}{
				"step":        entry.Step,
				"status":      entry.Status,
				"detail":      entry.Detail,
				"duration_ms": entry.DurationMs,
				"created_at":  entry.CreatedAt.Format(time.RFC3339),
			})
		}
		response["processing_history"] = history
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if itemCount, err := h.contentRepo.GetItemCount(); err == nil {
		health["items"] = itemCount
	}

	snapshot := h.taxonomy.Current()
	health["categories"] = len(snapshot.Categories)

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if counts, err := h.contentRepo.GetStatusCounts(); err == nil {
		stats["items_by_status"] = counts
	}
	if itemCount, err := h.contentRepo.GetItemCount(); err == nil {
		stats["total_items"] = itemCount
	}

	snapshot := h.taxonomy.Current()
	stats["categories"] = len(snapshot.Categories)
	stats["matchers"] = len(snapshot.Matchers)
	stats["aliases"] = len(snapshot.Aliases)

	c.JSON(http.StatusOK, stats)
}

// APIListContent lists items, optionally filtered by status and category
func (h *Handler) APIListContent(c *gin.Context) {
	status := c.Query("status")

	var categoryID *int64
	if raw := c.Query("category_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		categoryID = &parsed
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	items, err := h.contentRepo.GetItems(status, categoryID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rendered := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, h.renderItem(item))
	}

	c.JSON(http.StatusOK, gin.H{
		"content": rendered,
		"count":   len(rendered),
	})
}

// APIClassifyContentByID forces re-classification of an item
func (h *Handler) APIClassifyContentByID(c *gin.Context) {
	id := c.Param("id")

	item, err := h.contentRepo.GetItem(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "content_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}

	if err := h.scheduler.EnqueueReclassification(*item); err != nil {
		slog.Error("Failed to enqueue classification", "content_id", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":      id,
		"message": "classification scheduled",
	})
}

// APIReloadTaxonomy rebuilds the taxonomy snapshot from the database.
// Invalid configuration is rejected and the previous snapshot stays active.
func (h *Handler) APIReloadTaxonomy(c *gin.Context) {
	if err := h.taxonomy.Reload(); err != nil {
		var invalid *taxonomy.ErrConfigurationInvalid
		if errors.As(err, &invalid) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Taxonomy reload failed", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	snapshot := h.taxonomy.Current()
	c.JSON(http.StatusOK, gin.H{
		"message":    "taxonomy reloaded",
		"categories": len(snapshot.Categories),
	})
}

func (h *Handler) renderItem(item database.ContentItem) map[string]interface{} {
	rendered := map[string]interface{}{
		"id":                  item.ID,
		"url":                 item.URL,
		"title":               item.Title,
		"source_domain":       item.SourceDomain,
		"content_type":        item.ContentType,
		"status":              item.Status,
		"needs_manual_review": item.NeedsManualReview,
		"created_at":          item.CreatedAt.Format(time.RFC3339),
	}

	if item.CategoryID != nil {
		rendered["category_id"] = *item.CategoryID
		if category, ok := h.taxonomy.Current().CategoryByID(*item.CategoryID); ok {
			rendered["category"] = category.Name
		}
	}
	if item.Confidence != nil {
		rendered["confidence"] = *item.Confidence
	}
	if item.MatchType != "" {
		rendered["match_type"] = item.MatchType
	}
	if len(item.Metadata) > 0 {
		rendered["analysis"] = item.Metadata
	}

	return rendered
}
