package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/truthlens/app/analysis"
	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/feed"
	"github.com/lysyi3m/truthlens/app/tasks"
)

const (
	defaultTrendLimit = 20
	maxTrendLimit     = 100
)

// Options carry the handler settings that do not come from a dependency.
type Options struct {
	MaxUploadSize int64
	Version       string
}

func NewHandler(service AnalysisService, configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	trendRepo database.TrendRepository, generator GeneratorInterface, filterer *feed.Filterer,
	scheduler tasks.TaskSchedulerInterface, images *ImageFetcher, opts Options) *Handler {
	return &Handler{
		service:     service,
		feedRepo:    feedRepo,
		trendRepo:   trendRepo,
		generator:   generator,
		configCache: configCache,
		filterer:    filterer,
		scheduler:   scheduler,
		images:      images,
		maxUpload:   opts.MaxUploadSize,
		version:     opts.Version,
	}
}

func (h *Handler) APIAnalyze(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	id, report, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, analysis.ErrNoInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Either text or an image must be provided"})
			return
		}
		slog.Error("Analysis failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Analysis failed",
			"id":      id,
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{ID: id, Status: database.StatusCompleted, Report: report})
}

func (h *Handler) APISubmitAnalysis(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	record, err := h.service.Create(req)
	if err != nil {
		if errors.Is(err, analysis.ErrNoInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Either text or an image must be provided"})
			return
		}
		slog.Error("Database error", "operation", "create_analysis", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	task := tasks.NewAnalyzeTask(record.ID, req, h.service)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing analyze task", "id", record.ID, "error", err)
		if failErr := h.service.Fail(record.ID, err); failErr != nil {
			slog.Error("Failed to mark analysis as failed", "id", record.ID, "error", failErr)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue analysis",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     record.ID,
		"status": record.Status,
		"task":   gin.H{"id": task.ID, "type": task.Type},
	})
}

func (h *Handler) APIGetAnalysis(c *gin.Context) {
	id := c.Param("id")

	record, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
			return
		}
		slog.Error("Database error", "operation", "get_analysis", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, newAnalysisResponse(record))
}

func (h *Handler) APIListTrends(c *gin.Context) {
	limit := defaultTrendLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxTrendLimit)
	}

	trends, err := h.trendRepo.GetRecentTrends(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_trends", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]TrendResponse, 0, len(trends))
	for _, t := range trends {
		out = append(out, newTrendResponse(t))
	}

	c.JSON(http.StatusOK, gin.H{"trends": out, "total": len(out)})
}

// bindRequest reads the analysis fields from a form or JSON body. An image_url
// that cannot be downloaded is dropped so the text can still be checked.
func (h *Handler) bindRequest(c *gin.Context) (analysis.Request, bool) {
	var form analyzeForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return analysis.Request{}, false
	}

	req := analysis.Request{Text: form.Text, EmbeddedPosts: form.EmbeddedPosts}

	if fh, err := c.FormFile("image"); err == nil {
		file, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image upload"})
			return analysis.Request{}, false
		}
		defer file.Close()

		data, err := readLimited(file, h.maxUpload)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, ErrImageTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return analysis.Request{}, false
		}
		req.Image, req.ImageName = data, fh.Filename
	} else if form.ImageURL != "" && h.images != nil {
		data, name, err := h.images.Fetch(c.Request.Context(), form.ImageURL)
		if err != nil {
			slog.Warn("Failed to download image, continuing with text only", "url", form.ImageURL, "error", err)
		} else {
			req.Image, req.ImageName = data, name
		}
		req.SourceURL = form.ImageURL
	}

	return req, true
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	feed, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if feed == nil {
		c.Status(http.StatusNotFound)
		return
	}

	trends, err := h.trendRepo.GetVisibleTrends(name, feedConfig.Settings.MaxItems)
	if err != nil {
		slog.Error("Database error", "operation", "get_trends", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(*feed, trends)
	if err != nil {
		slog.Error("RSS generation error", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Feed-Items", strconv.Itoa(len(trends)))
	c.Header("X-Feed-Name", name)
	c.Header("X-Last-Updated", feed.UpdatedAt.Format(time.RFC3339))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(rss))
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}
	if stats, err := h.service.Stats(); err == nil {
		health["analyses"] = stats
	}
	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]gin.H, 0, len(configs))
	for _, feedConfig := range configs {
		feedInfo := gin.H{
			"name":             feedConfig.Name,
			"url":              feedConfig.URL,
			"title":            "",
			"enabled":          feedConfig.Settings.Enabled,
			"verify":           feedConfig.Settings.Verify,
			"max_items":        feedConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(feedConfig.Filters),
		}

		if feed, err := h.feedRepo.GetFeed(feedConfig.Name); err == nil && feed != nil {
			feedInfo["title"] = feed.Title
			feedInfo["last_fetched_at"] = feed.LastFetchedAt
			feedInfo["next_fetch_at"] = feed.NextFetchAt
		}

		if count, err := h.trendRepo.GetTrendCount(feedConfig.Name); err == nil {
			feedInfo["trend_count"] = count
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, gin.H{"feeds": feeds, "total": len(feeds)})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	name := c.Param("name")

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	feed, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found in database"})
		return
	}

	details := gin.H{
		"name":             name,
		"url":              feedConfig.URL,
		"title":            feed.Title,
		"enabled":          feedConfig.Settings.Enabled,
		"verify":           feedConfig.Settings.Verify,
		"verify_limit":     feedConfig.Settings.VerifyLimit,
		"max_items":        feedConfig.Settings.MaxItems,
		"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(feedConfig.Settings.Timeout) * time.Second).String(),
		"filters":          feedConfig.Filters,
		"database": gin.H{
			"id":              feed.ID,
			"last_fetched_at": feed.LastFetchedAt,
			"next_fetch_at":   feed.NextFetchAt,
			"created_at":      feed.CreatedAt,
			"updated_at":      feed.UpdatedAt,
		},
	}

	if total, visible, verified, err := h.trendRepo.GetTrendStats(name); err == nil {
		details["trends"] = gin.H{
			"total":    total,
			"visible":  visible,
			"filtered": total - visible,
			"verified": verified,
		}
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIReloadFeed(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	feedConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncFeedConfigTask(name, feedConfig, h.feedRepo)
	refilterTask := tasks.NewRefilterFeedTask(name, feedConfig, h.filterer, h.trendRepo)

	for _, task := range []tasks.TaskInterface{syncTask, refilterTask} {
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Error("Error enqueueing task", "type", task.GetType(), "feed", name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to enqueue task",
				"details": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"feed":    gin.H{"name": name, "url": feedConfig.URL},
		"tasks": []gin.H{
			{"id": syncTask.ID, "type": syncTask.Type},
			{"id": refilterTask.ID, "type": refilterTask.Type},
		},
	})
}
