package controller

import (
	"context"
	"net/http"
	"time"

	"todo-api/internal/cache"
	"todo-api/internal/middleware"
	"todo-api/internal/repository"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

// Stats serves the aggregation endpoints. Overview snapshots are cached per
// user and recomputed under singleflight so concurrent misses share one
// round of queries.
type Stats struct {
	stats *repository.StatsRepo
	group singleflight.Group
}

func NewStats(stats *repository.StatsRepo) *Stats {
	return &Stats{stats: stats}
}

// Overview returns the caller's overview snapshot. generated_at is always
// stamped at response time, even on a cache hit.
func (h *Stats) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	if o, ok := cache.GetOverview(ctx, user.ID); ok {
		c.JSON(http.StatusOK, gin.H{"stats": o, "generated_at": time.Now()})
		return
	}
	v, err, _ := h.group.Do(user.ID, func() (interface{}, error) {
		o, err := h.stats.Overview(context.Background(), user.ID)
		if err != nil {
			return nil, err
		}
		go cache.SetOverview(context.Background(), user.ID, o)
		return o, nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch overview statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": v, "generated_at": time.Now()})
}

// Todos returns the detailed todo report under optional filters.
func (h *Stats) Todos(c *gin.Context) {
	ctx := c.Request.Context()
	f := repository.TodoStatsFilter{
		UserID:     c.Query("user_id"),
		CategoryID: c.Query("category_id"),
	}
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{
		{"date_from", &f.DateFrom},
		{"date_to", &f.DateTo},
	} {
		if v := c.Query(q.name); v != "" {
			t, err := parseTimestamp(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + q.name})
				return
			}
			*q.dst = &t
		}
	}

	report, err := h.stats.TodoStats(ctx, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch todo statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"basic_stats":    report.BasicStats,
		"by_category":    report.ByCategory,
		"monthly_trends": report.MonthlyTrends,
		"top_users":      report.TopUsers,
		"filters": gin.H{
			"user_id":     c.Query("user_id"),
			"category_id": c.Query("category_id"),
			"date_from":   c.Query("date_from"),
			"date_to":     c.Query("date_to"),
		},
		"generated_at": time.Now(),
	})
}

// Users returns the global user report.
func (h *Stats) Users(c *gin.Context) {
	report, err := h.stats.UserStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":             report.Summary,
		"user_activity":       report.UserActivity,
		"registration_trends": report.RegistrationTrends,
		"most_active_users":   report.MostActiveUsers,
		"generated_at":        time.Now(),
	})
}

// Categories returns the caller's category report.
func (h *Stats) Categories(c *gin.Context) {
	user := middleware.CurrentUser(c)
	report, err := h.stats.CategoryStats(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories":          report.Categories,
		"uncategorized_todos": report.UncategorizedTodos,
		"category_trends":     report.CategoryTrends,
		"generated_at":        time.Now(),
	})
}

// Trends returns creation/completion buckets over the requested window.
func (h *Stats) Trends(c *gin.Context) {
	user := middleware.CurrentUser(c)
	period := c.DefaultQuery("period", "7d")
	granularity := c.DefaultQuery("granularity", "daily")

	if _, ok := repository.TrendDays[period]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period. Must be one of: 7d, 30d, 90d"})
		return
	}
	if granularity != "daily" && granularity != "weekly" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid granularity. Must be one of: daily, weekly"})
		return
	}

	trends, err := h.stats.Trends(c.Request.Context(), user.ID, period, granularity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trends data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trends":       trends,
		"period":       period,
		"granularity":  granularity,
		"generated_at": time.Now(),
	})
}

// Productivity returns the caller's productivity report.
func (h *Stats) Productivity(c *gin.Context) {
	user := middleware.CurrentUser(c)
	report, err := h.stats.Productivity(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch productivity metrics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"productivity": report,
		"generated_at": time.Now(),
	})
}
