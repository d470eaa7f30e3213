package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classdesk/classdesk-api/internal/repository"
	"github.com/classdesk/classdesk-api/internal/service"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

// cachedResponse is the stored shape for a cacheable GET response.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// ResponseCache serves catalog GET responses from Redis when enabled. Only
// successful JSON responses are stored; everything else passes through.
func ResponseCache(cache *repository.CacheRepository, ttl time.Duration, metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := "resp:" + c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			key += "?" + raw
		}

		var cached cachedResponse
		err := cache.Get(c.Request.Context(), key, &cached)
		if err == nil {
			metrics.RecordCacheLookup(true)
			c.Header("X-Cache", "HIT")
			c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
			c.Abort()
			return
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.Next()
			return
		}
		metrics.RecordCacheLookup(false)

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := c.Writer.Status()
		if status != http.StatusOK || !json.Valid(writer.buf.Bytes()) {
			return
		}
		_ = cache.Set(c.Request.Context(), key, cachedResponse{
			Status: status,
			Body:   json.RawMessage(writer.buf.Bytes()),
		}, ttl)
	}
}

// InvalidateCache removes cached catalog responses after a successful
// mutation so stale listings never outlive a write.
func InvalidateCache(cache *repository.CacheRepository, patterns ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if cache == nil {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		for _, pattern := range patterns {
			_ = cache.DeleteByPattern(c.Request.Context(), pattern)
		}
	}
}
