package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/pkg/logger"
)

const cacheStatusHeader = "X-Cache"

// bodyRecorder tees the response body so it can be stored after the handler ran.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// OutputCache serves GET responses from store. Successful responses are stored under the
// request URI and tagged with tags; writes evict them through OutputCache.EvictByTag.
// Authenticated requests bypass the cache.
func OutputCache(store *cache.OutputCache, ttl time.Duration, tags ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet || c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}

		ctx := requestContextOf(c)
		key := "GET " + c.Request.URL.RequestURI()

		if cached, ok := store.Get(ctx, key); ok {
			for name, values := range cached.Header {
				for _, value := range values {
					c.Writer.Header().Add(name, value)
				}
			}
			c.Header(cacheStatusHeader, "HIT")
			c.Data(cached.Status, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		ticket := store.Begin(tags...)
		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Header(cacheStatusHeader, "MISS")

		c.Next()

		if recorder.Status() != http.StatusOK || len(c.Errors) > 0 {
			return
		}

		resp := &cache.CachedResponse{
			Status:      recorder.Status(),
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        append([]byte(nil), recorder.body.Bytes()...),
		}
		if err := store.Store(ctx, key, resp, ttl, ticket); err != nil {
			logger.WithModule("http").Debug("output cache store skipped",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}
