package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const DefaultPageTTL = 60 * time.Second

type cachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// PageKey derives the cache key of a request from its URI.
func PageKey(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.URL.RequestURI()))
	return "page:" + hex.EncodeToString(sum[:])
}

// Page caches successful GET responses in store for ttl. Store failures are
// logged and the request is served uncached.
func Page(store Store, ttl time.Duration, log logrus.FieldLogger) gin.HandlerFunc {
	cacheControl := "max-age=" + strconv.Itoa(int(ttl/time.Second))
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := PageKey(c.Request)

		raw, err := store.Get(ctx, key)
		switch {
		case err == nil:
			var page cachedPage
			if err := json.Unmarshal(raw, &page); err == nil {
				c.Header("X-Cache", "HIT")
				c.Header("Cache-Control", cacheControl)
				c.Data(page.Status, page.ContentType, page.Body)
				c.Abort()
				return
			}
			log.WithField("key", key).Warn("discarding unreadable cached page")
		case !errors.Is(err, ErrMiss):
			log.WithError(err).Warn("page cache read failed")
		}

		w := &bodyWriter{ResponseWriter: c.Writer, cacheControl: cacheControl}
		c.Writer = w
		c.Header("X-Cache", "MISS")
		c.Next()

		if w.Status() != http.StatusOK || len(c.Errors) > 0 {
			return
		}
		page := cachedPage{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		encoded, err := json.Marshal(page)
		if err != nil {
			log.WithError(err).Warn("failed to encode page for cache")
			return
		}
		if err := store.Set(ctx, key, encoded, ttl); err != nil {
			log.WithError(err).Warn("page cache write failed")
		}
	}
}

// bodyWriter copies the response body while it is written and marks
// successful responses cacheable.
type bodyWriter struct {
	gin.ResponseWriter
	body         bytes.Buffer
	cacheControl string
}

func (w *bodyWriter) WriteHeader(code int) {
	if code == http.StatusOK {
		w.Header().Set("Cache-Control", w.cacheControl)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.markImplicitOK()
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.markImplicitOK()
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func (w *bodyWriter) markImplicitOK() {
	if !w.Written() && w.Status() == http.StatusOK {
		w.Header().Set("Cache-Control", w.cacheControl)
	}
}
