package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// idempotencyStore remembers successful write responses by request id so a
// retried request is answered without running the operation again.
type idempotencyStore struct {
	responses *expirable.LRU[string, cachedResponse]

	mu       sync.Mutex
	inflight map[string]struct{}
}

func newIdempotencyStore(size int, ttl time.Duration) *idempotencyStore {
	return &idempotencyStore{
		responses: expirable.NewLRU[string, cachedResponse](size, nil, ttl),
		inflight:  make(map[string]struct{}),
	}
}

// begin claims key. It returns the cached response if one exists, or
// ok=false when another request with the same key is still running.
func (s *idempotencyStore) begin(key string) (cached *cachedResponse, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp, found := s.responses.Get(key); found {
		return &resp, true
	}
	if _, busy := s.inflight[key]; busy {
		return nil, false
	}
	s.inflight[key] = struct{}{}
	return nil, true
}

func (s *idempotencyStore) finish(key string, resp *cachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
	if resp != nil {
		s.responses.Add(key, *resp)
	}
}

// bodyRecorder captures the response body while passing it through.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays cached 2xx responses for write requests that
// repeat an X-Request-ID. Write requests with an id over 128 characters are
// rejected. Keys are scoped by caller, method and path, so it
// must run after AuthMiddleware.
func IdempotencyMiddleware(s *idempotencyStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		raw := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if raw == "" {
			c.Next()
			return
		}
		// A longer id was replaced by RequestIDMiddleware and could never replay.
		if len(raw) > maxRequestIDLength {
			abortWithError(c, log, invalid(fmt.Sprintf("%s longer than %d characters", RequestIDHeader, maxRequestIDLength)))
			return
		}

		var user int64
		if claims := GetClaims(c); claims != nil {
			user = claims.UserID
		}
		key := fmt.Sprintf("%d %s %s %s", user, c.Request.Method, c.Request.URL.Path, requestID(c))
		cached, ok := s.begin(key)
		if !ok {
			abortWithError(c, log, errDuplicateInFlight)
			return
		}
		if cached != nil {
			log.Info("replaying cached response",
				zap.String("request_id", requestID(c)),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Idempotent-Replayed", "true")
			c.Data(cached.status, cached.contentType, cached.body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		var resp *cachedResponse
		defer func() { s.finish(key, resp) }()

		c.Next()

		if status := rec.Status(); status >= 200 && status < 300 {
			resp = &cachedResponse{
				status:      status,
				contentType: rec.Header().Get("Content-Type"),
				body:        bytes.Clone(rec.body.Bytes()),
			}
		}
	}
}
