// Package server answers metadata lookups over HTTP. Every requested path
// is normalized before it reaches the cache or the index, so equivalent
// spellings share one entry.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/metapath/metapath/internal/config"
	"github.com/metapath/metapath/internal/logging"
	"github.com/metapath/metapath/internal/metadata"
	"github.com/metapath/metapath/internal/observability"
	"github.com/metapath/metapath/internal/pathnorm"
	"github.com/metapath/metapath/internal/ratelimit"
	"github.com/metapath/metapath/internal/syserror"
	"github.com/rs/zerolog"
)

const (
	healthPath    = "/healthz"
	normalizePath = "/v1/normalize"
)

// Store is the read side of the index.
type Store interface {
	Lookup(ctx context.Context, library, path string) (metadata.Metadata, bool, error)
	List(ctx context.Context, library, prefix string) ([]string, error)
}

type cached struct {
	meta  metadata.Metadata
	found bool
}

type Server struct {
	router      *Router
	store       Store
	cache       *lru.Cache[string, cached]
	cacheMu     sync.RWMutex
	generation  atomic.Uint64
	limiter     *ratelimit.Limiter
	limitStatus int

	events  *logging.EventLogger
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func New(cfg *config.Config, store Store) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}

	s := &Server{
		router:      NewRouter(cfg.Libraries),
		store:       store,
		limitStatus: rateLimitStatus(cfg.Server.RateLimit.StatusCode),
		logger:      zerolog.Nop(),
	}

	if cfg.Cache.Size > 0 {
		cache, err := lru.New[string, cached](cfg.Cache.Size)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	if cfg.Server.RateLimit.Enabled {
		s.limiter = ratelimit.NewLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	}

	return s, nil
}

func (s *Server) SetEventLogger(events *logging.EventLogger) {
	s.events = events
}

func (s *Server) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

func (s *Server) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// Purge empties the lookup cache. Call it after the index changes.
// Lookups that started before Purge do not repopulate the cache.
func (s *Server) Purge() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation.Add(1)
	s.cache.Purge()
}

// PruneLimiter forgets rate limit buckets idle for longer than idle.
func (s *Server) PruneLimiter(idle time.Duration) int {
	return s.limiter.Prune(time.Now().Add(-idle))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case healthPath:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
		return
	case normalizePath:
		if s.allow(w, r, requestID, "") {
			s.handleNormalize(w, r, requestID)
		}
		return
	}

	mount, rest, ok := s.router.Match(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if s.allow(w, r, requestID, mount.Library) {
		s.handleLookup(w, r, requestID, mount, rest)
	}
}

func (s *Server) allow(w http.ResponseWriter, r *http.Request, requestID, library string) bool {
	if s.limiter.Allow(ratelimit.ClientKey(r), time.Now()) {
		return true
	}

	s.metrics.ObserveRateLimited(library)
	s.writeEvent(logging.Event{
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Kind:      logging.EventRateLimited,
		Library:   library,
		RawPath:   r.URL.Path,
		Status:    s.limitStatus,
	})
	http.Error(w, "rate limit exceeded", s.limitStatus)
	return false
}

type normalizeResponse struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Style      string `json:"style"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request, requestID string) {
	start := time.Now()
	query := r.URL.Query()
	event := logging.Event{
		Timestamp: start.UTC(),
		RequestID: requestID,
		Kind:      logging.EventNormalize,
		RawPath:   query.Get("path"),
	}
	defer func() {
		event.DurationMS = time.Since(start).Milliseconds()
		s.writeEvent(event)
	}()

	if !query.Has("path") {
		event.Status = http.StatusBadRequest
		http.Error(w, "path query parameter is required", event.Status)
		return
	}
	style, ok := pathnorm.ParseStyle(query.Get("style"))
	if !ok {
		event.Status = http.StatusBadRequest
		http.Error(w, "style must be native, unix or windows", event.Status)
		return
	}

	normalized, err := normalize(event.RawPath, style)
	if err != nil {
		event.Status = http.StatusInternalServerError
		event.Error = err.Error()
		s.logger.Error().Err(err).Str("request_id", requestID).Str("path", event.RawPath).Msg("normalize failed")
		http.Error(w, "internal error", event.Status)
		return
	}

	event.Path = normalized
	event.Status = http.StatusOK
	writeJSON(w, http.StatusOK, normalizeResponse{Raw: event.RawPath, Normalized: normalized, Style: style.String()})
}

// normalize turns an invariant violation inside the normalizer into an
// error instead of taking the server down.
func normalize(path string, style pathnorm.Style) (normalized string, err error) {
	defer syserror.Recover(&err)
	return pathnorm.NormalizeStyle(path, style), nil
}

type lookupResponse struct {
	Library  string            `json:"library"`
	Path     string            `json:"path"`
	Metadata metadata.Metadata `json:"metadata"`
}

type listResponse struct {
	Library string   `json:"library"`
	Path    string   `json:"path"`
	Paths   []string `json:"paths"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request, requestID string, mount Mount, rest string) {
	start := time.Now()
	event := logging.Event{
		Timestamp: start.UTC(),
		RequestID: requestID,
		Kind:      logging.EventLookup,
		Library:   mount.Library,
		RawPath:   r.URL.Path,
	}
	defer func() {
		took := time.Since(start)
		event.DurationMS = took.Milliseconds()
		s.writeEvent(event)
		s.metrics.ObserveLookup(mount.Library, event.Status, event.CacheHit, took)
		s.logger.Debug().
			Str("request_id", requestID).
			Str("library", mount.Library).
			Str("path", event.Path).
			Int("status", event.Status).
			Bool("cache_hit", event.CacheHit).
			Msg("lookup")
	}()

	path, err := normalize(rest, pathnorm.Unix)
	if err != nil {
		event.Status = http.StatusInternalServerError
		event.Error = err.Error()
		http.Error(w, "internal error", event.Status)
		return
	}
	event.Path = path

	if pathnorm.Escapes(path, pathnorm.Unix) {
		event.Status = http.StatusBadRequest
		http.Error(w, "path escapes the library", event.Status)
		return
	}

	if r.URL.Query().Get("list") == "1" {
		paths, err := s.store.List(r.Context(), mount.Library, path)
		if err != nil {
			s.storeFailed(w, &event, err)
			return
		}
		if len(paths) == 0 {
			event.Status = http.StatusNotFound
			http.Error(w, "not found", event.Status)
			return
		}
		event.Status = http.StatusOK
		writeJSON(w, http.StatusOK, listResponse{Library: mount.Library, Path: path, Paths: paths})
		return
	}

	entry, hit, err := s.lookup(r.Context(), mount.Library, path)
	if err != nil {
		s.storeFailed(w, &event, err)
		return
	}
	event.CacheHit = hit
	if !entry.found {
		event.Status = http.StatusNotFound
		http.Error(w, "not found", event.Status)
		return
	}

	meta := entry.meta
	if meta == nil {
		meta = metadata.Metadata{}
	}
	event.Status = http.StatusOK
	writeJSON(w, http.StatusOK, lookupResponse{Library: mount.Library, Path: path, Metadata: meta})
}

func (s *Server) lookup(ctx context.Context, library, path string) (cached, bool, error) {
	key := library + "\x00" + path
	if s.cache != nil {
		if entry, ok := s.cache.Get(key); ok {
			return entry, true, nil
		}
	}

	generation := s.generation.Load()
	meta, found, err := s.store.Lookup(ctx, library, path)
	if err != nil {
		return cached{}, false, err
	}
	entry := cached{meta: meta, found: found}
	if s.cache != nil {
		s.cacheMu.RLock()
		if s.generation.Load() == generation {
			s.cache.Add(key, entry)
		}
		s.cacheMu.RUnlock()
	}
	return entry, false, nil
}

func (s *Server) storeFailed(w http.ResponseWriter, event *logging.Event, err error) {
	event.Status = http.StatusInternalServerError
	event.Error = err.Error()
	s.logger.Error().Err(err).Str("request_id", event.RequestID).Str("library", event.Library).Msg("index query failed")
	http.Error(w, "internal error", event.Status)
}

func (s *Server) writeEvent(event logging.Event) {
	if err := s.events.Write(event); err != nil {
		s.logger.Error().Err(err).Msg("write event log")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}

func rateLimitStatus(code int) int {
	if code <= 0 {
		return http.StatusTooManyRequests
	}
	return code
}
