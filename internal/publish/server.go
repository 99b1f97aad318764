package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"

	"streamguide/internal/catalog"
	"streamguide/internal/fileutil"
	"streamguide/internal/logging"
	"streamguide/internal/metrics"
	"streamguide/internal/services"
)

const (
	requestIDHeader = "X-Request-ID"
	defaultCacheTTL = 5 * time.Minute
	serviceIDsKey   = "service-ids"
)

// ServerOptions configures the read API.
type ServerOptions struct {
	Bind          string
	CacheTTL      time.Duration
	RatePerSecond float64
	Burst         int

	// TrustProxy takes the client address from forwarding headers.
	TrustProxy bool
}

// Server serves the featured projection over HTTP.
type Server struct {
	catalog Catalog
	opts    ServerOptions
	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   *cache.Cache
	limiter *clientLimiter
	router  *mux.Router
	started time.Time

	listener net.Listener
	server   *http.Server
}

type cachedBody struct {
	body []byte
	etag string
}

// NewServer wires routes and middleware. Nothing listens until Start.
func NewServer(source Catalog, opts ServerOptions, logger *slog.Logger, m *metrics.Metrics) *Server {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	s := &Server{
		catalog: source,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "api-server"),
		metrics: m,
		cache:   cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		limiter: newClientLimiter(opts.RatePerSecond, opts.Burst, opts.TrustProxy),
		started: time.Now(),
	}

	router := mux.NewRouter()
	router.Use(s.requestID, s.observe)
	api := router.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return s.limiter.middleware(next, s.rejectRateLimited)
	})
	api.HandleFunc("/shows", s.handleShows).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/services", s.handleServices).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router = router

	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		return services.Wrap(services.ErrConfiguration, "serve", "listen", "api bind address is empty", nil)
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go s.limiter.janitor(ctx)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// Invalidate drops cached responses, typically after a publish.
func (s *Server) Invalidate() {
	s.cache.Flush()
}

func (s *Server) handleShows(w http.ResponseWriter, r *http.Request) {
	service := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("service")))
	if service != "" {
		known, err := s.knownService(r.Context(), service)
		if err != nil {
			logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "service lookup failed", "api_projection_failed",
				logging.String("route", r.URL.Path),
				logging.String(logging.FieldErrorHint, "check the catalog database"),
				logging.Error(err),
			)
			s.writeError(w, http.StatusInternalServerError, "projection unavailable")
			return
		}
		if !known {
			s.writeError(w, http.StatusBadRequest, "unknown service "+strconv.Quote(service))
			return
		}
	}
	key := "shows:" + service
	s.serveCached(w, r, key, func(ctx context.Context) (any, error) {
		shows, _, err := project(ctx, s.catalog)
		if err != nil {
			return nil, err
		}
		if service != "" {
			shows = filterByService(shows, service)
		}
		return ShowsDocument{GeneratedAt: time.Now().UTC(), Count: len(shows), Shows: shows}, nil
	})
}

// knownService reports whether id names a catalog service. The id set is
// cached with the responses so filters stay bounded to real services.
func (s *Server) knownService(ctx context.Context, id string) (bool, error) {
	var ids map[string]struct{}
	if cached, ok := s.cache.Get(serviceIDsKey); ok {
		ids = cached.(map[string]struct{})
	} else {
		list, err := s.catalog.Services(ctx)
		if err != nil {
			return false, err
		}
		ids = make(map[string]struct{}, len(list))
		for _, svc := range list {
			ids[svc.ID] = struct{}{}
		}
		s.cache.SetDefault(serviceIDsKey, ids)
	}
	_, ok := ids[id]
	return ok, nil
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, "services", func(ctx context.Context) (any, error) {
		_, list, err := project(ctx, s.catalog)
		if err != nil {
			return nil, err
		}
		return ServicesDocument{GeneratedAt: time.Now().UTC(), Services: list}, nil
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

// serveCached answers from the TTL cache, building and storing the encoded
// body on a miss. Matching If-None-Match requests get 304.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key string, build func(context.Context) (any, error)) {
	var entry cachedBody
	if cached, ok := s.cache.Get(key); ok {
		entry = cached.(cachedBody)
	} else {
		payload, err := build(r.Context())
		if err != nil {
			logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "projection failed", "api_projection_failed",
				logging.String("route", r.URL.Path),
				logging.String(logging.FieldErrorHint, "check the catalog database"),
				logging.Error(err),
			)
			s.writeError(w, http.StatusInternalServerError, "projection unavailable")
			return
		}
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			s.writeError(w, http.StatusInternalServerError, "encode failed")
			return
		}
		entry = cachedBody{body: buf.Bytes(), etag: `"` + fileutil.Checksum(buf.Bytes())[:16] + `"`}
		s.cache.SetDefault(key, entry)
	}

	header := w.Header()
	header.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(s.opts.CacheTTL.Seconds())))
	header.Set("ETag", entry.etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == entry.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	header.Set("Content-Type", "application/json")
	header.Set("Content-Length", strconv.Itoa(len(entry.body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(entry.body)
}

func filterByService(shows []catalog.ProjectedShow, service string) []catalog.ProjectedShow {
	out := make([]catalog.ProjectedShow, 0, len(shows))
	for _, show := range shows {
		for _, badge := range show.Services {
			if badge.ServiceID == service {
				out = append(out, show)
				break
			}
		}
	}
	return out
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusTooManyRequests, "too many requests")
}

// requestID reuses a caller supplied X-Request-ID or mints one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.APIRequest(route, rec.status)
		logging.WithContext(r.Context(), s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("route", route),
			logging.Int("status", rec.status),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
