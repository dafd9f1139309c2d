// Package proxy implements the remote-attestation proxy: an HTTP service
// exposing the verification pipeline to non-Go parties, with request
// logging, rate limiting, a TTL-bounded result cache and Prometheus
// metrics.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/teeverse/attestation/internal/common/config"
	"github.com/teeverse/attestation/internal/common/logger"
	"github.com/teeverse/attestation/pkg/attestation"
	"github.com/teeverse/attestation/pkg/verification"
)

// VerifyFunc runs one verification; the default is the library pipeline.
type VerifyFunc = func(reportJSON, policyJSON string) attestation.Status

// ParseAttributesFunc extracts attributes without policy matching.
type ParseAttributesFunc = func(reportJSON string) (*attestation.UnifiedAttributes, attestation.Status)

// Server is the RA proxy.
type Server struct {
	cfg     *config.Config
	router  chi.Router
	cache   *resultCache
	limiter *rate.Limiter
	sweeper *cron.Cron
	http    *http.Server
	log     *logrus.Entry

	verify     VerifyFunc
	parseAttrs ParseAttributesFunc
}

// New builds the proxy from configuration. verify and parseAttrs may be
// nil to use the library pipeline.
func New(cfg *config.Config, verify VerifyFunc, parseAttrs ParseAttributesFunc) (*Server, error) {
	if verify == nil {
		verify = verification.Verify
	}
	if parseAttrs == nil {
		parseAttrs = verification.ParseAttributes
	}

	cache, err := newResultCache(cfg.Proxy.CacheSize, cfg.Proxy.CacheTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Proxy.RatePerSecond), cfg.Proxy.RateBurst),
		sweeper:    cron.New(),
		log:        logger.New("ra-proxy"),
		verify:     verify,
		parseAttrs: parseAttrs,
	}
	s.router = s.buildRouter()

	if _, err := s.sweeper.AddFunc("@every 1m", s.sweepCache); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Proxy.RequestTimeout))
	if s.cfg.Proxy.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/verify", s.handleVerify)
		r.Post("/attributes", s.handleAttributes)
	})
	return r
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Proxy.Host, s.cfg.Proxy.Port)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	s.sweeper.Start()
	s.log.WithField("addr", addr).Info("ra proxy listening")

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and the cache sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sweeper.Stop()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) sweepCache() {
	if removed := s.cache.purgeExpired(); removed > 0 {
		s.log.WithField("removed", removed).Debug("cache sweep")
	}
}

// verifyRequest is the POST /api/v1/verify body: the report and policy
// documents, passed through as JSON text.
type verifyRequest struct {
	Report string `json:"report"`
	Policy string `json:"policy"`
}

type attributesRequest struct {
	Report string `json:"report"`
}

type attributesResponse struct {
	Status     attestation.Status             `json:"status"`
	Attributes *attestation.UnifiedAttributes `json:"attributes,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, attestation.Status{
			Code: 2, Message: "malformed request body", Details: err.Error(),
		})
		return
	}

	platform := platformTag(req.Report)
	if status, ok := s.cache.get(req.Report, req.Policy); ok {
		cacheHitTotal.Inc()
		verificationTotal.WithLabelValues(platform, strconv.Itoa(status.Code)).Inc()
		writeJSON(w, http.StatusOK, status)
		return
	}

	verificationInFlight.Inc()
	start := time.Now()
	status := s.verify(req.Report, req.Policy)
	verificationInFlight.Dec()

	verificationDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())
	verificationTotal.WithLabelValues(platform, strconv.Itoa(status.Code)).Inc()

	s.cache.put(req.Report, req.Policy, status)
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	var req attributesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, attributesResponse{Status: attestation.Status{
			Code: 2, Message: "malformed request body", Details: err.Error(),
		}})
		return
	}
	attrs, status := s.parseAttrs(req.Report)
	writeJSON(w, http.StatusOK, attributesResponse{Status: status, Attributes: attrs})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type requestIDKey struct{}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": w.Header().Get("X-Request-ID"),
		}).Info("request")
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, attestation.Status{
				Code: 3, Message: "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func platformTag(reportJSON string) string {
	report, err := attestation.DecodeReport(reportJSON)
	if err != nil || report.TeePlatform == "" {
		return "unknown"
	}
	return report.TeePlatform
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
