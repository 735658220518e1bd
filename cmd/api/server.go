package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/WyattLin001/invest-tournament-engine/src/app/workflow"
)

type ServerConfig struct {
	Logger *zap.Logger
	Engine *workflow.Service
}

// Server wires HTTP endpoints to the engine with observability instrumentation.
type Server struct {
	cfg            ServerConfig
	router         *mux.Router
	httpMetrics    *prometheus.HistogramVec
	requestCounter *prometheus.CounterVec
}

func NewServer(cfg ServerConfig) *Server {
	srv := &Server{cfg: cfg}
	srv.initMetrics()
	srv.buildRouter()
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) initMetrics() {
	s.httpMetrics = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ite",
		Subsystem: "http",
		Name:      "request_latency_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
	s.requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ite",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route",
	}, []string{"route", "method", "code"})
	prometheus.MustRegister(s.httpMetrics, s.requestCounter)
}

func (s *Server) buildRouter() {
	r := mux.NewRouter()
	r.Use(s.correlationMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)

	apiRouter := r.PathPrefix("/v1").Subrouter()
	apiRouter.Handle("/tournaments", otelhttp.NewHandler(http.HandlerFunc(s.handleCreateTournament), "CreateTournament")).Methods(http.MethodPost)
	apiRouter.Handle("/tournaments", otelhttp.NewHandler(http.HandlerFunc(s.handleListTournaments), "ListTournaments")).Methods(http.MethodGet)
	apiRouter.Handle("/tournaments/{id}", otelhttp.NewHandler(http.HandlerFunc(s.handleGetTournament), "GetTournament")).Methods(http.MethodGet)
	apiRouter.Handle("/tournaments/{id}/transition", otelhttp.NewHandler(http.HandlerFunc(s.handleTransition), "TransitionTournament")).Methods(http.MethodPost)
	apiRouter.Handle("/tournaments/{id}/join", otelhttp.NewHandler(http.HandlerFunc(s.handleJoinTournament), "JoinTournament")).Methods(http.MethodPost)
	apiRouter.Handle("/tournaments/{id}/trades", otelhttp.NewHandler(http.HandlerFunc(s.handleExecuteTrade), "ExecuteTrade")).Methods(http.MethodPost)
	apiRouter.Handle("/tournaments/{id}/rankings", otelhttp.NewHandler(http.HandlerFunc(s.handleGetRankings), "GetRankings")).Methods(http.MethodGet)
	apiRouter.Handle("/tournaments/{id}/settle", otelhttp.NewHandler(http.HandlerFunc(s.handleSettle), "SettleTournament")).Methods(http.MethodPost)
	apiRouter.Handle("/tournaments/{id}/prices/refresh", otelhttp.NewHandler(http.HandlerFunc(s.handleRefreshPrices), "RefreshPrices")).Methods(http.MethodPost)
	apiRouter.Handle("/tournaments/{id}/wallets/{user}", otelhttp.NewHandler(http.HandlerFunc(s.handleGetWallet), "GetWallet")).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router = r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.cfg.Logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", correlationIDFromContext(r.Context())),
		)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := mux.CurrentRoute(r)
		routeName := "unknown"
		if route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				routeName = tmpl
			}
		}
		codeLabel := strconv.Itoa(rw.status)
		labels := prometheus.Labels{"route": routeName, "method": r.Method, "code": codeLabel}
		s.httpMetrics.With(labels).Observe(time.Since(start).Seconds())
		s.requestCounter.With(labels).Inc()
	})
}

// responseWriter captures HTTP status codes for logging/metrics.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
