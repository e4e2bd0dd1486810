package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"tradedash/internal/cache"
	"tradedash/internal/dashboard"
	"tradedash/internal/filter"
	applog "tradedash/internal/log"
	"tradedash/internal/middleware/ratelimit"
	"tradedash/internal/middleware/security"
	"tradedash/internal/middleware/trace"
	appweb "tradedash/web"
)

// Dependencies are the collaborators the server is built from.
type Dependencies struct {
	Session *dashboard.Session
	Logger  *applog.Logger

	// Charts caches rendered PNG images. Nil disables caching.
	Charts cache.Cache[[]byte]

	// Live serves /ws. Nil leaves the route unregistered.
	Live http.Handler

	// ReloadLimit bounds POST /admin/reload per client. Zero values use the limiter defaults.
	ReloadLimit ratelimit.Config
}

type Server struct {
	http.Server
	session   *dashboard.Session
	templates *template.Template
	logger    *applog.Logger
	charts    cache.Cache[[]byte]

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	r := mux.NewRouter()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		session:  deps.Session,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		charts:   deps.Charts,
		limiter:  ratelimit.NewLimiter(deps.ReloadLimit),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(template.FuncMap{
		"selected": func(sel filter.Selection, param, v string) bool { return sel.Contains(param, v) },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	if s.charts != nil && s.session != nil {
		// Keys carry the dataset version, so old entries are unreachable after
		// a reload; purging just frees the memory early.
		s.session.Subscribe(dashboard.NotifierFunc(func(ctx context.Context, snap *dashboard.Snapshot) {
			s.charts.Purge()
		}))
	}

	r.Use(
		s.tracer.Middleware,
		applog.Middleware(logger, trace.GetRequestID),
		security.Headers(security.DefaultHeadersConfig()),
		s.detector.Middleware,
	)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.CacheControl(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/options", s.handleOptions).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/sections/{name}", s.handleSection).Methods(http.MethodGet)
	api.HandleFunc("/charts/{name}", s.handleChartConfig).Methods(http.MethodGet)

	r.HandleFunc("/charts/{name}.png", s.handleChartPNG).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded",
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, s.detector.ExtractClientIP(r))
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	}))
	admin.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)

	if deps.Live != nil {
		r.Handle("/ws", deps.Live).Methods(http.MethodGet)
	}

	return s
}

// Metrics returns request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
