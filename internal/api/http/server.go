package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"

	appAudit "github.com/facility-hub/facility-hub/internal/application/audit"
	appAuth "github.com/facility-hub/facility-hub/internal/application/auth"
	"github.com/facility-hub/facility-hub/internal/application/lifecycle"
	appReference "github.com/facility-hub/facility-hub/internal/application/reference"
	appSequence "github.com/facility-hub/facility-hub/internal/application/sequence"
	"github.com/facility-hub/facility-hub/internal/application/sweeper"
	appUser "github.com/facility-hub/facility-hub/internal/application/user"
	domainUser "github.com/facility-hub/facility-hub/internal/domain/user"
	"github.com/facility-hub/facility-hub/internal/infrastructure/sse"
)

// Services are the application services behind the HTTP API.
type Services struct {
	Auth       *appAuth.Service
	Users      *appUser.Service
	Lifecycle  *lifecycle.Service
	References *appReference.Service
	Audit      *appAudit.Service
	Sequences  *appSequence.Service
	Sweeper    *sweeper.Service
	Hub        *sse.Hub
}

// Options configures transport concerns.
type Options struct {
	SessionCookieName   string
	SessionCookieSecure bool
	// RateLimit uses the limiter format, e.g. "300-M". Empty disables it.
	RateLimit      string
	CORSOrigins    []string
	MetricsEnabled bool
	RequestTimeout time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	authSvc      *appAuth.Service
	userSvc      *appUser.Service
	lifecycleSvc *lifecycle.Service
	referenceSvc *appReference.Service
	auditSvc     *appAudit.Service
	sequenceSvc  *appSequence.Service
	sweeperSvc   *sweeper.Service
	sseHub       *sse.Hub
	opts         Options
	rate         *limiter.Limiter
	logger       zerolog.Logger
}

func NewServer(svc Services, opts Options, logger zerolog.Logger) (*Server, error) {
	if opts.SessionCookieName == "" {
		opts.SessionCookieName = "facilityhub_session"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		authSvc:      svc.Auth,
		userSvc:      svc.Users,
		lifecycleSvc: svc.Lifecycle,
		referenceSvc: svc.References,
		auditSvc:     svc.Audit,
		sequenceSvc:  svc.Sequences,
		sweeperSvc:   svc.Sweeper,
		sseHub:       svc.Hub,
		opts:         opts,
		logger:       logger.With().Str("component", "http").Logger(),
	}
	if opts.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(opts.RateLimit)
		if err != nil {
			return nil, err
		}
		s.rate = limiter.New(limitermemory.NewStore(), rate)
	}
	return s, nil
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		if s.rate != nil {
			r.Use(limiterhttp.NewMiddleware(s.rate).Handler)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/bootstrap", s.bootstrapAdmin)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			// The event stream is long lived and must not be cut by the timeout.
			r.Get("/events/stream", s.sseEndpoint)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(s.opts.RequestTimeout))

				r.Route("/users", func(r chi.Router) {
					r.With(s.requireRole(domainUser.RoleAdmin)).Post("/", s.createUser)
					r.With(s.requireRole(domainUser.RoleAdmin)).Get("/", s.listUsers)
					r.Get("/{userId}", s.getUser)
					r.With(s.requireRole(domainUser.RoleAdmin)).Patch("/{userId}", s.updateUser)
					r.Put("/{userId}/password", s.setUserPassword)
				})

				r.Route("/references", func(r chi.Router) {
					r.Get("/buildings", s.listBuildings)
					r.Get("/rooms", s.listRooms)
					r.Get("/categories", s.listCategories)
					r.Get("/subcategories", s.listSubcategories)
					r.Group(func(r chi.Router) {
						r.Use(s.requireRole(domainUser.RoleAdmin))
						r.Post("/buildings", s.createBuilding)
						r.Post("/rooms", s.createRoom)
						r.Post("/categories", s.createCategory)
						r.Post("/subcategories", s.createSubcategory)
					})
				})

				r.Route("/requests", func(r chi.Router) {
					r.Post("/", s.submitRequest)
					r.Get("/", s.listRequests)
					r.Get("/{requestId}", s.getRequest)
					r.Get("/{requestId}/history", s.getRequestHistory)
					r.Post("/{requestId}/priority", s.transition(s.assignPriority))
					r.Post("/{requestId}/assign", s.transition(s.assignServicer))
					r.Post("/{requestId}/send-back", s.transition(s.sendBack))
					r.Post("/{requestId}/schedule", s.transition(s.scheduleRequest))
					r.Post("/{requestId}/start", s.transition(s.startRequest))
					r.Post("/{requestId}/complete", s.transition(s.completeRequest))
					r.Post("/{requestId}/reassign", s.transition(s.reassignRequest))
					r.Post("/{requestId}/delay", s.transition(s.markDelayed))
					r.Post("/{requestId}/hold", s.transition(s.holdRequest))
					r.Post("/{requestId}/resume", s.transition(s.resumeRequest))
					r.Post("/{requestId}/cancel", s.transition(s.cancelRequest))
				})

				r.Route("/admin", func(r chi.Router) {
					r.Use(s.requireRole(domainUser.RoleAdmin))
					r.Post("/sweep", s.runSweep)
					r.Get("/counters", s.listCounters)
					r.Get("/history/{historyId}/verify", s.verifyHistory)
				})
			})
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseUUIDQuery(r *http.Request, key string) (*uuid.UUID, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
