package http

import (
	"net/http"
	"time"

	"examprep-service/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	API         *API
	WS          *WSHandler
	Auth        *TokenAuth
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.Use(instrument(cfg.Metrics))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}
	if cfg.WS != nil {
		router.HandleFunc("/ws", cfg.WS.ServeWS)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/quizzes", cfg.API.ListQuizzes).Methods(http.MethodGet)
	api.HandleFunc("/subjects", cfg.API.ListSubjects).Methods(http.MethodGet)
	api.Handle("/quizzes/attempt", cfg.Auth.Middleware(http.HandlerFunc(cfg.API.SubmitAttempt))).Methods(http.MethodPost)
	api.Handle("/dashboard/stats", cfg.Auth.Middleware(http.HandlerFunc(cfg.API.DashboardStats))).Methods(http.MethodGet)
	api.Handle("/leaderboard", cfg.Auth.Middleware(http.HandlerFunc(cfg.API.Leaderboard))).Methods(http.MethodGet)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(router)
}

// instrument records request latency by route template.
func instrument(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			next.ServeHTTP(w, r)
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.ObserveRequest(route, r.Method, started)
		})
	}
}
