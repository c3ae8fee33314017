package router

import (
	"net/http"
	"time"

	"github.com/cx-tal-miterani/avi-itinerary/internal/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Options configures the middleware around the routes
type Options struct {
	AllowedOrigins []string
	RateLimit      float64 // requests per second per client, 0 disables
	RateBurst      int
	Logger         *zap.Logger
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler, ws http.HandlerFunc, opts Options) http.Handler {
	r := mux.NewRouter()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(accessLog(logger.Named("http")))

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	if opts.RateLimit > 0 {
		api.Use(NewRateLimiter(opts.RateLimit, opts.RateBurst).Limit)
	}

	// Itinerary
	api.HandleFunc("/itinerary", h.GetItinerary).Methods(http.MethodGet)
	api.HandleFunc("/itinerary/snapshot", h.GetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/itinerary/destination", h.UpdateDestination).Methods(http.MethodPut)
	api.HandleFunc("/itinerary/days/{day}/blocks", h.AddBlock).Methods(http.MethodPost)
	api.HandleFunc("/itinerary/days/{day}/blocks/{blockId}", h.RemoveBlock).Methods(http.MethodDelete)
	api.HandleFunc("/itinerary/flights", h.MergeFlights).Methods(http.MethodPost)
	api.HandleFunc("/itinerary/active-day", h.SetActiveDay).Methods(http.MethodPut)
	api.HandleFunc("/itinerary/blocks/{blockId}/toggle", h.ToggleBlock).Methods(http.MethodPost)

	// Map lookup
	api.HandleFunc("/locate", h.Locate).Methods(http.MethodGet)

	// Chat
	api.HandleFunc("/chat/transcript", h.GetTranscript).Methods(http.MethodGet)

	// WebSocket for real-time updates
	if ws != nil {
		api.HandleFunc("/ws", ws).Methods(http.MethodGet)
	}

	// Health check
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func accessLog(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// websocket upgrades need the raw writer to hijack
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
