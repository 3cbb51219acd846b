package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"softphone-governor/pkg/config"
	"softphone-governor/pkg/handlers"
)

func NewHTTPServer(config *config.Config, handler *handlers.Handler, logger *logrus.Logger) *http.Server {
	return &http.Server{
		Addr:         ":" + config.Port,
		Handler:      NewRouter(handler, logger, config.WebhookSecret),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter wires the routes. Everything except health, status and metrics
// requires webhookSecret when it is set.
func NewRouter(handler *handlers.Handler, logger *logrus.Logger, webhookSecret string) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", handler.Health).Methods("GET")
	router.HandleFunc("/status", handler.Status).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(secretMiddleware(webhookSecret))

	// Phone engine webhooks
	api.HandleFunc("/events", handler.Events).Methods("POST")
	api.HandleFunc("/to_tomoru/integrations/phone", handler.Events).Methods("POST")
	api.HandleFunc("/softphone_log", handler.SoftphoneLog).Methods("POST")
	api.HandleFunc("/softphone/advise_on_incoming_call", handler.AdviseOnIncomingCall).Methods("GET")

	// Control
	api.HandleFunc("/commands", handler.Commands).Methods("POST")
	api.HandleFunc("/configs/{configId}/push", handler.PushConfig).Methods("POST")
	api.HandleFunc("/configs/{configId}/push", handler.RemoveConfig).Methods("DELETE")
	api.HandleFunc("/logs", handler.Logs).Methods("GET")
	api.HandleFunc("/dialogs", handler.Dialogs).Methods("GET")
	api.HandleFunc("/dialogs/{dialogId}", handler.Dialog).Methods("GET")

	router.Use(loggingMiddleware(logger))

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Debug("HTTP request processed")
		})
	}
}

// secretMiddleware accepts the secret as a "secret" query parameter or a bearer token.
func secretMiddleware(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.URL.Query().Get("secret")
			if auth := r.Header.Get("Authorization"); provided == "" && strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
