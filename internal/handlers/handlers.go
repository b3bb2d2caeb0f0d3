package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"vetnux-newsletter/internal/metrics"
	"vetnux-newsletter/internal/models"
	"vetnux-newsletter/internal/schemas"
)

// Subscriber runs the subscription write pathway.
type Subscriber interface {
	Subscribe(ctx context.Context, req schemas.SubscriberCreate) (*models.Subscriber, error)
}

type Handlers struct {
	subscriptions  Subscriber
	allowedOrigins []string
	logger         logrus.FieldLogger
}

func New(subscriptions Subscriber, allowedOrigins []string, logger logrus.FieldLogger) *Handlers {
	return &Handlers{
		subscriptions:  subscriptions,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Router registers every endpoint. subscribeMiddleware wraps POST /subscribe only.
func (h *Handlers) Router(subscribeMiddleware ...mux.MiddlewareFunc) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	var subscribe http.Handler = http.HandlerFunc(h.PostSubscribe)
	for i := len(subscribeMiddleware) - 1; i >= 0; i-- {
		subscribe = subscribeMiddleware[i](subscribe)
	}
	r.Handle("/subscribe", subscribe).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, detail{Detail: "Not Found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, detail{Detail: "Method Not Allowed"})
	})
	return metrics.InstrumentRouter(r)
}

type detail struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
