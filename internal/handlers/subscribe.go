package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"vetnux-newsletter/internal/logging"
	"vetnux-newsletter/internal/metrics"
	"vetnux-newsletter/internal/middleware"
	"vetnux-newsletter/internal/schemas"
	"vetnux-newsletter/internal/subscription"
)

const maxBodyBytes = 1 << 16

func (h *Handlers) PostSubscribe(w http.ResponseWriter, r *http.Request) {
	req, err := schemas.DecodeSubscriberCreate(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeSubscribeError(w, r, req.Email, err)
		return
	}

	created, err := h.subscriptions.Subscribe(r.Context(), req)
	if err != nil {
		h.writeSubscribeError(w, r, req.Email, err)
		return
	}

	metrics.RecordSubscription(metrics.ResultCreated)
	writeJSON(w, http.StatusOK, schemas.NewSubscriberOut(created))
}

func (h *Handlers) writeSubscribeError(w http.ResponseWriter, r *http.Request, email string, err error) {
	entry := h.logger.WithFields(logrus.Fields{
		"email":      logging.RedactEmail(email),
		"request_id": middleware.RequestID(r.Context()),
	})

	var verr *schemas.ValidationError
	switch {
	case errors.Is(err, schemas.ErrBodyTooLarge):
		metrics.RecordSubscription(metrics.ResultInvalid)
		entry.Debug("Rejected oversized subscribe request")
		writeJSON(w, http.StatusRequestEntityTooLarge, detail{Detail: "Request body too large"})
	case errors.As(err, &verr):
		metrics.RecordSubscription(metrics.ResultInvalid)
		entry.WithError(err).Debug("Rejected subscribe request")
		writeJSON(w, http.StatusUnprocessableEntity, detail{Detail: verr.Fields})
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		metrics.RecordSubscription(metrics.ResultDuplicate)
		entry.Info("Email already subscribed")
		writeJSON(w, http.StatusBadRequest, detail{Detail: "Email already subscribed"})
	default:
		metrics.RecordSubscription(metrics.ResultError)
		entry.WithError(err).Error("Error creating subscriber")
		writeJSON(w, http.StatusInternalServerError, detail{Detail: "Internal Server Error"})
	}
}
