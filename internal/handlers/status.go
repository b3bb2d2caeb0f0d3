package handlers

import "net/http"

type rootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type healthResponse struct {
	Status      string `json:"status"`
	CORSOrigins int    `json:"cors_origins"`
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{Message: "Vetnux Newsletter API", Status: "running"})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", CORSOrigins: len(h.allowedOrigins)})
}
