package handler

import (
	"net/http"

	"github.com/msomdec/demo-account/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, registrations *service.RegistrationService, db Pinger, scriptURL string) {
	reg := NewRegistrationHandler(registrations, scriptURL)

	mux.HandleFunc("GET /healthz", HandleHealthz(db))
	mux.HandleFunc("GET /{$}", reg.HandleForm)
	mux.HandleFunc("POST /{$}", reg.HandleSubmit)
}

// New builds the complete HTTP handler: routes wrapped in security headers
// and request logging.
func New(registrations *service.RegistrationService, db Pinger, scriptURL string) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, registrations, db, scriptURL)
	return RequestLogger(SecurityHeaders(scriptURL, mux))
}
