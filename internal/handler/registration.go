package handler

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/demo-account/internal/domain"
	"github.com/msomdec/demo-account/internal/service"
	"github.com/msomdec/demo-account/internal/view"
)

// maxFormBytes caps the size of a registration POST body.
const maxFormBytes = 64 << 10

// RegistrationHandler serves the demo account form.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	scriptURL     string
}

// NewRegistrationHandler creates a new RegistrationHandler. scriptURL is the
// Datastar client bundle included in the page; empty disables it.
func NewRegistrationHandler(registrations *service.RegistrationService, scriptURL string) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, scriptURL: scriptURL}
}

// HandleForm renders the empty registration form.
// GET /
func (h *RegistrationHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, view.RegisterState{})
}

// HandleSubmit validates and stores a registration, then re-renders the form
// with field errors or a success message. Datastar requests get the form
// card back as an SSE element patch instead of a full page.
// POST /
func (h *RegistrationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	in := service.RegistrationInput{
		FullName:        r.PostFormValue(service.FieldFullName),
		Email:           r.PostFormValue(service.FieldEmail),
		Password:        r.PostFormValue(service.FieldPassword),
		ConfirmPassword: r.PostFormValue(service.FieldConfirmPassword),
	}

	logger := LoggerFromContext(r.Context())

	var (
		state  view.RegisterState
		status = http.StatusOK
		verr   *domain.ValidationError
	)

	user, err := h.registrations.Register(r.Context(), in)
	switch {
	case err == nil:
		logger.Info("demo account created", "user_id", user.ID)
		state.Success = service.SuccessMessage(user)
	case errors.As(err, &verr):
		in = in.Normalize()
		state.FullName = in.FullName
		state.Email = in.Email
		state.Errors = verr.Fields
		status = http.StatusUnprocessableEntity
	default:
		logger.Error("register demo account", "error", err)
		if isDatastarRequest(r) {
			patchCard(w, r, view.ErrorCard())
			return
		}
		renderFailure(w, r)
		return
	}

	if isDatastarRequest(r) {
		patchCard(w, r, view.RegisterCard(state))
		return
	}

	h.renderPage(w, r, status, state)
}

func (h *RegistrationHandler) renderPage(w http.ResponseWriter, r *http.Request, status int, state view.RegisterState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := view.RegisterPage(state, h.scriptURL).Render(r.Context(), w); err != nil {
		LoggerFromContext(r.Context()).Error("render register page", "error", err)
	}
}

// patchCard replaces the form card in place over SSE.
func patchCard(w http.ResponseWriter, r *http.Request, card templ.Component) {
	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElementTempl(card); err != nil {
		LoggerFromContext(r.Context()).Error("patch register card", "error", err)
	}
}

func renderFailure(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if err := view.ErrorPage().Render(r.Context(), w); err != nil {
		LoggerFromContext(r.Context()).Error("render error page", "error", err)
	}
}

// isDatastarRequest reports whether the Datastar client sent the request.
func isDatastarRequest(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}
