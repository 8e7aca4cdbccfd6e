package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/msomdec/demo-account/internal/handler"
	"github.com/msomdec/demo-account/internal/repository/sqlite"
	"github.com/msomdec/demo-account/internal/service"
)

func newTestServices(t *testing.T) (*service.RegistrationService, *sqlite.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return service.NewRegistrationService(db.Users(), 4), db
}

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.DB) {
	t.Helper()
	registrations, db := newTestServices(t)
	srv := httptest.NewServer(handler.New(registrations, db, ""))
	t.Cleanup(srv.Close)
	return srv, db
}

func janeDoeForm() url.Values {
	return url.Values{
		service.FieldFullName:        {"Jane Doe"},
		service.FieldEmail:           {"jane@example.com"},
		service.FieldPassword:        {"Abcdefg1"},
		service.FieldConfirmPassword: {"Abcdefg1"},
	}
}

func postForm(t *testing.T, srv *httptest.Server, form url.Values) (int, string) {
	t.Helper()
	resp, err := http.PostForm(srv.URL+"/", form)
	if err != nil {
		t.Fatalf("POST /: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func userCount(t *testing.T, db *sqlite.DB) int {
	t.Helper()
	n, err := sqlite.NewUserRepository(db).Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	return n
}

func TestRegistration_GetRendersEmptyForm(t *testing.T) {
	srv, db := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected text/html, got %s", ct)
	}
	for _, field := range []string{service.FieldFullName, service.FieldEmail, service.FieldPassword, service.FieldConfirmPassword} {
		if !strings.Contains(string(body), `name="`+field+`"`) {
			t.Errorf("expected form field %s", field)
		}
	}
	if n := userCount(t, db); n != 0 {
		t.Fatalf("GET must not create users, got %d", n)
	}
}

func TestRegistration_GetNeverMutatesStorage(t *testing.T) {
	srv, db := newTestServer(t)

	if status, _ := postForm(t, srv, janeDoeForm()); status != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", status)
	}

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/")
		if err != nil {
			t.Fatalf("GET /: %v", err)
		}
		resp.Body.Close()
	}

	if n := userCount(t, db); n != 1 {
		t.Fatalf("expected 1 user after repeated GETs, got %d", n)
	}
}

func TestRegistration_SuccessThenDuplicate(t *testing.T) {
	srv, db := newTestServer(t)

	status, body := postForm(t, srv, janeDoeForm())
	if status != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", status)
	}
	if !strings.Contains(body, "Demo account created for Jane Doe (jane@example.com)!") {
		t.Fatalf("expected success message, got body:\n%s", body)
	}
	// Name and email are cleared for the next registration.
	if !strings.Contains(body, `name="full_name" value=""`) || !strings.Contains(body, `name="email" value=""`) {
		t.Fatal("expected cleared name and email after success")
	}
	if n := userCount(t, db); n != 1 {
		t.Fatalf("expected exactly 1 user, got %d", n)
	}

	status, body = postForm(t, srv, janeDoeForm())
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate: expected 422, got %d", status)
	}
	if !strings.Contains(body, service.MsgEmailTaken) {
		t.Fatalf("expected duplicate email error, got body:\n%s", body)
	}
	if strings.Contains(body, service.MsgEmailInvalid) {
		t.Fatal("duplicate email must not be reported as invalid")
	}
	if n := userCount(t, db); n != 1 {
		t.Fatalf("expected still 1 user, got %d", n)
	}
}

func TestRegistration_ValidationErrorsRedisplayInput(t *testing.T) {
	srv, db := newTestServer(t)

	form := url.Values{
		service.FieldFullName:        {"  Jane Doe "},
		service.FieldEmail:           {"not-an-email"},
		service.FieldPassword:        {"abcdefgh"},
		service.FieldConfirmPassword: {"Abcdefg2"},
	}
	status, body := postForm(t, srv, form)

	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	for _, msg := range []string{service.MsgEmailInvalid, service.MsgPasswordWeak, service.MsgPasswordMismatch} {
		if !strings.Contains(body, msg) {
			t.Errorf("expected message %q", msg)
		}
	}
	if strings.Contains(body, service.MsgEmailTaken) {
		t.Error("malformed email must not be reported as taken")
	}
	if !strings.Contains(body, `name="full_name" value="Jane Doe"`) {
		t.Error("expected trimmed name to be re-displayed")
	}
	if !strings.Contains(body, `name="email" value="not-an-email"`) {
		t.Error("expected email to be re-displayed")
	}
	if strings.Contains(body, "abcdefgh") || strings.Contains(body, "Abcdefg2") {
		t.Error("passwords must never be echoed back")
	}
	if n := userCount(t, db); n != 0 {
		t.Fatalf("expected no users, got %d", n)
	}
}

func TestRegistration_EmptyFields(t *testing.T) {
	srv, db := newTestServer(t)

	tests := []struct {
		field string
		msg   string
	}{
		{service.FieldFullName, service.MsgFullNameRequired},
		{service.FieldEmail, service.MsgEmailInvalid},
		{service.FieldPassword, service.MsgPasswordWeak},
		{service.FieldConfirmPassword, service.MsgPasswordMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			form := janeDoeForm()
			form.Set(tc.field, "")

			status, body := postForm(t, srv, form)
			if status != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", status)
			}
			if !strings.Contains(body, tc.msg) {
				t.Fatalf("expected %q in body", tc.msg)
			}
			if n := userCount(t, db); n != 0 {
				t.Fatalf("expected no users, got %d", n)
			}
		})
	}
}

func TestRegistration_DatastarSubmitPatchesCard(t *testing.T) {
	registrations, db := newTestServices(t)
	h := handler.New(registrations, db, "")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(janeDoeForm().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Datastar-Request", "true")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "datastar-patch-elements") {
		t.Fatalf("expected patch-elements event, got:\n%s", body)
	}
	if !strings.Contains(body, `id="register-card"`) {
		t.Fatal("expected patched element to be the register card")
	}
	if !strings.Contains(body, "Demo account created for Jane Doe (jane@example.com)!") {
		t.Fatal("expected success message in patch")
	}
	if strings.Contains(body, "<html") {
		t.Fatal("patch must contain only the card fragment")
	}
	if n := userCount(t, db); n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}
}

func TestRegistration_StorageFailureIsGenericError(t *testing.T) {
	srv, db := newTestServer(t)
	db.Close()

	status, body := postForm(t, srv, janeDoeForm())
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if !strings.Contains(body, "Something went wrong") {
		t.Fatal("expected generic error page")
	}
	if strings.Contains(body, "database") {
		t.Fatal("storage details must not leak to the client")
	}
}

func TestRegistration_DatastarStorageFailurePatchesErrorCard(t *testing.T) {
	registrations, db := newTestServices(t)
	h := handler.New(registrations, db, "")
	db.Close()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(janeDoeForm().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Datastar-Request", "true")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "datastar-patch-elements") {
		t.Fatalf("expected patch-elements event, got:\n%s", body)
	}
	if !strings.Contains(body, `id="register-card"`) {
		t.Fatal("expected the error card to replace the register card")
	}
	if !strings.Contains(body, "Something went wrong") {
		t.Fatal("expected generic error text in patch")
	}
	if strings.Contains(body, "<html") {
		t.Fatal("patch must contain only the card fragment")
	}
	if strings.Contains(body, "database") {
		t.Fatal("storage details must not leak to the client")
	}
}

func TestRegistration_StorageFailureLogsRequestID(t *testing.T) {
	logs := captureLogs(t)
	srv, db := newTestServer(t)
	db.Close()

	resp, err := http.PostForm(srv.URL+"/", janeDoeForm())
	if err != nil {
		t.Fatalf("POST /: %v", err)
	}
	resp.Body.Close()
	id := resp.Header.Get(handler.RequestIDHeader)
	if id == "" {
		t.Fatal("expected a request ID response header")
	}

	rec := findRecord(logs(), "register demo account")
	if rec == nil {
		t.Fatal("expected storage failure to be logged")
	}
	if rec["request_id"] != id {
		t.Fatalf("expected request_id %q on error log, got %v", id, rec["request_id"])
	}
	if rec["level"] != "ERROR" {
		t.Fatalf("expected ERROR level, got %v", rec["level"])
	}
}

func TestRegistration_OversizedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	form := janeDoeForm()
	form.Set(service.FieldFullName, strings.Repeat("x", 65<<10))

	status, _ := postForm(t, srv, form)
	if status != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", status)
	}
}

func TestRegistration_Routing(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
