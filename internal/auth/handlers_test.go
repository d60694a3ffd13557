package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairshop/internal/api"
	"repairshop/internal/personnel"
	"repairshop/internal/personnel/personneltest"
	"repairshop/pkg/mailer"
)

type nopMailer struct{ sent []mailer.Message }

func (m *nopMailer) Send(ctx context.Context, msg mailer.Message) (string, error) {
	m.sent = append(m.sent, msg)
	return "<id@test>", nil
}

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type env struct {
	store  *personneltest.MemStore
	svc    *personnel.Service
	router chi.Router
}

func newEnv() *env {
	store := personneltest.New()
	svc := &personnel.Service{Store: store, Mailer: &nopMailer{}, Now: func() time.Time { return fixedNow }}
	signer := Signer{Secret: "s3cret", Issuer: "repairshop", TTL: time.Hour}
	h := Handlers{Staff: svc, Signer: signer, Now: func() time.Time { return fixedNow }}

	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	r.Post("/auth/password-reset", h.ResetPassword)
	r.Group(func(r chi.Router) {
		r.Use(api.StaffAuth(Resolver(signer, store, func() time.Time { return fixedNow })))
		r.Get("/auth/me", h.Me)
		r.With(api.RequireRole(string(personnel.RoleEncargado))).Get("/admin/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return &env{store: store, svc: svc, router: r}
}

func (e *env) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/auth/login", `{"correo":"`+email+`","clave":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestLoginAndSession(t *testing.T) {
	e := newEnv()
	e.store.Seed("ana@leselec.com", "Ana", personnel.RoleEncargado, true, "secreto-123")

	token := e.login(t, "Ana@leselec.com", "secreto-123")

	rec := e.do(http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"rol":"encargado"`)
	assert.Contains(t, rec.Body.String(), `"nombre_completo":"Ana"`)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodGet, "/admin/ping", "", token).Code)
}

func TestLogin_Failures(t *testing.T) {
	e := newEnv()
	e.store.Seed("ana@leselec.com", "Ana", personnel.RoleEncargado, true, "secreto-123")

	rec := e.do(http.MethodPost, "/auth/login", `{"correo":"ana@leselec.com","clave":"mal"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Credenciales inválidas")

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/auth/login", `{"correo":"ana@leselec.com"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/auth/login", `{`, "").Code)
}

func TestSession_Rejections(t *testing.T) {
	e := newEnv()
	e.store.Seed("ventas@leselec.com", "Vero", personnel.RoleVentas, true, "secreto-123")
	token := e.login(t, "ventas@leselec.com", "secreto-123")

	rec := e.do(http.MethodGet, "/admin/ping", "", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "No autorizado")

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/auth/me", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/auth/me", "", "garbage").Code)

	_, err := e.svc.Save(context.Background(), personnel.SaveInput{
		Email: "ventas@leselec.com", FullName: "Vero", Role: "ventas", Active: new(bool),
	})
	require.NoError(t, err)
	rec = e.do(http.MethodGet, "/auth/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "deactivated accounts lose their session")
	assert.Contains(t, rec.Body.String(), "STAFF_INACTIVE")
}

func TestPasswordReset(t *testing.T) {
	e := newEnv()
	st := e.store.Seed("eva@leselec.com", "Eva", personnel.RoleTaller, true, "")
	require.NoError(t, e.svc.SendReset(context.Background(), "jefe@leselec.com", st.Email))
	token := e.store.Resets(st.ID)[0].Token

	rec := e.do(http.MethodPost, "/auth/password-reset", `{"token":"`+token+`","clave":"nueva-clave-1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e.login(t, "eva@leselec.com", "nueva-clave-1")

	rec = e.do(http.MethodPost, "/auth/password-reset", `{"token":"`+token+`","clave":"nueva-clave-2"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
