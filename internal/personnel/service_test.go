package personnel_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairshop/internal/api"
	"repairshop/internal/audit"
	"repairshop/internal/personnel"
	"repairshop/internal/personnel/personneltest"
	"repairshop/pkg/mailer"
)

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "<id@test>", nil
}

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newService() (*personnel.Service, *personneltest.MemStore, *fakeMailer) {
	store := personneltest.New()
	mail := &fakeMailer{}
	return &personnel.Service{
		Store:    store,
		Mailer:   mail,
		BaseURL:  "https://leselec.example/",
		ResetTTL: 24 * time.Hour,
		Now:      func() time.Time { return now },
	}, store, mail
}

func boolPtr(b bool) *bool { return &b }

func TestSave_Validation(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, err := svc.Save(ctx, personnel.SaveInput{Email: "a@b.com", Role: "ventas"})
	require.ErrorIs(t, err, personnel.ErrIncomplete)

	_, err = svc.Save(ctx, personnel.SaveInput{Email: "a@b.com", FullName: "Ana", Role: "gerente"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rol inválido")

	_, err = svc.Save(ctx, personnel.SaveInput{Email: "a@b.com", FullName: "Ana", Role: "ventas", TempPassword: "corta"})
	require.ErrorIs(t, err, personnel.ErrWeakPassword)
}

func TestSave_UpsertsByEmailAndHashesPassword(t *testing.T) {
	svc, _, mail := newService()
	ctx := context.Background()

	st, err := svc.Save(ctx, personnel.SaveInput{
		Email: "  Ana@Leselec.com ", FullName: "Ana Gómez", Role: "Taller", TempPassword: "temporal123",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@leselec.com", st.Email)
	assert.Equal(t, personnel.RoleTaller, st.Role)
	assert.True(t, st.Active)
	assert.NotEqual(t, "temporal123", st.PasswordHash)
	assert.True(t, personnel.CheckPassword(st.PasswordHash, "temporal123"))
	assert.Empty(t, mail.sent)

	again, err := svc.Save(ctx, personnel.SaveInput{
		Email: "ana@leselec.com", FullName: "Ana Gómez", Role: "ventas", Active: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, st.ID, again.ID)
	assert.Equal(t, personnel.RoleVentas, again.Role)
	assert.False(t, again.Active)
	assert.True(t, personnel.CheckPassword(again.PasswordHash, "temporal123"), "empty password keeps the stored hash")

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSave_SendReset(t *testing.T) {
	svc, store, mail := newService()
	st, err := svc.Save(context.Background(), personnel.SaveInput{
		Email: "luis@leselec.com", FullName: "Luis", Role: "ventas", SendReset: true,
	})
	require.NoError(t, err)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "luis@leselec.com", mail.sent[0].To)
	assert.Contains(t, mail.sent[0].HTML, "https://leselec.example/reset-password?token=")

	resets := store.Resets(st.ID)
	require.Len(t, resets, 1)
	assert.Equal(t, now.Add(24*time.Hour), resets[0].ExpiresAt)
	assert.Contains(t, mail.sent[0].Text, url.QueryEscape(resets[0].Token))
}

func TestSendReset_MailFailure(t *testing.T) {
	svc, store, mail := newService()
	store.Seed("luis@leselec.com", "Luis", personnel.RoleVentas, true, "")
	mail.err = errors.New("smtp down")

	err := svc.SendReset(context.Background(), "jefe@leselec.com", "luis@leselec.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")

	require.ErrorIs(t, svc.SendReset(context.Background(), "jefe@leselec.com", " "), personnel.ErrEmailRequired)
	require.ErrorIs(t, svc.SendReset(context.Background(), "jefe@leselec.com", "nadie@x.com"), personnel.ErrNotFound)
}

func TestResetPassword(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	st := store.Seed("luis@leselec.com", "Luis", personnel.RoleVentas, true, "")
	require.NoError(t, svc.SendReset(ctx, "jefe@leselec.com", st.Email))
	token := store.Resets(st.ID)[0].Token

	require.ErrorIs(t, svc.ResetPassword(ctx, token, "123"), personnel.ErrWeakPassword)
	require.NoError(t, svc.ResetPassword(ctx, token, "nueva-clave-1"))

	got, err := svc.Authenticate(ctx, "LUIS@leselec.com", "nueva-clave-1")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	require.ErrorIs(t, svc.ResetPassword(ctx, token, "otra-clave-22"), personnel.ErrResetInvalid, "tokens are single use")
	require.ErrorIs(t, svc.ResetPassword(ctx, "", "otra-clave-22"), personnel.ErrResetInvalid)
}

func TestResetPassword_Expired(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	st := store.Seed("luis@leselec.com", "Luis", personnel.RoleVentas, true, "")
	require.NoError(t, svc.SendReset(ctx, "jefe@leselec.com", st.Email))
	token := store.Resets(st.ID)[0].Token

	svc.Now = func() time.Time { return now.Add(25 * time.Hour) }
	require.ErrorIs(t, svc.ResetPassword(ctx, token, "nueva-clave-1"), personnel.ErrResetInvalid)
}

func TestResetPassword_FailedWriteKeepsTokenUsable(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	st := store.Seed("luis@leselec.com", "Luis", personnel.RoleVentas, true, "vieja-clave-1")
	require.NoError(t, svc.SendReset(ctx, "jefe@leselec.com", st.Email))
	token := store.Resets(st.ID)[0].Token

	store.FailPasswordWrite = true
	require.ErrorIs(t, svc.ResetPassword(ctx, token, "nueva-clave-1"), personneltest.ErrInjected)
	store.FailPasswordWrite = false

	assert.Nil(t, store.Resets(st.ID)[0].UsedAt)
	_, err := svc.Authenticate(ctx, st.Email, "vieja-clave-1")
	require.NoError(t, err, "the old password still works")

	require.NoError(t, svc.ResetPassword(ctx, token, "nueva-clave-1"))
	_, err = svc.Authenticate(ctx, st.Email, "nueva-clave-1")
	require.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	store.Seed("ana@leselec.com", "Ana", personnel.RoleEncargado, true, "secreto-123")
	store.Seed("baja@leselec.com", "Baja", personnel.RoleVentas, false, "secreto-123")
	store.Seed("sinclave@leselec.com", "Sin Clave", personnel.RoleVentas, true, "")

	_, err := svc.Authenticate(ctx, "ana@leselec.com", "secreto-123")
	require.NoError(t, err)

	for _, tc := range []struct{ email, pass string }{
		{"ana@leselec.com", "otra"},
		{"baja@leselec.com", "secreto-123"},
		{"sinclave@leselec.com", ""},
		{"nadie@leselec.com", "secreto-123"},
	} {
		_, err := svc.Authenticate(ctx, tc.email, tc.pass)
		assert.ErrorIs(t, err, personnel.ErrBadCredentials, tc.email)
	}
}

func TestDelete_Guards(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	store.Seed("jefe@leselec.com", "Jefe", personnel.RoleEncargado, true, "")
	store.Seed("inactivo@leselec.com", "Ex Jefe", personnel.RoleEncargado, false, "")
	store.Seed("ventas@leselec.com", "Vendedor", personnel.RoleVentas, true, "")

	require.ErrorIs(t, svc.Delete(ctx, "Jefe@leselec.com", "jefe@leselec.com"), personnel.ErrSelfDelete)
	require.ErrorIs(t, svc.Delete(ctx, "ventas@leselec.com", "jefe@leselec.com"), personnel.ErrLastManager)
	require.ErrorIs(t, svc.Delete(ctx, "jefe@leselec.com", ""), personnel.ErrEmailRequired)

	require.NoError(t, svc.Delete(ctx, "jefe@leselec.com", "inactivo@leselec.com"))
	require.NoError(t, svc.Delete(ctx, "jefe@leselec.com", "ventas@leselec.com"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "jefe@leselec.com", list[0].Email)
}

func TestDelete_SecondManagerCanBeRemoved(t *testing.T) {
	svc, store, _ := newService()
	store.Seed("uno@leselec.com", "Uno", personnel.RoleEncargado, true, "")
	store.Seed("dos@leselec.com", "Dos", personnel.RoleEncargado, true, "")

	require.NoError(t, svc.Delete(context.Background(), "uno@leselec.com", "dos@leselec.com"))
}

func TestHandlers(t *testing.T) {
	svc, store, mail := newService()
	store.Seed("jefe@leselec.com", "Jefe", personnel.RoleEncargado, true, "")
	h := personnel.Handlers{Service: svc}

	call := func(fn http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/admin/users", strings.NewReader(body))
		req = req.WithContext(api.WithSession(req.Context(), &api.Session{Email: "jefe@leselec.com", Role: "encargado"}))
		rec := httptest.NewRecorder()
		fn(rec, req)
		return rec
	}

	rec := call(h.Save, http.MethodPost, `{"correo":"eva@leselec.com","nombre_completo":"Eva","rol":"taller","claveTemporal":"temporal-99"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"ok":true`)
	assert.Contains(t, rec.Body.String(), `"correo":"eva@leselec.com"`)
	assert.NotContains(t, rec.Body.String(), "temporal-99")

	rec = call(h.Save, http.MethodPost, `{"correo":"eva@leselec.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Datos incompletos")

	rec = call(h.List, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"users":[`)
	assert.Less(t, strings.Index(rec.Body.String(), "Eva"), strings.Index(rec.Body.String(), "Jefe"))

	rec = call(h.SendReset, http.MethodPatch, `{"correo":"eva@leselec.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, mail.sent, 1)

	rec = call(h.Delete, http.MethodDelete, `{"correo":"jefe@leselec.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No puedes eliminar tu propia cuenta")

	rec = call(h.Delete, http.MethodDelete, `{"correo":"eva@leselec.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(h.Delete, http.MethodDelete, `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type recordingAuditor struct {
	entries []audit.Entry
	err     error
}

func (a *recordingAuditor) Log(ctx context.Context, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return a.err
}

func TestAuditTrail(t *testing.T) {
	svc, store, _ := newService()
	rec := &recordingAuditor{}
	svc.Audit = rec
	ctx := context.Background()
	store.Seed("jefe@leselec.com", "Jefe", personnel.RoleEncargado, true, "")

	_, err := svc.Save(ctx, personnel.SaveInput{
		Actor: "jefe@leselec.com", Email: "eva@leselec.com", FullName: "Eva", Role: "taller", SendReset: true,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "jefe@leselec.com", "eva@leselec.com"))

	require.Len(t, rec.entries, 3)
	assert.Equal(t, audit.ActionStaffSaved, rec.entries[0].Action)
	assert.Equal(t, "eva@leselec.com", rec.entries[0].Target)
	assert.Equal(t, audit.ActionResetIssued, rec.entries[1].Action)
	assert.Equal(t, audit.ActionStaffDeleted, rec.entries[2].Action)
	for _, e := range rec.entries {
		assert.Equal(t, "jefe@leselec.com", e.Actor)
	}

	rec.err = errors.New("db down")
	_, err = svc.Save(ctx, personnel.SaveInput{Email: "eva@leselec.com", FullName: "Eva", Role: "taller"})
	require.NoError(t, err, "audit failures do not fail the change")
}
