package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "worklist_session", "secret", time.Hour, false)
}

func TestSessionRoundTripKeepsValuesAndFlashes(t *testing.T) {
	ctx := context.Background()
	sm := newManager(t)

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("k", "v")
	sess.AddFlash(FlashMessage{Kind: FlashSuccess, Message: "Factura eliminada"})

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, nil, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, sess.ID, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.ID)
	require.Equal(t, "v", loaded.Get("k"))
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	require.Equal(t, "Factura eliminada", flash.Message)
	require.Nil(t, loaded.PopFlash())
}

func TestCSRFTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	sm := newManager(t)
	csrf := NewCSRFManager("csrf-secret")

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, csrf.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, "forged"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, csrf.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)

	_, err = csrf.EnsureToken(ctx, nil)
	require.ErrorIs(t, err, ErrSessionMissing)
}

func TestTokenFromRequestPrefersHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/invoices/typeahead", nil)
	req.Header.Set(CSRFHeader, "from-header")
	require.Equal(t, "from-header", TokenFromRequest(req))
}
