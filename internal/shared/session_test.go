package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "stayboard_session", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionPersistsUserAndFlash(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("42")
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Signed in"})
	cookie := roundTrip(t, sm, sess)
	assert.True(t, mr.Exists(sessionKeyPrefix+cookie.Value))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "42", loaded.User())
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Signed in", flash.Message)
	assert.Nil(t, loaded.PopFlash())
}

func TestUntouchedSessionIsNotStored(t *testing.T) {
	sm, mr := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, sess))
	assert.Empty(t, rr.Result().Cookies())
	assert.Empty(t, mr.Keys())
}

func TestRenewDropsPreviousKey(t *testing.T) {
	sm, mr := newTestManager(t)
	sess, _ := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	sess.Set("k", "v")
	first := roundTrip(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(first)
	loaded, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sm.Renew(loaded)
	second := roundTrip(t, sm, loaded)

	assert.NotEqual(t, first.Value, second.Value)
	assert.False(t, mr.Exists(sessionKeyPrefix+first.Value))
	assert.True(t, mr.Exists(sessionKeyPrefix+second.Value))
}

func TestDestroyClearsCookie(t *testing.T) {
	sm, mr := newTestManager(t)
	sess, _ := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	sess.SetUser("7")
	cookie := roundTrip(t, sm, sess)

	sm.Destroy(sess)
	cleared := roundTrip(t, sm, sess)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.False(t, mr.Exists(sessionKeyPrefix+cookie.Value))
}

func TestLoadIgnoresForeignCookie(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "stayboard_session", Value: "../../etc"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "../../etc", sess.ID)
}

func TestCSRFTokenLifecycle(t *testing.T) {
	csrf := NewCSRFManager("secret")
	sess := newSession()

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	again, _ := csrf.EnsureToken(context.Background(), sess)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), nil, token), ErrCSRFTokenMissing)

	_, err = csrf.EnsureToken(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionMissing)
}
