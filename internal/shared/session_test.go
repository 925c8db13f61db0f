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

func newManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "test_session", time.Hour, false)
}

func TestAnonymousSessionNotPersisted(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), res, sess))

	// No cookie and no redis key until someone logs in.
	assert.Empty(t, res.Result().Cookies())
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("1", "pengurus", "3")

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), res, sess))
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, err := sm.Load(context.Background(), next)
	require.NoError(t, err)
	assert.Equal(t, "1", loaded.User())
	assert.Equal(t, "pengurus", loaded.Role())
	assert.Equal(t, "3", loaded.MemberID())
}

func TestSessionDestroy(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("1", "admin", "")

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), res, sess))
	cookie := res.Result().Cookies()[0]

	sm.Destroy(sess)
	res = httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), res, sess))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), next)
	require.NoError(t, err)
	assert.Empty(t, loaded.User())
}
