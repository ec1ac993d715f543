package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/nhle/docflow/internal/model"
)

func dialFeed(t *testing.T, ctx context.Context, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/admin/feed?" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) model.PushMessage {
	t.Helper()
	var msg model.PushMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func TestFeedStreamsTenantActivities(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.PingInterval = time.Hour })
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialFeed(t, ctx, ts, "token="+env.token(t, "acme", model.RoleUser))
	assert.Equal(t, model.MessageReady, readMessage(t, ctx, conn).Type)

	// Another tenant's activity must not arrive.
	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/api/admin/activities",
		token:  env.token(t, "globex", model.RoleUser),
		body:   map[string]any{"type": "upload"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, request{
		method: http.MethodPost,
		path:   "/api/admin/activities",
		token:  env.token(t, "acme", model.RoleUser),
		body:   map[string]any{"type": "ocr_completed", "details": map[string]any{"confidence": 0.97}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[model.Activity](t, rec)

	msg := readMessage(t, ctx, conn)
	require.Equal(t, model.MessageEvent, msg.Type)
	var got model.Activity
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "acme", got.TenantID)

	require.NoError(t, wsjson.Write(ctx, conn, model.PushMessage{Type: model.MessagePing}))
	assert.Equal(t, model.MessagePong, readMessage(t, ctx, conn).Type)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return env.hub.Subscribers("acme") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFeedSendsKeepalivePings(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.PingInterval = 20 * time.Millisecond })
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialFeed(t, ctx, ts, "token="+env.token(t, "acme", model.RoleUser))
	assert.Equal(t, model.MessageReady, readMessage(t, ctx, conn).Type)
	assert.Equal(t, model.MessagePing, readMessage(t, ctx, conn).Type)
}

func TestFeedIgnoresMalformedClientMessages(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.PingInterval = time.Hour })
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialFeed(t, ctx, ts, "token="+env.token(t, "acme", model.RoleUser))
	readMessage(t, ctx, conn)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{garbage")))
	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"type": "subscribe"}))
	require.NoError(t, wsjson.Write(ctx, conn, model.PushMessage{Type: model.MessagePing}))
	assert.Equal(t, model.MessagePong, readMessage(t, ctx, conn).Type)
}

func TestFeedRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/admin/feed"
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestShutdownClosesFeeds(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.PingInterval = time.Hour })
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialFeed(t, ctx, ts, "token="+env.token(t, "acme", model.RoleUser))
	readMessage(t, ctx, conn)

	env.srv.stopFeeds()

	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
