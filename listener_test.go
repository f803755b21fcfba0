package nodebrain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func TestListenerAddAutoAssignsUUID(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	require.NoError(t, e.Start(ctx))
	defer e.Stop(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		id, err := e.ListenerAddAuto(conn)
		require.NoError(t, err)
		assert.True(t, strings.Count(id, "-") == 4, "expected a UUID-shaped id, got %q", id)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	time.Sleep(20 * time.Millisecond)
}

func TestListenerDispatchesCmd(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	require.NoError(t, e.Start(ctx))
	e.CellCreateString(ctx, "welcome", "hi")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		require.NoError(t, e.ListenerAdd("test-conn", conn))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, e.ListenerStart(ctx))
	defer e.Stop(ctx)

	body, err := json.Marshal(listenerCmd{Line: "show cells"})
	require.NoError(t, err)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, body))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)

	var reply listenerReply
	require.NoError(t, json.Unmarshal(payload, &reply))
	assert.Empty(t, reply.Error)
	assert.Contains(t, reply.Result, "welcome")
}
