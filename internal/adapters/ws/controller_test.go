package ws

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/protocol"
	"github.com/dkeye/Parley/internal/store"
)

func dialBridge(t *testing.T) *websocket.Conn {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	router := app.NewRouter(store.NewCredentials(db), store.NewRooms(db), store.NewMessages(db))

	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(SetupRouter("release", NewController(router, Options{})))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req map[string]any) map[string]any {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestBridgeSpeaksSameEnvelopes(t *testing.T) {
	conn := dialBridge(t)

	res := roundTrip(t, conn, map[string]any{"type": "register", "username": "alice", "password": "pw"})
	assert.Equal(t, protocol.TypeRegisterResult, res["type"])
	assert.Equal(t, true, res["success"])

	res = roundTrip(t, conn, map[string]any{"type": "login", "username": "alice", "password": "pw"})
	assert.Equal(t, protocol.TypeLoginSuccess, res["type"])

	res = roundTrip(t, conn, map[string]any{"type": "join_room", "room_id": 1})
	assert.Equal(t, protocol.TypeRoomJoined, res["type"])

	// The sender gets its own broadcast back, same as over TCP.
	res = roundTrip(t, conn, map[string]any{"type": "chat_message", "message": "hi from the browser"})
	assert.Equal(t, protocol.TypeNewMessage, res["type"])
	assert.Equal(t, "alice", res["username"])
	assert.Equal(t, "hi from the browser", res["message"])
}

func TestBridgeDropsMalformedFrames(t *testing.T) {
	conn := dialBridge(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
