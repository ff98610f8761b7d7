package tcp

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/protocol"
	"github.com/dkeye/Parley/internal/store"
)

func startServer(t *testing.T) string {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)

	router := app.NewRouter(store.NewCredentials(db), store.NewRooms(db), store.NewMessages(db))
	srv, err := NewServer("127.0.0.1:0", router, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx) }()

	return srv.Addr().String()
}

type client struct {
	t    *testing.T
	conn net.Conn
	r    *protocol.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn, r: protocol.NewReader(conn, 1<<20)}
}

func (c *client) send(v map[string]any) {
	c.t.Helper()
	data, err := json.Marshal(v)
	require.NoError(c.t, err)
	_, err = c.conn.Write(append(data, '\n'))
	require.NoError(c.t, err)
}

func (c *client) recv() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frame, err := c.r.Next()
	require.NoError(c.t, err)
	var m map[string]any
	require.NoError(c.t, json.Unmarshal(frame, &m))
	return m
}

func (c *client) expect(msgType string) map[string]any {
	c.t.Helper()
	m := c.recv()
	require.Equal(c.t, msgType, m["type"])
	return m
}

func (c *client) loginAs(username string) {
	c.t.Helper()
	c.send(map[string]any{"type": "register", "username": username, "password": "pw"})
	c.expect(protocol.TypeRegisterResult)
	c.send(map[string]any{"type": "login", "username": username, "password": "pw"})
	c.expect(protocol.TypeLoginSuccess)
}

func TestEndToEndAliceAndBob(t *testing.T) {
	addr := startServer(t)

	alice := dial(t, addr)
	bob := dial(t, addr)
	alice.loginAs("alice")
	bob.loginAs("bob")

	alice.send(map[string]any{"type": "get_rooms"})
	rooms := alice.expect(protocol.TypeRoomsList)["rooms"].([]any)
	require.Len(t, rooms, 1)
	assert.Equal(t, "General", rooms[0].(map[string]any)["name"])

	alice.send(map[string]any{"type": "join_room", "room_id": 1})
	alice.expect(protocol.TypeRoomJoined)
	bob.send(map[string]any{"type": "join_room", "room_id": 1})
	bob.expect(protocol.TypeRoomJoined)

	alice.send(map[string]any{"type": "chat_message", "message": "hi"})

	got := alice.expect(protocol.TypeNewMessage)
	assert.Equal(t, "alice", got["username"])
	assert.Equal(t, "hi", got["message"])
	assert.Equal(t, "text", got["message_type"])

	bobGot := bob.expect(protocol.TypeNewMessage)
	assert.Equal(t, got["timestamp"], bobGot["timestamp"])
	assert.Equal(t, "hi", bobGot["message"])

	// Bob answers; both observe hi before the reply.
	bob.send(map[string]any{"type": "chat_message", "message": "hello back"})
	assert.Equal(t, "bob", alice.expect(protocol.TypeNewMessage)["username"])
	assert.Equal(t, "bob", bob.expect(protocol.TypeNewMessage)["username"])

	// History replays the room oldest-first.
	bob.send(map[string]any{"type": "get_history", "room_id": 1})
	data := bob.expect(protocol.TypeHistory)["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "hi", data[0].(map[string]any)["message"])
	assert.Equal(t, "hello back", data[1].(map[string]any)["message"])
}

func TestMalformedFrameDropsConnection(t *testing.T) {
	addr := startServer(t)

	mallory := dial(t, addr)
	other := dial(t, addr)

	_, err := mallory.conn.Write([]byte("this is not json\n"))
	require.NoError(t, err)

	require.NoError(t, mallory.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = mallory.r.Next()
	assert.ErrorIs(t, err, io.EOF)

	// A bad peer never takes the listener down with it.
	other.loginAs("carol")
}

func TestPeerDisconnectLeavesRoomUsable(t *testing.T) {
	addr := startServer(t)

	alice := dial(t, addr)
	bob := dial(t, addr)
	alice.loginAs("alice")
	bob.loginAs("bob")

	alice.send(map[string]any{"type": "join_room", "room_id": 1})
	alice.expect(protocol.TypeRoomJoined)
	bob.send(map[string]any{"type": "join_room", "room_id": 1})
	bob.expect(protocol.TypeRoomJoined)

	require.NoError(t, bob.conn.Close())

	// Broadcast to the shrunken room still succeeds for the rest.
	alice.send(map[string]any{"type": "chat_message", "message": "anyone?"})
	got := alice.expect(protocol.TypeNewMessage)
	assert.Equal(t, "anyone?", got["message"])
}

func TestRequestsFromOneConnectionStayOrdered(t *testing.T) {
	addr := startServer(t)

	alice := dial(t, addr)
	alice.loginAs("alice")

	// Pipeline several requests in one write: responses must come back
	// in request order.
	alice.send(map[string]any{"type": "create_room", "name": "side", "description": ""})
	alice.send(map[string]any{"type": "join_room", "room_id": 2})
	alice.send(map[string]any{"type": "chat_message", "message": "first"})

	alice.expect(protocol.TypeRoomCreated)
	alice.expect(protocol.TypeRoomJoined)
	assert.Equal(t, "first", alice.expect(protocol.TypeNewMessage)["message"])
}
