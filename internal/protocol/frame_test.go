package protocol

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderSplitsCoalescedFrames(t *testing.T) {
	// Two envelopes arriving in one read.
	stream := bytes.NewBufferString(`{"type":"get_rooms"}` + "\n" + `{"type":"login","username":"alice"}` + "\n")
	r := NewReader(stream, 1024)

	first, err := r.Next()
	require.NoError(t, err)
	msgType, err := PeekType(first)
	require.NoError(t, err)
	assert.Equal(t, TypeGetRooms, msgType)

	second, err := r.Next()
	require.NoError(t, err)
	msgType, err = PeekType(second)
	require.NoError(t, err)
	assert.Equal(t, TypeLogin, msgType)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderAccumulatesPartialReads(t *testing.T) {
	// One byte per read call: the frame must still come out whole.
	stream := iotest.OneByteReader(bytes.NewBufferString(`{"type":"chat_message","message":"hi"}` + "\n"))
	r := NewReader(stream, 1024)

	frame, err := r.Next()
	require.NoError(t, err)

	var req ChatMessageRequest
	require.NoError(t, Decode(frame, &req))
	assert.Equal(t, "hi", req.Message)
}

func TestReaderSkipsBlankLines(t *testing.T) {
	stream := bytes.NewBufferString("\n\n" + `{"type":"get_rooms"}` + "\n\n")
	r := NewReader(stream, 1024)

	frame, err := r.Next()
	require.NoError(t, err)
	assert.NotEmpty(t, frame)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderRejectsOversizedFrame(t *testing.T) {
	big := append(bytes.Repeat([]byte("x"), 2048), '\n')
	r := NewReader(bytes.NewBuffer(big), 64)

	_, err := r.Next()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	first, err := Encode(NewRoomJoined(7))
	require.NoError(t, err)
	second, err := Encode(NewError("room_not_found"))
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(first))
	require.NoError(t, w.WriteFrame(second))

	r := NewReader(&buf, 1024)

	frame, err := r.Next()
	require.NoError(t, err)
	var joined RoomJoined
	require.NoError(t, Decode(frame, &joined))
	assert.Equal(t, TypeRoomJoined, joined.Type)
	assert.Equal(t, int64(7), joined.RoomID)

	frame, err = r.Next()
	require.NoError(t, err)
	var errResp ErrorResponse
	require.NoError(t, Decode(frame, &errResp))
	assert.Equal(t, "room_not_found", errResp.Error)
}

func TestPeekTypeMalformed(t *testing.T) {
	_, err := PeekType([]byte(`{"type":`))
	assert.Error(t, err)
}
