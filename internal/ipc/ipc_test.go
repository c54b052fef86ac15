package ipc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glados.sock")

	srv, err := StartServer(path, func(msg ControlMessage) ControlReply {
		switch msg.Cmd {
		case "ping":
			return ControlReply{Text: "pong"}
		case "ask":
			return ControlReply{Text: "ответ на " + msg.Text}
		default:
			return ControlReply{Error: "unknown command"}
		}
	})
	require.NoError(t, err)
	defer srv.Close()

	reply, err := Send(path, ControlMessage{Cmd: "ping"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pong", reply.Text)

	reply, err = Send(path, ControlMessage{Cmd: "ask", Text: "привет"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ответ на привет", reply.Text)

	_, err = Send(path, ControlMessage{Cmd: "reboot"}, time.Second)
	assert.EqualError(t, err, "unknown command")
}

func TestSendWithoutDaemon(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "missing.sock"), ControlMessage{Cmd: "ping"}, time.Second)
	assert.Error(t, err)
}
