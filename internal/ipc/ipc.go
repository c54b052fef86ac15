// Package ipc is the local control socket. One JSON request per
// connection, answered with one JSON reply.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/glados.sock"

// ControlMessage is a request from a local client. Cmd is "ask" (Text is
// the utterance) or "ping".
type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type ControlReply struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

type Server struct {
	ln net.Listener
}

// StartServer listens on path and serves every connection in its own
// goroutine until Close.
func StartServer(path string, handler func(ControlMessage) ControlReply) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if err != nil {
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return &Server{ln: ln}, nil
}

func (s *Server) Close() error {
	return s.ln.Close()
}

func handleConn(conn net.Conn, handler func(ControlMessage) ControlReply) {
	defer conn.Close()

	var msg ControlMessage
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&msg); err != nil {
		_ = json.NewEncoder(conn).Encode(ControlReply{Error: fmt.Sprintf("decode: %v", err)})
		return
	}
	_ = json.NewEncoder(conn).Encode(handler(msg))
}

// Send delivers one message to the daemon and waits up to timeout for the
// reply.
func Send(path string, msg ControlMessage, timeout time.Duration) (ControlReply, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return ControlReply{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return ControlReply{}, fmt.Errorf("send: %w", err)
	}

	var reply ControlReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return ControlReply{}, fmt.Errorf("read reply: %w", err)
	}
	if reply.Error != "" {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}
