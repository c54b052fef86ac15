package protocol

import (
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"time"
)

type PtclConfig struct {
	Shard   string
	Url     string
	Reconn  uint
	Timeout time.Duration
	EmitOut func(*Message)
}

// Protocol speaks the colon-separated frame format of the device bus:
// TO:VERB:NOUN[:ARGS...]:FROM
type Protocol struct {
	ws *WebSocket

	shard string

	emitOut func(*Message)
}

func NewProtocol(cfg PtclConfig) (*Protocol, error) {
	ws, err := NewWebSocket(cfg.Url, cfg.Reconn, cfg.Timeout)
	if err != nil {
		log.Error("Failed to init ws connection", "url", cfg.Url)
		return nil, err
	}

	ptcl := &Protocol{
		shard:   cfg.Shard,
		ws:      ws,
		emitOut: cfg.EmitOut,
	}

	return ptcl, nil
}

func (ptcl *Protocol) Shard() string {
	return ptcl.shard
}

// Transmit writes one frame. FROM is always the local shard.
func (ptcl *Protocol) Transmit(m Message) error {
	m.From = ptcl.shard
	if err := m.Validate(); err != nil {
		return err
	}

	msg := m.String()
	err := ptcl.ws.Write([]byte(msg))
	if err != nil {
		log.Error("Failed to transmit", "msg", msg, "err", err)
	}
	return err
}

// Run reads frames addressed to this shard and hands them to EmitOut.
// It reconnects when the bus closes the connection and returns on Close.
func (ptcl *Protocol) Run() {
	for {
		in := ptcl.ws.Read()
		switch in.kind {
		case CONN_CLOSE:
			if ptcl.ws.Closed() {
				return
			}
			log.Warn("Trying to reconnect on", "url", ptcl.ws.url)
			ptcl.ws.TryReconn()
			log.Info("Succefully reconnected")

		case READ_FAILURE:
			if ptcl.ws.Closed() {
				return
			}
			log.Error("Failed to read", "err", in.err)

		case READ_OK:
			if !ptcl.checkRecipient(in.msg) {
				continue
			}

			msg, err := Parse(string(in.msg))
			if err != nil {
				log.Warn("Failed to parse", "msg", string(in.msg), "err", err)
				continue
			}

			if ptcl.emitOut != nil {
				ptcl.emitOut(msg)
			}
		}
	}
}

func (ptcl *Protocol) Close() error {
	return ptcl.ws.Close()
}

func (ptcl *Protocol) checkRecipient(msg []byte) bool {
	return strings.Split(string(msg), ":")[0] == ptcl.shard
}

// Parse reads one bus frame.
func Parse(line string) (*Message, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil, errors.New("empty message")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		// frames are single-line
		return nil, fmt.Errorf("invalid whitespace present")
	}
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return nil, fmt.Errorf("too few fields: got %d, want >= 4", len(parts))
	}

	msg := &Message{
		To:   parts[0],
		Verb: strings.ToUpper(parts[1]),
		Noun: strings.ToUpper(parts[2]),
		Args: append([]string(nil), parts[3:len(parts)-1]...),
		From: parts[len(parts)-1],
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

var (
	tokenRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	hexIDRe = regexp.MustCompile(`^[0-9A-F]{2}$`)
)

func isToken(s string) bool {
	return tokenRe.MatchString(s)
}

func isHexID(s string) bool {
	return hexIDRe.MatchString(strings.ToUpper(s))
}

type Message struct {
	To   string
	Verb string
	Noun string
	Args []string
	From string
}

// SetMessage addresses a directive to its device: <device>:SET:VALUE:<value>.
func SetMessage(d Directive) Message {
	return Message{
		To:   d.DeviceID,
		Verb: "SET",
		Noun: "VALUE",
		Args: []string{d.Value},
	}
}

func (m *Message) Validate() error {
	if !isToken(m.To) && !isHexID(m.To) && m.To != "ALL" {
		return fmt.Errorf("invalid TO token: %q", m.To)
	}
	if !isToken(m.From) && !isHexID(m.From) {
		return fmt.Errorf("invalid FROM token: %q", m.From)
	}
	if !isToken(m.Noun) || !isToken(m.Verb) {
		return fmt.Errorf("invalid NOUN/VERB: %q %q", m.Noun, m.Verb)
	}
	for i, a := range m.Args {
		if !isToken(a) {
			return fmt.Errorf("invalid ARG[%d]: %q", i, a)
		}
	}
	return nil
}

func (m *Message) String() string {
	parts := make([]string, 0, 4+len(m.Args))
	parts = append(parts, m.To)
	parts = append(parts, m.Verb)
	parts = append(parts, m.Noun)
	parts = append(parts, m.Args...)
	parts = append(parts, m.From)
	return strings.Join(parts, ":")
}

// Ok reports whether the frame is a positive acknowledgement.
func (m *Message) Ok() bool {
	return m.Verb == "OK"
}
