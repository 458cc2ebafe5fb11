package client

import (
	"bufio"
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyrcon/rconctl/protocol"
)

const redactedAuthLabel = "AUTH <redacted>"

// hyrconSession speaks the line-oriented Hyrcon dialect. Its lifecycle is
// greeting parse at connect, then single command/response cycles until a
// BYE status line or a fatal error marks it closed.
type hyrconSession struct {
	io     deadlineIO
	reader *bufio.Reader
	writer *bufio.Writer
	log    *zap.Logger
	closed bool
}

func connectHyrcon(ctx context.Context, addr string, opts Options) (*hyrconSession, protocol.Greeting, error) {
	conn, err := dial(ctx, addr, opts.Timeout)
	if err != nil {
		return nil, protocol.Greeting{}, err
	}

	session := &hyrconSession{
		io:     deadlineIO{conn: conn, timeout: opts.Timeout},
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		log:    opts.Log,
	}

	lines, err := session.io.readBlock(ctx, session.reader, "reading greeting block")
	if err != nil {
		conn.Close()
		return nil, protocol.Greeting{}, err
	}

	greeting, err := protocol.ParseGreeting(lines)
	if err != nil {
		conn.Close()
		return nil, protocol.Greeting{}, violation(err)
	}

	session.log.Debug("Parsed server greeting",
		zap.String("banner", greeting.Banner),
		zap.Stringer("authMode", greeting.AuthMode))

	return session, greeting, nil
}

func (h *hyrconSession) IsClosed() bool {
	return h.closed
}

func (h *hyrconSession) Authenticate(ctx context.Context, password string) (protocol.AuthOutcome, error) {
	if h.closed {
		return protocol.AuthFailure, ErrSessionClosed
	}

	if strings.ContainsAny(password, "\r\n") {
		return protocol.AuthFailure, ErrForbiddenInput
	}

	if err := h.writeLine(ctx, "AUTH "+password, redactedAuthLabel); err != nil {
		return protocol.AuthFailure, err
	}

	block, err := h.io.readBlock(ctx, h.reader, "reading authentication response")
	if err != nil {
		return protocol.AuthFailure, err
	}

	if len(block) == 0 {
		return protocol.AuthFailure, violationf("Server returned an empty block for the AUTH response")
	}

	switch block[0] {
	case "AUTH OK":
		return protocol.AuthSuccess, nil

	case "AUTH FAIL":
		return protocol.AuthFailure, nil

	default:
		return protocol.AuthFailure, violationf("Unexpected auth response '%s'", block[0])
	}
}

func (h *hyrconSession) SendCommand(ctx context.Context, command string) (protocol.CommandOutcome, error) {
	if h.closed {
		return protocol.CommandOutcome{}, ErrSessionClosed
	}

	if strings.TrimSpace(command) == "" {
		return protocol.CommandOutcome{}, ErrEmptyCommand
	}

	if strings.ContainsAny(command, "\r\n") {
		return protocol.CommandOutcome{}, ErrForbiddenInput
	}

	if err := h.writeLine(ctx, command, command); err != nil {
		return protocol.CommandOutcome{}, err
	}

	block, err := h.io.readBlock(ctx, h.reader, "reading command response")
	if err != nil {
		return protocol.CommandOutcome{}, err
	}

	outcome, err := protocol.ParseCommandBlock(block)
	if err != nil {
		return protocol.CommandOutcome{}, violation(err)
	}

	if outcome.Bye {
		h.closed = true
	}

	return outcome, nil
}

// Quit sends the QUIT command and expects the server to answer BYE. A
// regular response in its place is itself a protocol violation, though the
// session is marked closed either way.
func (h *hyrconSession) Quit(ctx context.Context) error {
	if h.closed {
		return nil
	}

	outcome, err := h.SendCommand(ctx, "QUIT")
	if err != nil {
		return err
	}

	if !outcome.Bye {
		h.closed = true
		return violationf("Unexpected payload in QUIT response")
	}

	return nil
}

func (h *hyrconSession) writeLine(ctx context.Context, line, label string) error {
	h.log.Debug("Sending line", zap.String("line", label))

	op := "writing '" + label + "' to socket"
	if err := h.io.write(ctx, h.writer, []byte(line+"\n"), op); err != nil {
		return err
	}

	return h.io.flush(ctx, h.writer, "flushing '"+label+"' to socket")
}
