package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hyrcon/rconctl/protocol"
)

// sourceSession speaks the binary Source RCON dialect. The wire protocol
// sends no greeting and requires a successful AUTH exchange before it will
// execute commands.
type sourceSession struct {
	io     deadlineIO
	reader *bufio.Reader
	writer *bufio.Writer
	log    *zap.Logger

	nextID uint32
	authed bool
	closed bool
}

func connectSource(ctx context.Context, addr string, opts Options) (*sourceSession, error) {
	conn, err := dial(ctx, addr, opts.Timeout)
	if err != nil {
		return nil, err
	}

	return &sourceSession{
		io:     deadlineIO{conn: conn, timeout: opts.Timeout},
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		log:    opts.Log,
		nextID: 1,
	}, nil
}

func (s *sourceSession) IsClosed() bool {
	return s.closed
}

// nextRequestID hands out session-unique request ids. The counter wraps
// around instead of overflowing; -1 is never produced because the counter
// starts at 1 and an id is consumed per outbound packet only.
func (s *sourceSession) nextRequestID() int32 {
	id := int32(s.nextID)
	s.nextID++
	return id
}

func (s *sourceSession) Authenticate(ctx context.Context, password string) (protocol.AuthOutcome, error) {
	if s.closed {
		return protocol.AuthFailure, ErrSessionClosed
	}

	if strings.ContainsAny(password, "\r\n\x00") {
		return protocol.AuthFailure, ErrForbiddenInput
	}

	authID := s.nextRequestID()
	if err := s.writePacket(ctx, authID, protocol.KindAuth, password, redactedAuthLabel); err != nil {
		return protocol.AuthFailure, err
	}

	// Only a decisive auth response ends this loop. Some servers emit an
	// empty response-value packet before the real answer.
	for {
		packet, err := s.readPacket(ctx, "reading authentication response")
		if err != nil {
			return protocol.AuthFailure, err
		}

		switch packet.Kind {
		case protocol.KindResponseValue:
			continue

		case protocol.KindAuthResponse:
			switch packet.ID {
			case authID:
				s.authed = true
				return protocol.AuthSuccess, nil

			case -1:
				s.authed = false
				return protocol.AuthFailure, nil

			default:
				s.log.Debug("Received unexpected auth response identifier",
					zap.Int32("responseID", packet.ID),
					zap.Int32("expectedID", authID))
			}

		default:
			s.log.Debug("Ignoring unexpected packet while authenticating",
				zap.Int32("packetID", packet.ID),
				zap.Int32("packetKind", packet.Kind))
		}
	}
}

func (s *sourceSession) SendCommand(ctx context.Context, command string) (protocol.CommandOutcome, error) {
	if s.closed {
		return protocol.CommandOutcome{}, ErrSessionClosed
	}

	if !s.authed {
		return protocol.CommandOutcome{}, ErrNotAuthenticated
	}

	if strings.TrimSpace(command) == "" {
		return protocol.CommandOutcome{}, ErrEmptyCommand
	}

	if strings.ContainsAny(command, "\r\n\x00") {
		return protocol.CommandOutcome{}, ErrForbiddenInput
	}

	commandID := s.nextRequestID()
	s.log.Debug("Sending command", zap.Int32("requestID", commandID), zap.String("command", command))

	if err := s.writePacket(ctx, commandID, protocol.KindExecCommand, command, command); err != nil {
		return protocol.CommandOutcome{}, err
	}

	// The protocol has no end-of-response marker, so a second, empty
	// exec packet is sent right behind the command. Its echoed reply
	// delimits the (possibly multi-packet) response. The two writes must
	// not be reordered.
	sentinelID := s.nextRequestID()
	if err := s.writePacket(ctx, sentinelID, protocol.KindExecCommand, "", "<sentinel>"); err != nil {
		return protocol.CommandOutcome{}, err
	}

	var payload []string

	for {
		packet, err := s.readPacket(ctx, "reading command response")
		if err != nil {
			return protocol.CommandOutcome{}, err
		}

		if packet.Kind == protocol.KindAuthResponse && packet.ID == -1 {
			s.authed = false
			return protocol.CommandOutcome{}, ErrDeauthInvalidated
		}

		if packet.ID == sentinelID {
			if packet.Kind != protocol.KindResponseValue {
				return protocol.CommandOutcome{}, violationf(
					"Server returned unexpected sentinel packet kind %d", packet.Kind)
			}
			if packet.Payload != "" {
				return protocol.CommandOutcome{}, violationf(
					"Server returned data alongside the sentinel response")
			}
			break
		}

		if packet.Kind == protocol.KindResponseValue && packet.ID == commandID {
			if packet.Payload != "" {
				payload = append(payload, protocol.SplitPayloadLines(packet.Payload)...)
			}
			continue
		}

		s.log.Debug("Ignoring non-matching packet while collecting response",
			zap.Int32("packetID", packet.ID),
			zap.Int32("packetKind", packet.Kind))
	}

	// Source carries no structured error channel; failures only surface as
	// text inside the payload.
	return protocol.ResponseOutcome(protocol.RconResponse{
		Status:  protocol.StatusOk,
		Payload: payload,
	}), nil
}

// Quit flushes any buffered data and shuts down the write half of the
// socket. There is no BYE concept in this dialect.
func (s *sourceSession) Quit(ctx context.Context) error {
	if s.closed {
		return nil
	}

	s.closed = true

	err := s.io.flush(ctx, s.writer, "flushing buffered data before shutdown")

	if cw, ok := s.io.conn.(interface{ CloseWrite() error }); ok {
		if cwErr := cw.CloseWrite(); cwErr != nil {
			err = multierr.Append(err, s.io.classify(cwErr, "shutting down the writer"))
		}
	}

	return err
}

func (s *sourceSession) writePacket(ctx context.Context, id, kind int32, payload, label string) error {
	s.log.Debug("Writing packet",
		zap.Int32("requestID", id),
		zap.Int32("packetKind", kind),
		zap.String("payload", label))

	frame, err := protocol.Packet{ID: id, Kind: kind, Payload: payload}.Marshal()
	if err != nil {
		return err
	}

	op := "writing '" + label + "' packet to socket"
	if err := s.io.write(ctx, s.writer, frame, op); err != nil {
		return err
	}

	return s.io.flush(ctx, s.writer, "flushing '"+label+"' packet to socket")
}

// readPacket decodes one frame under the shared deadline. End-of-stream
// while reading the length prefix or the body marks the session closed so
// callers can tell a peer hang-up apart from other failures.
func (s *sourceSession) readPacket(ctx context.Context, op string) (protocol.Packet, error) {
	if err := s.io.conn.SetReadDeadline(s.io.opDeadline(ctx)); err != nil {
		return protocol.Packet{}, s.io.classify(err, op)
	}

	packet, err := protocol.ReadPacket(s.reader)
	if err == nil {
		return packet, nil
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		s.closed = true
		return packet, ErrPeerClosed
	}

	if errors.Is(err, protocol.ErrPacketTooSmall) ||
		errors.Is(err, protocol.ErrPacketBadTerminator) ||
		errors.Is(err, protocol.ErrPacketBadEncoding) {
		s.closed = true
		return packet, violation(err)
	}

	return packet, s.io.classify(err, op)
}
