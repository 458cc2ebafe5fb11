package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/hyrcon/rconctl/protocol"
)

// dial opens the TCP stream for a session. Send coalescing is disabled so
// small protocol exchanges are not delayed by Nagle batching.
func dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

// deadlineIO bounds every read and write on a session's socket. Each
// operation gets an absolute deadline of now plus the configured timeout,
// clamped by the caller's context deadline when that expires sooner. There
// is no other cancellation mechanism; once a deadline fires, the in-flight
// operation is abandoned.
type deadlineIO struct {
	conn    net.Conn
	timeout time.Duration
}

func (d *deadlineIO) opDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(d.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}

	return deadline
}

// classify maps a raw socket error into the client error taxonomy, tagging
// it with a description of the operation that was in flight.
func (d *deadlineIO) classify(err error, op string) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: op, Limit: d.timeout}
	}

	return fmt.Errorf("Failed while %s: %w", op, err)
}

func (d *deadlineIO) write(ctx context.Context, w *bufio.Writer, data []byte, op string) error {
	if err := d.conn.SetWriteDeadline(d.opDeadline(ctx)); err != nil {
		return d.classify(err, op)
	}

	if _, err := w.Write(data); err != nil {
		return d.classify(err, op)
	}

	return nil
}

func (d *deadlineIO) flush(ctx context.Context, w *bufio.Writer, op string) error {
	if err := d.conn.SetWriteDeadline(d.opDeadline(ctx)); err != nil {
		return d.classify(err, op)
	}

	return d.classify(w.Flush(), op)
}

// readLine reads one newline-terminated line and strips the trailing LF and
// optional CR. A clean EOF before any byte means the peer hung up.
func (d *deadlineIO) readLine(ctx context.Context, r *bufio.Reader, op string) (string, error) {
	if err := d.conn.SetReadDeadline(d.opDeadline(ctx)); err != nil {
		return "", d.classify(err, op)
	}

	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrPeerClosed
		}
		return "", d.classify(err, op)
	}

	line = line[:len(line)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	return line, nil
}

// readBlock reads lines until the lone `.` terminator line.
func (d *deadlineIO) readBlock(ctx context.Context, r *bufio.Reader, op string) ([]string, error) {
	var lines []string

	for {
		line, err := d.readLine(ctx, r, op)
		if err != nil {
			return nil, err
		}

		if line == protocol.BlockTerminator {
			return lines, nil
		}

		lines = append(lines, line)
	}
}
