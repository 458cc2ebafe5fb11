package client_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hyrcon/rconctl/client"
	"github.com/hyrcon/rconctl/protocol"
)

func readLine(r *bufio.Reader) string {
	line, err := r.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimRight(line, "\r\n")
}

var _ = Describe("Hyrcon backend", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("runs a full authenticate/command/quit session", func() {
		host, port, done := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH REQUIRED\n.\n")) //nolint:errcheck
			r := bufio.NewReader(conn)

			if readLine(r) == "AUTH secret" {
				conn.Write([]byte("AUTH OK\n.\n")) //nolint:errcheck
			} else {
				conn.Write([]byte("AUTH FAIL\n.\n")) //nolint:errcheck
			}

			readLine(r)                                 // status
			conn.Write([]byte("OK\nuptime: 42\n.\n"))   //nolint:errcheck
			readLine(r)                                 // QUIT
			conn.Write([]byte("BYE\n.\n"))              //nolint:errcheck
		})

		rcon, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).To(Succeed())
		Expect(rcon.Protocol()).To(Equal(protocol.Hyrcon))
		Expect(rcon.Greeting().RequiresAuth()).To(BeTrue())
		Expect(rcon.Greeting().Banner).To(Equal("HYRCON READY"))

		outcome, err := rcon.Authenticate(ctx, "secret")
		Expect(err).To(Succeed())
		Expect(outcome).To(Equal(protocol.AuthSuccess))

		result, err := rcon.SendCommand(ctx, "status")
		Expect(err).To(Succeed())
		Expect(result.Bye).To(BeFalse())
		Expect(result.Response.Status).To(Equal(protocol.StatusOk))
		Expect(result.Response.Payload).To(Equal([]string{"uptime: 42"}))
		Expect(result.Response.Error).To(BeEmpty())

		Expect(rcon.Quit(ctx)).To(Succeed())
		Expect(rcon.IsClosed()).To(BeTrue())

		// Quit on a closed session is a no-op.
		Expect(rcon.Quit(ctx)).To(Succeed())

		_, err = rcon.SendCommand(ctx, "status")
		Expect(errors.Is(err, client.ErrSessionClosed)).To(BeTrue())

		Eventually(done).Should(BeClosed())
	})

	It("reports a failed AUTH without closing the session", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH REQUIRED\n.\n")) //nolint:errcheck
			r := bufio.NewReader(conn)
			readLine(r)
			conn.Write([]byte("AUTH FAIL\n.\n")) //nolint:errcheck
		})

		rcon, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).To(Succeed())

		outcome, err := rcon.Authenticate(ctx, "wrong")
		Expect(err).To(Succeed())
		Expect(outcome).To(Equal(protocol.AuthFailure))
		Expect(rcon.IsClosed()).To(BeFalse())
	})

	It("rejects a password containing newlines before any write", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH REQUIRED\n.\n")) //nolint:errcheck
		})

		rcon, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).To(Succeed())

		_, err = rcon.Authenticate(ctx, "bad\npassword")
		Expect(errors.Is(err, client.ErrForbiddenInput)).To(BeTrue())
	})

	It("rejects a connection whose banner is wrong", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("MINECRAFT READY\nAUTH REQUIRED\n.\n")) //nolint:errcheck
		})

		_, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).ToNot(Succeed())
		Expect(client.IsProtocolViolation(err)).To(BeTrue())
		Expect(errors.Is(err, protocol.ErrGreetingBadBanner)).To(BeTrue())
	})

	It("rejects a greeting advertising an unknown auth mode", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH MAYBE\n.\n")) //nolint:errcheck
		})

		_, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(client.IsProtocolViolation(err)).To(BeTrue())
		Expect(errors.Is(err, protocol.ErrUnknownAuthMode)).To(BeTrue())
	})

	It("extracts a trailing ERROR line from an ERR response", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH OPTIONAL\n.\n")) //nolint:errcheck
			r := bufio.NewReader(conn)
			readLine(r)
			conn.Write([]byte("ERR\npartial output\nERROR no such command\n.\n")) //nolint:errcheck
		})

		rcon, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).To(Succeed())
		Expect(rcon.Greeting().RequiresAuth()).To(BeFalse())

		outcome, err := rcon.SendCommand(ctx, "frobnicate")
		Expect(err).To(Succeed())
		Expect(outcome.Response.Status).To(Equal(protocol.StatusErr))
		Expect(outcome.Response.Payload).To(Equal([]string{"partial output"}))
		Expect(outcome.Response.Error).To(Equal("no such command"))
	})

	It("treats an unknown status line as a protocol violation", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH OPTIONAL\n.\n")) //nolint:errcheck
			r := bufio.NewReader(conn)
			readLine(r)
			conn.Write([]byte("MAYBE\n.\n")) //nolint:errcheck
		})

		rcon, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).To(Succeed())

		_, err = rcon.SendCommand(ctx, "status")
		Expect(client.IsProtocolViolation(err)).To(BeTrue())
		Expect(errors.Is(err, protocol.ErrUnknownStatusLine)).To(BeTrue())
	})

	It("rejects invalid commands before any byte reaches the socket", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH OPTIONAL\n.\n")) //nolint:errcheck
			r := bufio.NewReader(conn)

			// Echo the first line the server sees; if the rejected commands
			// had leaked any bytes this would not be the valid command.
			first := readLine(r)
			conn.Write([]byte("OK\nfirst: " + first + "\n.\n")) //nolint:errcheck
		})

		rcon, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).To(Succeed())

		_, err = rcon.SendCommand(ctx, "bad\ncommand")
		Expect(errors.Is(err, client.ErrForbiddenInput)).To(BeTrue())

		_, err = rcon.SendCommand(ctx, "   ")
		Expect(errors.Is(err, client.ErrEmptyCommand)).To(BeTrue())

		outcome, err := rcon.SendCommand(ctx, "ping")
		Expect(err).To(Succeed())
		Expect(outcome.Response.Payload).To(Equal([]string{"first: ping"}))
	})

	It("flags a QUIT answered with a regular response and closes the session", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH OPTIONAL\n.\n")) //nolint:errcheck
			r := bufio.NewReader(conn)
			readLine(r)
			conn.Write([]byte("OK\n.\n")) //nolint:errcheck
		})

		rcon, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).To(Succeed())

		err = rcon.Quit(ctx)
		Expect(client.IsProtocolViolation(err)).To(BeTrue())
		Expect(rcon.IsClosed()).To(BeTrue())
	})

	It("surfaces a peer hang-up mid block", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			conn.Write([]byte("HYRCON READY\nAUTH OPTIONAL\n.\n")) //nolint:errcheck
			r := bufio.NewReader(conn)
			readLine(r)
			conn.Write([]byte("OK\nhalf a blo")) //nolint:errcheck
		})

		rcon, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{})
		Expect(err).To(Succeed())

		_, err = rcon.SendCommand(ctx, "status")
		Expect(errors.Is(err, client.ErrPeerClosed)).To(BeTrue())
	})

	It("times out when the server never sends a greeting", func() {
		host, port, _ := startServer(func(conn net.Conn) {
			time.Sleep(500 * time.Millisecond)
		})

		_, err := client.Connect(ctx, protocol.Hyrcon, host, port, client.Options{
			Timeout: 100 * time.Millisecond,
		})

		var timeoutErr *client.TimeoutError
		Expect(errors.As(err, &timeoutErr)).To(BeTrue())
		Expect(timeoutErr.Limit).To(Equal(100 * time.Millisecond))
	})
})
