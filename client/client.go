package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyrcon/rconctl/protocol"
)

// DefaultTimeout bounds each socket operation when Options.Timeout is zero.
const DefaultTimeout = 8 * time.Second

// Options configure a session at connect time.
type Options struct {
	// Timeout is the per-operation deadline applied to every socket read
	// and write. Zero means DefaultTimeout.
	Timeout time.Duration

	// Log receives debug traces of the wire exchange. Passwords are always
	// redacted before they reach the logger.
	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}

// backend is the per-protocol session state machine. Exactly two
// implementations exist and both are known at build time.
type backend interface {
	Authenticate(ctx context.Context, password string) (protocol.AuthOutcome, error)
	SendCommand(ctx context.Context, command string) (protocol.CommandOutcome, error)
	Quit(ctx context.Context) error
	IsClosed() bool
}

var (
	_ backend = (*hyrconSession)(nil)
	_ backend = (*sourceSession)(nil)
)

// Client is a single RCON session. It owns exactly one socket and one
// backend, selected once from the protocol given to Connect, and forwards
// every operation to it unchanged.
//
// A Client is not safe for concurrent use; operations are sequential and
// each blocks until its socket exchange completes or times out. After a
// timeout the session should be reconnected rather than reused.
type Client struct {
	backend  backend
	greeting protocol.Greeting
	protocol protocol.Protocol
}

// Connect dials host:port and performs the protocol's connect phase: for
// Hyrcon that includes reading and validating the greeting block, for
// Source a synthetic greeting is produced since the wire sends none.
func Connect(ctx context.Context, proto protocol.Protocol, host string, port int, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	switch proto {
	case protocol.Hyrcon:
		session, greeting, err := connectHyrcon(ctx, addr, opts)
		if err != nil {
			return nil, fmt.Errorf("Failed to connect to %s: %w", addr, err)
		}

		return &Client{backend: session, greeting: greeting, protocol: proto}, nil

	default:
		session, err := connectSource(ctx, addr, opts)
		if err != nil {
			return nil, fmt.Errorf("Failed to connect to %s: %w", addr, err)
		}

		return &Client{backend: session, greeting: protocol.SourceGreeting(), protocol: proto}, nil
	}
}

func (c *Client) Protocol() protocol.Protocol {
	return c.protocol
}

func (c *Client) Greeting() protocol.Greeting {
	return c.greeting
}

func (c *Client) IsClosed() bool {
	return c.backend.IsClosed()
}

// Authenticate performs the backend's AUTH exchange. A failure outcome
// leaves the session usable.
func (c *Client) Authenticate(ctx context.Context, password string) (protocol.AuthOutcome, error) {
	return c.backend.Authenticate(ctx, password)
}

// SendCommand executes one command and reassembles the server's reply.
func (c *Client) SendCommand(ctx context.Context, command string) (protocol.CommandOutcome, error) {
	return c.backend.SendCommand(ctx, command)
}

// Quit shuts the session down gracefully. Quitting an already-closed
// session is a no-op.
func (c *Client) Quit(ctx context.Context) error {
	return c.backend.Quit(ctx)
}
