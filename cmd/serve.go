package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	reuseport "github.com/kavu/go_reuseport"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/hyrcon/rconctl/client"
	"github.com/hyrcon/rconctl/internal/env"
	"github.com/hyrcon/rconctl/internal/ui"
	"github.com/hyrcon/rconctl/protocol"
)

var (
	// The address to serve HTTP requests on
	listenAddr string

	// debugHTTP enables gin debug mode and verbose request logs
	debugHTTP bool
)

func init() {
	flags := ServeCmd.PersistentFlags()

	flags.StringVar(&listenAddr, "listen", "0.0.0.0:7351", "The address to serve HTTP requests on")
	flags.BoolVar(&debugHTTP, "debug-http", false, "Enable HTTP debug logging")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose a single RCON session over HTTP",
	Long: `Expose a single RCON session over HTTP

The bridge connects one RCON session using the same connection flags as the
root command and serves POST /v1/command, executing one command per request.
Requests are serialized onto the session, which only supports one
outstanding command at a time.

Usage
	rconctl serve --host game.example.com --password hunter2 --listen 0.0.0.0:7351
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
		defer signalStop()

		log, err := env.MakeLogger(verbosity, true)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		settings, err := resolveSettings(ctx)
		if err != nil {
			return err
		}

		rcon, err := client.Connect(ctx, settings.proto, settings.host, settings.port, client.Options{
			Timeout: settings.timeout,
			Log:     log.Named("client"),
		})
		if err != nil {
			return err
		}

		if err := authenticateIfRequired(ctx, rcon, settings.password, log); err != nil {
			return err
		}

		bridge := &commandBridge{rcon: rcon, log: log.Named("bridge")}

		router := setupRouter(debugHTTP, log)

		// Ping test
		router.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		router.POST("/v1/command", bridge.handleCommand)

		listener, err := reuseport.Listen("tcp", listenAddr)
		if err != nil {
			return err
		}

		s := &http.Server{Handler: router}

		// Initializing the server in a goroutine so that it won't block the
		// graceful shutdown handling below
		go func() {
			if err := s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		log.Info("Listening",
			zap.String("listen", listenAddr),
			zap.Stringer("protocol", rcon.Protocol()),
			zap.String("upstream", net.JoinHostPort(settings.host, strconv.Itoa(settings.port))))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if !rcon.IsClosed() {
			if err := rcon.Quit(shutdownCtx); err != nil {
				log.Debug("Failed to quit RCON session during shutdown", zap.Error(err))
			}
		}

		log.Info("Exiting")
		return nil
	},
}

// commandBridge serializes HTTP requests onto the single RCON session. The
// core client only supports one outstanding command at a time.
type commandBridge struct {
	mu   sync.Mutex
	rcon *client.Client
	log  *zap.Logger
}

func (b *commandBridge) handleCommand(c *gin.Context) {
	requestID := uuid.New().String()
	log := b.log.With(zap.String("requestID", requestID))
	c.Header("X-Request-Id", requestID)

	body, err := c.GetRawData()
	if err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	command, ok := protocol.SanitizeCommand(gjson.GetBytes(body, "command").String())
	if !ok {
		writeErrorJSON(c, http.StatusBadRequest, "command must not be empty")
		return
	}

	b.mu.Lock()
	outcome, err := b.rcon.SendCommand(c.Request.Context(), command)
	b.mu.Unlock()

	if err != nil {
		log.Warn("Command failed", zap.String("command", command), zap.Error(err))
		writeErrorJSON(c, bridgeStatus(err), err.Error())
		return
	}

	var doc string
	if outcome.Bye {
		doc, err = ui.ByeJSON(command)
	} else {
		doc, err = ui.ResponseJSON(command, outcome.Response)
	}
	if err != nil {
		writeErrorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info("Command executed", zap.String("command", command), zap.Bool("bye", outcome.Bye))
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
}

// bridgeStatus maps the client error taxonomy onto HTTP status codes.
func bridgeStatus(err error) int {
	var timeoutErr *client.TimeoutError

	switch {
	case errors.Is(err, client.ErrEmptyCommand), errors.Is(err, client.ErrForbiddenInput):
		return http.StatusBadRequest

	case errors.Is(err, client.ErrSessionClosed):
		return http.StatusServiceUnavailable

	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout

	case errors.Is(err, client.ErrDeauthInvalidated), client.IsProtocolViolation(err):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

func writeErrorJSON(c *gin.Context, status int, message string) {
	doc, err := ui.ErrorJSON(message)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to encode error")
		return
	}

	c.Data(status, "application/json; charset=utf-8", []byte(doc))
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - Logs to stdout.
	//   - RFC3339 with UTC time format.
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
