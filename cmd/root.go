package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyrcon/rconctl/client"
	"github.com/hyrcon/rconctl/cmd/gen"
	"github.com/hyrcon/rconctl/internal/env"
	"github.com/hyrcon/rconctl/internal/ui"
	"github.com/hyrcon/rconctl/protocol"
)

var (
	// Connection flags. Empty/zero values fall back to the environment,
	// then to the selected profile, then to protocol defaults.
	host         string
	port         int
	protocolName string
	password     string
	timeoutMS    int

	// Profile selection
	profileName string
	profilePath string

	// Output flags
	plain    bool
	jsonOut  bool
	tableOut bool

	verbosity int

	// exitCode is what the process exits with after a clean run. A command
	// answered with ERR status maps to 2.
	exitCode int
)

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&host, "host", "a", "", "Hostname or IP address of the RCON server")
	flags.IntVarP(&port, "port", "p", 0, "TCP port of the RCON server (0 uses the protocol default)")
	flags.StringVar(&protocolName, "protocol", "", "Wire protocol to speak: source (default) or hyrcon")
	flags.StringVar(&password, "password", "", "Password for the AUTH handshake")
	flags.IntVar(&timeoutMS, "timeout-ms", 0, "I/O timeout in milliseconds")
	flags.StringVar(&profileName, "profile", "", "Named connection profile to load")
	flags.StringVar(&profilePath, "profile-file", env.DefaultProfilePath, "Path of the profile file")
	flags.BoolVar(&plain, "plain", false, "Disable ANSI color output")
	flags.BoolVar(&jsonOut, "json", false, "Emit command responses as JSON")
	flags.BoolVar(&tableOut, "table", false, "Render response payloads as a table")
	flags.CountVarP(&verbosity, "verbose", "v", "Increase logging verbosity")

	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

var RootCmd = &cobra.Command{
	Use:   "rconctl [COMMAND...]",
	Short: "Interact with a remote console over the Source or Hyrcon protocol",
	Long: `Interact with a remote console over the Source or Hyrcon protocol

With trailing arguments rconctl executes them as a single command and exits;
without arguments it starts an interactive prompt.

Usage
	rconctl --host game.example.com --password hunter2 status
	rconctl --protocol hyrcon --port 5522
`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
		defer signalStop()

		log, err := env.MakeLogger(verbosity, plain)
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

		greeting := rcon.Greeting()
		log.Info("Connected",
			zap.Stringer("protocol", rcon.Protocol()),
			zap.String("banner", greeting.Banner),
			zap.Bool("authRequired", greeting.RequiresAuth()))

		renderer := ui.NewRenderer(os.Stdout, !plain, tableOut)
		if !jsonOut {
			renderer.Greeting(greeting)
		}

		if err := authenticateIfRequired(ctx, rcon, settings.password, log); err != nil {
			return err
		}

		if len(args) > 0 {
			err = runOneShot(ctx, rcon, renderer, strings.Join(args, " "))
		} else {
			err = runInteractive(ctx, rcon, renderer, log)
		}
		if err != nil {
			return err
		}

		if !rcon.IsClosed() {
			if quitErr := rcon.Quit(ctx); quitErr != nil {
				log.Debug("Failed to send QUIT during shutdown", zap.Error(quitErr))
			}
		}

		return nil
	},
}

// Execute runs the command tree and exits the process with the resolved
// exit code: 0 for success, 2 when the server answered with ERR status, 1
// for any other failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(exitCode)
}

type sessionSettings struct {
	proto    protocol.Protocol
	host     string
	port     int
	password string
	timeout  time.Duration
}

// resolveSettings layers the config sources: flags beat environment
// variables, which beat the selected profile, which beats built-in
// defaults.
func resolveSettings(ctx context.Context) (*sessionSettings, error) {
	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	profile := &env.Profile{}
	if profileName != "" {
		profile, err = env.LoadProfile(profilePath, profileName)
		if err != nil {
			return nil, err
		}
	}

	settings := &sessionSettings{
		host:     firstNonEmpty(host, conf.Host, profile.Host, "127.0.0.1"),
		password: firstNonEmpty(password, conf.Password, profile.Password, ""),
	}

	name := firstNonEmpty(protocolName, conf.Protocol, profile.Protocol, "source")
	if settings.proto, err = protocol.ParseProtocol(name); err != nil {
		return nil, err
	}

	settings.port = firstNonZero(port, conf.Port, profile.Port, settings.proto.DefaultPort())

	ms := firstNonZero(timeoutMS, conf.TimeoutMS, 0, 0)
	if ms > 0 {
		settings.timeout = time.Duration(ms) * time.Millisecond
	}

	return settings, nil
}

func authenticateIfRequired(ctx context.Context, rcon *client.Client, password string, log *zap.Logger) error {
	if rcon.Greeting().RequiresAuth() {
		if password == "" {
			return errors.New("Server requires authentication; supply --password or set RCON_PASSWORD")
		}

		outcome, err := rcon.Authenticate(ctx, password)
		if err != nil {
			return err
		}
		if outcome != protocol.AuthSuccess {
			return errors.New("Authentication rejected by server")
		}

		log.Info("Authentication accepted")
		return nil
	}

	if password != "" {
		outcome, err := rcon.Authenticate(ctx, password)
		if err != nil {
			return err
		}
		if outcome != protocol.AuthSuccess {
			log.Warn("Authentication failed but server allows unauthenticated commands; continuing without credentials")
		} else {
			log.Info("Authenticated (optional)")
		}
	}

	return nil
}

func runOneShot(ctx context.Context, rcon *client.Client, renderer *ui.Renderer, raw string) error {
	command, ok := protocol.SanitizeCommand(raw)
	if !ok {
		return errors.New("Command was empty after trimming whitespace")
	}

	outcome, err := rcon.SendCommand(ctx, command)
	if err != nil {
		return err
	}

	return renderOutcome(renderer, command, outcome)
}

func runInteractive(ctx context.Context, rcon *client.Client, renderer *ui.Renderer, log *zap.Logger) error {
	stdin := bufio.NewReader(os.Stdin)

	for {
		renderer.Prompt()

		input, err := stdin.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				log.Info("Stdin closed; terminating session")
				return nil
			}
			return err
		}

		command, ok := protocol.SanitizeCommand(input)
		if !ok {
			continue
		}

		// Exit words end the prompt loop; the QUIT exchange happens in
		// the shared shutdown path.
		if protocol.IsExitCommand(command) {
			return nil
		}

		outcome, err := rcon.SendCommand(ctx, command)
		if err != nil {
			return err
		}

		if renderErr := renderOutcome(renderer, command, outcome); renderErr != nil {
			return renderErr
		}

		if outcome.Bye {
			return nil
		}
	}
}

func renderOutcome(renderer *ui.Renderer, command string, outcome protocol.CommandOutcome) error {
	if outcome.Response != nil && outcome.Response.Status == protocol.StatusErr {
		exitCode = 2
	}

	if jsonOut {
		var (
			doc string
			err error
		)

		if outcome.Bye {
			doc, err = ui.ByeJSON(command)
		} else {
			doc, err = ui.ResponseJSON(command, outcome.Response)
		}
		if err != nil {
			return err
		}

		fmt.Println(doc)
		return nil
	}

	if outcome.Bye {
		renderer.Bye()
		return nil
	}

	renderer.Response(command, outcome.Response)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
