package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/hyrcon/rconctl/protocol"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// Renderer writes human-facing output for the interactive and one-shot
// modes. Color is off in plain mode; Table switches payload rendering from
// indented lines to a bordered table.
type Renderer struct {
	out   io.Writer
	color bool
	table bool
}

func NewRenderer(out io.Writer, color, table bool) *Renderer {
	return &Renderer{out: out, color: color, table: table}
}

// Prompt writes the interactive prompt prefix without a trailing newline.
func (r *Renderer) Prompt() {
	fmt.Fprint(r.out, r.paint("rcon> ", ansiBold))
}

// Greeting pretty-prints the server greeting block.
func (r *Renderer) Greeting(greeting protocol.Greeting) {
	fmt.Fprintln(r.out, r.paint(greeting.Banner, ansiBold+ansiCyan))

	if greeting.RequiresAuth() {
		fmt.Fprintln(r.out, r.paint("Authentication required", ansiYellow))
	} else {
		fmt.Fprintln(r.out, r.paint("Authentication optional", ansiGreen))
	}

	fmt.Fprintln(r.out)
}

// Response renders a command response in a human-friendly format.
func (r *Renderer) Response(command string, resp *protocol.RconResponse) {
	status := resp.Status.String()
	if resp.Status == protocol.StatusErr {
		status = r.paint(status, ansiBold+ansiRed)
	} else {
		status = r.paint(status, ansiBold+ansiGreen)
	}

	fmt.Fprintf(r.out, "%s %s\n", status, command)

	if r.table && len(resp.Payload) > 0 {
		r.payloadTable(resp.Payload)
	} else {
		for _, line := range resp.Payload {
			fmt.Fprintf(r.out, "  %s\n", r.paint(line, ansiCyan))
		}
	}

	if resp.Error != "" {
		fmt.Fprintf(r.out, "  %s %s\n",
			r.paint("ERROR", ansiBold+ansiYellow),
			r.paint(resp.Error, ansiRed))
	}

	fmt.Fprintln(r.out)
}

// Bye shows a farewell message when the server closes the session.
func (r *Renderer) Bye() {
	fmt.Fprintln(r.out, r.paint("Session closed by server", ansiBold))
}

func (r *Renderer) payloadTable(lines []string) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"#", "Output"})
	table.SetAutoWrapText(false)

	for i, line := range lines {
		table.Append([]string{strconv.Itoa(i + 1), line})
	}

	table.Render()
}

func (r *Renderer) paint(s, code string) string {
	if !r.color {
		return s
	}

	return code + s + ansiReset
}
