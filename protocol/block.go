package protocol

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// BlockTerminator ends every Hyrcon block.
	BlockTerminator = "."

	// GreetingBanner is the only banner a conforming Hyrcon server sends.
	GreetingBanner = "HYRCON READY"

	errorLinePrefix = "ERROR "
)

var (
	ErrGreetingTooShort   = errors.New("Greeting block did not include an auth mode line")
	ErrGreetingBadBanner  = errors.New("Greeting banner is not HYRCON READY")
	ErrUnknownAuthMode    = errors.New("Server advertised an unknown auth mode")
	ErrEmptyResponseBlock = errors.New("Server returned an empty response block")
	ErrUnknownStatusLine  = errors.New("Server returned an unknown status line")
)

// ParseGreeting validates a Hyrcon greeting block. Line 0 must be the
// literal banner and line 1 must advertise one of the two auth modes;
// anything else rejects the connection.
func ParseGreeting(lines []string) (Greeting, error) {
	if len(lines) < 2 {
		return Greeting{}, ErrGreetingTooShort
	}

	if lines[0] != GreetingBanner {
		return Greeting{}, fmt.Errorf("Failed to parse banner '%s': %w",
			lines[0], ErrGreetingBadBanner)
	}

	var mode AuthMode
	switch lines[1] {
	case "AUTH REQUIRED":
		mode = AuthRequired
	case "AUTH OPTIONAL":
		mode = AuthOptional
	default:
		return Greeting{}, fmt.Errorf("Failed to parse auth mode '%s': %w",
			lines[1], ErrUnknownAuthMode)
	}

	return Greeting{
		Banner:   lines[0],
		AuthMode: mode,
		Protocol: Hyrcon,
	}, nil
}

// ParseCommandBlock turns a Hyrcon command response block into an outcome.
// The first line is the status line; OK and ERR produce a response (with any
// trailing error line extracted), BYE means the server ended the session.
func ParseCommandBlock(lines []string) (CommandOutcome, error) {
	if len(lines) == 0 {
		return CommandOutcome{}, ErrEmptyResponseBlock
	}

	status, rest := lines[0], lines[1:]

	switch status {
	case "OK":
		payload, errMsg := ExtractError(rest)
		return ResponseOutcome(RconResponse{
			Status:  StatusOk,
			Payload: payload,
			Error:   errMsg,
		}), nil

	case "ERR":
		payload, errMsg := ExtractError(rest)
		return ResponseOutcome(RconResponse{
			Status:  StatusErr,
			Payload: payload,
			Error:   errMsg,
		}), nil

	case "BYE":
		return ByeOutcome(), nil

	default:
		return CommandOutcome{}, fmt.Errorf("Failed to parse status line '%s': %w",
			status, ErrUnknownStatusLine)
	}
}

// ExtractError splits a trailing `ERROR <message>` line off a response
// block. All other lines are returned as the payload, in their original
// order.
func ExtractError(lines []string) ([]string, string) {
	if len(lines) == 0 {
		return lines, ""
	}

	last := lines[len(lines)-1]
	if strings.HasPrefix(last, errorLinePrefix) {
		return lines[:len(lines)-1], strings.TrimPrefix(last, errorLinePrefix)
	}

	return lines, ""
}

// SplitPayloadLines splits a Source response payload into lines, trimming a
// single trailing CR from each. An empty payload contributes no lines.
func SplitPayloadLines(payload string) []string {
	if payload == "" {
		return nil
	}

	raw := strings.Split(strings.TrimSuffix(payload, "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}

	return lines
}

// SanitizeCommand strips leading and trailing CR/LF characters from raw
// user input. It reports false when nothing sendable remains, signalling
// that no command should be dispatched. The result is stable under
// re-application.
func SanitizeCommand(raw string) (string, bool) {
	trimmed := strings.Trim(raw, "\r\n")
	if strings.TrimSpace(trimmed) == "" {
		return "", false
	}

	return trimmed, true
}

// IsExitCommand reports whether the input is one of the built-in `quit` or
// `exit` verbs, ignoring case and surrounding whitespace.
func IsExitCommand(raw string) bool {
	command, ok := SanitizeCommand(raw)
	if !ok {
		return false
	}

	command = strings.ToLower(strings.TrimSpace(command))
	return command == "quit" || command == "exit"
}
