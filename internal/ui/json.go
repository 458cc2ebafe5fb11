package ui

import (
	"github.com/tidwall/sjson"

	"github.com/hyrcon/rconctl/protocol"
)

// ResponseJSON builds the machine-readable document for a command response.
// The error field is only present when the server sent a structured error
// line.
func ResponseJSON(command string, resp *protocol.RconResponse) (string, error) {
	doc, err := sjson.Set("", "command", command)
	if err != nil {
		return "", err
	}

	if doc, err = sjson.Set(doc, "status", resp.Status.String()); err != nil {
		return "", err
	}

	payload := resp.Payload
	if payload == nil {
		payload = []string{}
	}
	if doc, err = sjson.Set(doc, "payload", payload); err != nil {
		return "", err
	}

	if resp.Error != "" {
		if doc, err = sjson.Set(doc, "error", resp.Error); err != nil {
			return "", err
		}
	}

	return doc, nil
}

// ByeJSON is the document emitted when the server ends the session instead
// of answering the command.
func ByeJSON(command string) (string, error) {
	doc, err := sjson.Set("", "command", command)
	if err != nil {
		return "", err
	}

	return sjson.Set(doc, "bye", true)
}

// ErrorJSON is the document the serve bridge returns for failed requests.
func ErrorJSON(message string) (string, error) {
	return sjson.Set("", "error", message)
}
