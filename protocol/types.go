package protocol

// AuthMode indicates whether the server demands authentication before it
// will execute commands.
type AuthMode int

const (
	AuthRequired AuthMode = iota
	AuthOptional
)

func (m AuthMode) String() string {
	if m == AuthOptional {
		return "optional"
	}
	return "required"
}

// Greeting is the banner information established at connect time. For Hyrcon
// it is parsed from the first block the server sends; for Source, which has
// no greeting on the wire, it is synthesized locally.
type Greeting struct {
	Banner   string
	AuthMode AuthMode
	Protocol Protocol
}

// SourceGreeting returns the synthetic greeting used for Source sessions.
// The Source wire protocol never sends one, and it always requires auth.
func SourceGreeting() Greeting {
	return Greeting{
		Banner:   "SOURCE RCON READY",
		AuthMode: AuthRequired,
		Protocol: Source,
	}
}

func (g Greeting) RequiresAuth() bool {
	return g.AuthMode == AuthRequired
}

// AuthOutcome is the result of an AUTH exchange. A failure does not close
// the session by itself.
type AuthOutcome int

const (
	AuthFailure AuthOutcome = iota
	AuthSuccess
)

func (o AuthOutcome) String() string {
	if o == AuthSuccess {
		return "success"
	}
	return "failure"
}

// ResponseStatus is the high-level status of a command response.
type ResponseStatus int

const (
	StatusOk ResponseStatus = iota
	StatusErr
)

func (s ResponseStatus) String() string {
	if s == StatusErr {
		return "ERR"
	}
	return "OK"
}

// RconResponse is the reassembled server reply to a single command. Error
// holds the message of a trailing `ERROR <message>` line when the server
// sent one; it is empty otherwise.
type RconResponse struct {
	Status  ResponseStatus
	Payload []string
	Error   string
}

// CommandOutcome is either a response or a Bye marker meaning the server
// ended the logical session (the Hyrcon BYE status line; Source has no BYE
// and only produces Bye through the client's own quit path).
type CommandOutcome struct {
	Response *RconResponse
	Bye      bool
}

func ResponseOutcome(resp RconResponse) CommandOutcome {
	return CommandOutcome{Response: &resp}
}

func ByeOutcome() CommandOutcome {
	return CommandOutcome{Bye: true}
}
