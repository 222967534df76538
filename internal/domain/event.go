package domain

const (
	EventNameStarted         = "app.started"
	EventNamePushReceived    = "push.received"
	EventNamePushFailed      = "push.failed"
	EventNameCommandReceived = "command.received"
)

// EventStarted is published once the client is wired and ready to talk to the server.
type EventStarted struct{}

func (EventStarted) Name() string { return EventNameStarted }

// EventPushReceived carries one raw payload from the push channel.
type EventPushReceived struct {
	Payload []byte
}

func (EventPushReceived) Name() string { return EventNamePushReceived }

type EventPushFailed struct {
	Err error
}

func (EventPushFailed) Name() string { return EventNamePushFailed }

// EventCommandReceived carries one command typed by the user.
type EventCommandReceived struct {
	Command Command
}

func (EventCommandReceived) Name() string { return EventNameCommandReceived }

// Command is a user action such as "login alice" or "choose 2".
type Command struct {
	Verb string
	Arg  string
}
