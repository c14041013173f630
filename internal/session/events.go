package session

// Inbound message commands.
const (
	CommandParseCurl       = "parseCurl"
	CommandReconstructCurl = "reconstructCurl"
	CommandExecuteCurl     = "executeCurl"
	CommandExecuteLoop     = "executeLoop"
	CommandSaveOutput      = "saveOutput"
)

// Outbound event names.
const (
	EventParsedCurl        = "updateParsedCurl"
	EventReconstructedCurl = "updateReconstructedCurl"
	EventExecutionOutput   = "updateExecutionOutput"
	EventLoopProgress      = "loopProgress"
	EventLoopComplete      = "loopComplete"
	EventNotification      = "notification"
)

// Notification levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Message is one inbound request.
type Message struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Event is one outbound message. Every implementation serializes with a
// "command" discriminator.
type Event interface {
	EventName() string
}

// ParsedCurl carries the editor payload as JSON text.
type ParsedCurl struct {
	Command string `json:"command"`
	Text    string `json:"text"`
}

func (ParsedCurl) EventName() string { return EventParsedCurl }

// ReconstructedCurl carries the rebuilt command.
type ReconstructedCurl struct {
	Command string `json:"command"`
	Text    string `json:"text"`
}

func (ReconstructedCurl) EventName() string { return EventReconstructedCurl }

// ExecutionOutput reports command output or a user facing message. Status,
// StatusLabel and Duration are only set for a single execution.
type ExecutionOutput struct {
	Command     string `json:"command"`
	Status      *int   `json:"status,omitempty"`
	StatusLabel string `json:"statusLabel,omitempty"`
	// Duration is in milliseconds.
	Duration *int64 `json:"duration,omitempty"`
	Text     string `json:"text"`
}

func (ExecutionOutput) EventName() string { return EventExecutionOutput }

type LoopProgress struct {
	Command string `json:"command"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Status  *int   `json:"status,omitempty"`
}

func (LoopProgress) EventName() string { return EventLoopProgress }

// LoopComplete ends a loop. Error is set instead of StatusSummary when the
// loop was rejected.
type LoopComplete struct {
	Command       string `json:"command"`
	Total         int    `json:"total"`
	SuccessCount  int    `json:"successCount"`
	FailureCount  int    `json:"failureCount"`
	StatusSummary string `json:"statusSummary,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (LoopComplete) EventName() string { return EventLoopComplete }

type Notification struct {
	Command string `json:"command"`
	Level   string `json:"level"`
	Text    string `json:"text"`
}

func (Notification) EventName() string { return EventNotification }

// Emitter receives the events produced while handling a message.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Collector buffers events in order.
type Collector struct {
	Events []Event
}

func (c *Collector) Emit(e Event) { c.Events = append(c.Events, e) }

func outputText(text string) ExecutionOutput {
	return ExecutionOutput{Command: EventExecutionOutput, Text: text}
}
