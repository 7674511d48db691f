// Package types defines the git-lfs custom transfer wire types.
package types //nolint:revive // types is a valid package name

// EventType is the `event` discriminator carried by every protocol message.
type EventType string

// Event type constants of the git-lfs custom transfer protocol.
const (
	EventTypeInit      EventType = "init"
	EventTypeUpload    EventType = "upload"
	EventTypeDownload  EventType = "download"
	EventTypeTerminate EventType = "terminate"
	EventTypeProgress  EventType = "progress"
	EventTypeComplete  EventType = "complete"
)

// IsAction returns true for events that start a transfer.
func (e EventType) IsAction() bool {
	return e == EventTypeUpload || e == EventTypeDownload
}

// Message is an incoming message decoded from git-lfs.
// The set of implementations is closed: InitMessage, UploadMessage,
// DownloadMessage and TerminateMessage.
type Message interface {
	Event() EventType
}

// InitMessage opens the session. The fields are informational; the agent
// runs in standalone mode and does not need them.
type InitMessage struct {
	Operation           string `json:"operation,omitempty"`
	Remote              string `json:"remote,omitempty"`
	Concurrent          bool   `json:"concurrent,omitempty"`
	ConcurrentTransfers int    `json:"concurrenttransfers,omitempty"`
}

// Event implements Message.
func (InitMessage) Event() EventType { return EventTypeInit }

// UploadMessage requests that the local file at Path be stored under Oid.
type UploadMessage struct {
	Oid  string `json:"oid"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

// Event implements Message.
func (UploadMessage) Event() EventType { return EventTypeUpload }

// DownloadMessage requests the object Oid.
type DownloadMessage struct {
	Oid  string `json:"oid"`
	Size int64  `json:"size"`
}

// Event implements Message.
func (DownloadMessage) Event() EventType { return EventTypeDownload }

// TerminateMessage ends the session.
type TerminateMessage struct{}

// Event implements Message.
func (TerminateMessage) Event() EventType { return EventTypeTerminate }

// ProgressEvent reports transfer progress for one object.
type ProgressEvent struct {
	Event          EventType `json:"event"`
	Oid            string    `json:"oid"`
	BytesSoFar     int64     `json:"bytesSoFar"`
	BytesSinceLast int64     `json:"bytesSinceLast"`
}

// NewProgressEvent builds a progress event for oid.
func NewProgressEvent(oid string, bytesSoFar, bytesSinceLast int64) *ProgressEvent {
	return &ProgressEvent{
		Event:          EventTypeProgress,
		Oid:            oid,
		BytesSoFar:     bytesSoFar,
		BytesSinceLast: bytesSinceLast,
	}
}

// CompleteEvent finishes one upload or download.
// Path is set for downloads only. Error is set when the transfer failed.
type CompleteEvent struct {
	Event EventType    `json:"event"`
	Oid   string       `json:"oid"`
	Path  string       `json:"path,omitempty"`
	Error *ActionError `json:"error,omitempty"`
}

// NewCompleteEvent builds a successful completion event for oid.
func NewCompleteEvent(oid string) *CompleteEvent {
	return &CompleteEvent{Event: EventTypeComplete, Oid: oid}
}

// ActionError is the error object attached to a failed completion.
type ActionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Failed reports whether the completion carries an error.
func (c *CompleteEvent) Failed() bool {
	return c.Error != nil
}
