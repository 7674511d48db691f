// Package metrics provides per-session transfer counters.
//
// The Collector accumulates counters for the lifetime of one agent session.
// It is a leaf package with no internal dependencies; the session logs a
// Snapshot when git-lfs terminates it.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the session counters.
type Snapshot struct {
	// Actions
	UploadsStarted    int64
	DownloadsStarted  int64
	ActionsSucceeded  int64
	ActionsFailed     int64
	BytesTransferred  int64
	ProgressEvents    int64
	LogDecodeErrors   int64
	RcloneErrorLines  int64
	RcloneLaunchFails int64

	// Dimensions (informational, set at construction)
	Remote    string
	SessionID string
}

// Actions returns the total number of actions started.
func (s Snapshot) Actions() int64 {
	return s.UploadsStarted + s.DownloadsStarted
}

// Fields renders the snapshot as log fields.
func (s Snapshot) Fields() map[string]any {
	return map[string]any{
		"actions":             s.Actions(),
		"uploads":             s.UploadsStarted,
		"downloads":           s.DownloadsStarted,
		"succeeded":           s.ActionsSucceeded,
		"failed":              s.ActionsFailed,
		"bytes":               s.BytesTransferred,
		"progress_events":     s.ProgressEvents,
		"log_decode_errors":   s.LogDecodeErrors,
		"rclone_error_lines":  s.RcloneErrorLines,
		"rclone_launch_fails": s.RcloneLaunchFails,
		"remote":              s.Remote,
	}
}

// Collector accumulates counters during a session.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	uploadsStarted    int64
	downloadsStarted  int64
	actionsSucceeded  int64
	actionsFailed     int64
	bytesTransferred  int64
	progressEvents    int64
	logDecodeErrors   int64
	rcloneErrorLines  int64
	rcloneLaunchFails int64

	remote    string
	sessionID string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(remote, sessionID string) *Collector {
	return &Collector{
		remote:    remote,
		sessionID: sessionID,
	}
}

// --- Actions ---

// IncUploadStarted records the start of an upload.
func (c *Collector) IncUploadStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.uploadsStarted++
	c.mu.Unlock()
}

// IncDownloadStarted records the start of a download.
func (c *Collector) IncDownloadStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.downloadsStarted++
	c.mu.Unlock()
}

// RecordCompletion records the outcome of an action and, on success, its size.
func (c *Collector) RecordCompletion(failed bool, size int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if failed {
		c.actionsFailed++
	} else {
		c.actionsSucceeded++
		c.bytesTransferred += size
	}
	c.mu.Unlock()
}

// --- Log stream ---

// IncProgressEvents records a progress event sent to git-lfs.
func (c *Collector) IncProgressEvents() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.progressEvents++
	c.mu.Unlock()
}

// IncLogDecodeErrors records an rclone log line that was not valid JSON.
func (c *Collector) IncLogDecodeErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.logDecodeErrors++
	c.mu.Unlock()
}

// IncRcloneErrorLines records an error-level rclone log line.
func (c *Collector) IncRcloneErrorLines() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rcloneErrorLines++
	c.mu.Unlock()
}

// IncRcloneLaunchFailure records a failure to start rclone.
func (c *Collector) IncRcloneLaunchFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rcloneLaunchFails++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		UploadsStarted:    c.uploadsStarted,
		DownloadsStarted:  c.downloadsStarted,
		ActionsSucceeded:  c.actionsSucceeded,
		ActionsFailed:     c.actionsFailed,
		BytesTransferred:  c.bytesTransferred,
		ProgressEvents:    c.progressEvents,
		LogDecodeErrors:   c.logDecodeErrors,
		RcloneErrorLines:  c.rcloneErrorLines,
		RcloneLaunchFails: c.rcloneLaunchFails,

		Remote:    c.remote,
		SessionID: c.sessionID,
	}
}
