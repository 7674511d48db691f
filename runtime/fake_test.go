package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/pithecene-io/lfsrclone/types"
)

// fakeProcess is a Process that replays canned stderr and an exit code.
type fakeProcess struct {
	mu       sync.Mutex
	config   *ProcessConfig
	stderr   io.Reader
	exitCode int
	startErr error
	waitErr  error
	onStart  func()
	started  bool
	killed   bool
	waited   bool
}

func (p *fakeProcess) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.started = true
	if p.onStart != nil {
		p.onStart()
	}
	return nil
}

func (p *fakeProcess) Stderr() io.Reader {
	return p.stderr
}

func (p *fakeProcess) Wait() (*ProcessResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waited = true
	if p.waitErr != nil {
		return nil, p.waitErr
	}
	return &ProcessResult{ExitCode: p.exitCode}, nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killed = true
	return nil
}

// fakeRclone hands out fakeProcesses in order and records their configs.
type fakeRclone struct {
	mu        sync.Mutex
	processes []*fakeProcess
	next      int
}

func newFakeRclone(processes ...*fakeProcess) *fakeRclone {
	return &fakeRclone{processes: processes}
}

func (f *fakeRclone) factory(config *ProcessConfig) Process {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.processes[f.next]
	f.next++
	p.config = config
	return p
}

func newFakeProcess(exitCode int, stderrLines ...string) *fakeProcess {
	stderr := strings.Join(stderrLines, "\n")
	if stderr != "" {
		stderr += "\n"
	}
	return &fakeProcess{stderr: strings.NewReader(stderr), exitCode: exitCode}
}

// rcloneStatsLine renders a log line as rclone --use-json-log prints it.
func rcloneStatsLine(bytes int64) string {
	line, _ := json.Marshal(map[string]any{
		"level":  "info",
		"msg":    "Transferred: progress",
		"source": "accounting/stats.go:498",
		"stats": map[string]any{
			"bytes": bytes,
			"transferring": []map[string]any{
				{"bytes": bytes, "name": "obj", "size": 100},
			},
		},
	})
	return string(line)
}

func rcloneErrorLine(msg string) string {
	line, _ := json.Marshal(map[string]any{
		"level": "error",
		"msg":   msg,
	})
	return string(line)
}

// recordingEmitter captures written events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (r *recordingEmitter) Write(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, v)
	return nil
}

func (r *recordingEmitter) progress() []*types.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ProgressEvent
	for _, e := range r.events {
		if p, ok := e.(*types.ProgressEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *recordingEmitter) completes() []*types.CompleteEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.CompleteEvent
	for _, e := range r.events {
		if c, ok := e.(*types.CompleteEvent); ok {
			out = append(out, c)
		}
	}
	return out
}

// lastEvent returns the last written event.
func (r *recordingEmitter) lastEvent(t *testing.T) any {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		t.Fatal("no events written")
	}
	return r.events[len(r.events)-1]
}

var errPipeClosed = errors.New("pipe closed")
