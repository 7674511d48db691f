package runtime

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/pithecene-io/lfsrclone/log"
	"github.com/pithecene-io/lfsrclone/metrics"
	"github.com/pithecene-io/lfsrclone/types"
)

// LogLineKind classifies one line of rclone's JSON log.
type LogLineKind int

const (
	// LogLineOther is a valid line that carries nothing of interest.
	LogLineOther LogLineKind = iota
	// LogLineMalformed is a line that is not a JSON object.
	LogLineMalformed
	// LogLineError is a line logged by rclone at error level.
	LogLineError
	// LogLineProgress is a line with transfer stats.
	LogLineProgress
)

// LogLine is the classification of one rclone log line.
type LogLine struct {
	Kind LogLineKind
	// Message is the error text for LogLineMalformed and LogLineError.
	Message string
	// Bytes is the cumulative byte count for LogLineProgress.
	Bytes int64
}

// rcloneStats is the subset of rclone's stats block that is read.
// Elements are decoded loosely; rclone versions differ in what they report.
type rcloneStats struct {
	Transferring []map[string]any `json:"transferring"`
}

// ParseLogLine classifies one line of rclone's --use-json-log output.
//
// Stats that do not have the expected shape are ignored rather than treated
// as errors: an unexpected schema must never fail a transfer.
func ParseLogLine(line string) LogLine {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return LogLine{Kind: LogLineOther}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return LogLine{
			Kind:    LogLineMalformed,
			Message: fmt.Sprintf("JSONDecodeError: %v, line %s", err, line),
		}
	}

	var level string
	if raw, ok := obj["level"]; ok {
		_ = json.Unmarshal(raw, &level)
	}
	if level == "error" {
		return LogLine{Kind: LogLineError, Message: rawText(obj["msg"])}
	}

	raw, ok := obj["stats"]
	if !ok {
		return LogLine{Kind: LogLineOther}
	}
	var stats rcloneStats
	if err := json.Unmarshal(raw, &stats); err != nil || len(stats.Transferring) == 0 {
		return LogLine{Kind: LogLineOther}
	}
	first := stats.Transferring[0]
	if len(first) == 0 {
		return LogLine{Kind: LogLineOther}
	}

	return LogLine{Kind: LogLineProgress, Bytes: toInt64(first["bytes"])}
}

// rawText returns a JSON string's value, or the raw JSON for anything else.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			return int64(f)
		}
		return i
	default:
		return 0
	}
}

// ProgressFunc receives progress events translated from the log stream.
type ProgressFunc func(*types.ProgressEvent) error

// LogTranslator turns one action's rclone log stream into progress events
// and an error buffer.
type LogTranslator struct {
	oid       string
	size      int64
	prev      int64
	errors    []string
	emit      ProgressFunc
	logger    *log.Logger
	collector *metrics.Collector
}

// NewLogTranslator creates a translator for the object oid of the given size.
func NewLogTranslator(oid string, size int64, emit ProgressFunc, logger *log.Logger, collector *metrics.Collector) *LogTranslator {
	return &LogTranslator{
		oid:       oid,
		size:      size,
		emit:      emit,
		logger:    logger,
		collector: collector,
	}
}

// Consume reads r line by line until EOF.
// Invalid UTF-8 is replaced with U+FFFD. Malformed and error-level lines are
// buffered; a read error other than EOF is buffered and ends the stream.
// The only returned error is a failure to emit a progress event.
func (t *LogTranslator) Consume(r io.Reader) error {
	reader := bufio.NewReader(transform.NewReader(r, unicode.UTF8.NewDecoder()))

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if emitErr := t.handle(line); emitErr != nil {
				return emitErr
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.AddError(fmt.Sprintf("failed to read rclone log: %v", err))
			}
			return nil
		}
	}
}

func (t *LogTranslator) handle(line string) error {
	parsed := ParseLogLine(line)

	switch parsed.Kind {
	case LogLineMalformed:
		t.collector.IncLogDecodeErrors()
		t.logger.Warn("malformed rclone log line", map[string]any{
			"oid":  t.oid,
			"line": strings.TrimRight(line, "\r\n"),
		})
		t.AddError(parsed.Message)
	case LogLineError:
		t.collector.IncRcloneErrorLines()
		t.AddError(parsed.Message)
	case LogLineProgress:
		return t.progress(parsed.Bytes)
	}
	return nil
}

// Finish emits the closing progress event at the declared size, even if
// rclone already reported 100%.
func (t *LogTranslator) Finish() error {
	return t.progress(t.size)
}

func (t *LogTranslator) progress(bytes int64) error {
	event := types.NewProgressEvent(t.oid, bytes, bytes-t.prev)
	t.prev = bytes
	t.collector.IncProgressEvents()
	return t.emit(event)
}

// AddError appends a line to the error buffer.
func (t *LogTranslator) AddError(msg string) {
	t.errors = append(t.errors, msg)
}

// Errors returns the buffered error lines.
func (t *LogTranslator) Errors() []string {
	return t.errors
}
