package runtime

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/lfsrclone/types"
)

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want LogLine
	}{
		{
			name: "progress",
			line: `{"level":"info","msg":"x","stats":{"transferring":[{"bytes":1234,"name":"a"}]}}`,
			want: LogLine{Kind: LogLineProgress, Bytes: 1234},
		},
		{
			name: "progress uses first transfer only",
			line: `{"stats":{"transferring":[{"bytes":7},{"bytes":99}]}}`,
			want: LogLine{Kind: LogLineProgress, Bytes: 7},
		},
		{
			name: "progress without bytes counts as zero",
			line: `{"stats":{"transferring":[{"name":"a"}]}}`,
			want: LogLine{Kind: LogLineProgress, Bytes: 0},
		},
		{
			name: "fractional bytes truncated",
			line: `{"stats":{"transferring":[{"bytes":10.9}]}}`,
			want: LogLine{Kind: LogLineProgress, Bytes: 10},
		},
		{
			name: "error level",
			line: `{"level":"error","msg":"disk full"}`,
			want: LogLine{Kind: LogLineError, Message: "disk full"},
		},
		{
			name: "error level wins over stats",
			line: `{"level":"error","msg":"bad","stats":{"transferring":[{"bytes":5}]}}`,
			want: LogLine{Kind: LogLineError, Message: "bad"},
		},
		{
			name: "error level without msg",
			line: `{"level":"error"}`,
			want: LogLine{Kind: LogLineError, Message: ""},
		},
		{
			name: "error level with non-string msg",
			line: `{"level":"error","msg":{"code":5}}`,
			want: LogLine{Kind: LogLineError, Message: `{"code":5}`},
		},
		{
			name: "info without stats",
			line: `{"level":"info","msg":"There was nothing to transfer"}`,
			want: LogLine{Kind: LogLineOther},
		},
		{
			name: "empty transferring",
			line: `{"stats":{"bytes":0,"transferring":[]}}`,
			want: LogLine{Kind: LogLineOther},
		},
		{
			name: "empty first transfer",
			line: `{"stats":{"transferring":[{}]}}`,
			want: LogLine{Kind: LogLineOther},
		},
		{
			name: "transferring not an array",
			line: `{"stats":{"transferring":"lots"}}`,
			want: LogLine{Kind: LogLineOther},
		},
		{
			name: "stats not an object",
			line: `{"stats":42}`,
			want: LogLine{Kind: LogLineOther},
		},
		{
			name: "non-string level",
			line: `{"level":3}`,
			want: LogLine{Kind: LogLineOther},
		},
		{
			name: "blank",
			line: "   \n",
			want: LogLine{Kind: LogLineOther},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLine(tt.line))
		})
	}
}

func TestParseLogLine_Malformed(t *testing.T) {
	for _, line := range []string{"2024/01/01 NOTICE: plain text", `{"level":`, `[1,2,3]`, `42`} {
		got := ParseLogLine(line)
		assert.Equal(t, LogLineMalformed, got.Kind, "line %q", line)
		assert.True(t, strings.HasPrefix(got.Message, "JSONDecodeError: "), "message %q", got.Message)
		assert.Contains(t, got.Message, line)
	}
}

func collectProgress(events *[]*types.ProgressEvent) ProgressFunc {
	return func(p *types.ProgressEvent) error {
		*events = append(*events, p)
		return nil
	}
}

func TestLogTranslator_TracksDeltas(t *testing.T) {
	var events []*types.ProgressEvent
	tr := NewLogTranslator("oid1", 100, collectProgress(&events), nil, nil)

	stream := strings.Join([]string{
		rcloneStatsLine(10),
		rcloneStatsLine(35),
		rcloneStatsLine(35),
	}, "\n") // last line has no trailing newline

	require.NoError(t, tr.Consume(strings.NewReader(stream)))
	require.NoError(t, tr.Finish())

	want := []*types.ProgressEvent{
		types.NewProgressEvent("oid1", 10, 10),
		types.NewProgressEvent("oid1", 35, 25),
		types.NewProgressEvent("oid1", 35, 0),
		types.NewProgressEvent("oid1", 100, 65),
	}
	assert.Equal(t, want, events)
	assert.Empty(t, tr.Errors())
}

func TestLogTranslator_ReplacesInvalidUTF8(t *testing.T) {
	var events []*types.ProgressEvent
	tr := NewLogTranslator("oid1", 1, collectProgress(&events), nil, nil)

	var stream bytes.Buffer
	stream.WriteString("bad bytes \xff\xfe here\n")
	stream.WriteString(rcloneErrorLine("after") + "\n")

	require.NoError(t, tr.Consume(&stream))

	errs := tr.Errors()
	require.Len(t, errs, 2)
	assert.True(t, utf8.ValidString(errs[0]), "buffered line should be valid UTF-8: %q", errs[0])
	assert.Contains(t, errs[0], "�")
	assert.Equal(t, "after", errs[1])
}

type brokenReader struct {
	data io.Reader
}

func (b *brokenReader) Read(p []byte) (int, error) {
	n, err := b.data.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("read |0: file already closed")
	}
	return n, err
}

func TestLogTranslator_ReadErrorIsBuffered(t *testing.T) {
	var events []*types.ProgressEvent
	tr := NewLogTranslator("oid1", 5, collectProgress(&events), nil, nil)

	r := &brokenReader{data: strings.NewReader(rcloneStatsLine(2) + "\n")}
	require.NoError(t, tr.Consume(r))

	require.Len(t, events, 1)
	require.Len(t, tr.Errors(), 1)
	assert.Contains(t, tr.Errors()[0], "file already closed")
}

func TestLogTranslator_EmitErrorStopsStream(t *testing.T) {
	calls := 0
	tr := NewLogTranslator("oid1", 5, func(*types.ProgressEvent) error {
		calls++
		return errPipeClosed
	}, nil, nil)

	stream := rcloneStatsLine(1) + "\n" + rcloneStatsLine(2) + "\n"
	err := tr.Consume(strings.NewReader(stream))
	assert.ErrorIs(t, err, errPipeClosed)
	assert.Equal(t, 1, calls)
}
