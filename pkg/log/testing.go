package log

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// sink は TestLogger とその With 派生で共有される出力先
type sink struct {
	mu    sync.Mutex
	buf   *bytes.Buffer
	level Level
}

func (s *sink) enabled(level Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return level >= s.level
}

func (s *sink) writeLine(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(line)
	s.buf.WriteByte('\n')
}

func (s *sink) snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// TestLogger records every log call as one JSON object per line, so tests can
// assert on messages and fields. Loggers derived with With share the buffer,
// and concurrent evaluation workers may log into it safely.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	logger.Info("Models have been evaluated", log.SamplesKey, 120)
//	_ = buf.String()
type TestLogger struct {
	out    *sink
	fields map[string]interface{}
}

// NewTestLogger returns a logger that drops records below level.
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &TestLogger{out: &sink{buf: buf, level: level}, fields: map[string]interface{}{}}, buf
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.emit(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.emit(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.emit(LevelWarn, msg, fields) }

// Error stores a leading error argument under ErrAttrKey, like the zerolog logger.
func (t *TestLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttrKey, err}, fields[1:]...)
		}
	}
	t.emit(LevelError, msg, fields)
}

func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]interface{}, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		merged[k] = v
	}
	putPairs(merged, fields)
	return &TestLogger{out: t.out, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.out.enabled(level)
}

func (t *TestLogger) emit(level Level, msg string, fields []any) {
	if !t.out.enabled(level) {
		return
	}
	record := make(map[string]interface{}, len(t.fields)+len(fields)/2+2)
	for k, v := range t.fields {
		record[k] = v
	}
	putPairs(record, fields)
	record["level"] = level.String()
	record["message"] = msg

	line, err := json.Marshal(record)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"level":%q,"message":%q,"marshal_error":%q}`, level.String(), msg, err.Error()))
	}
	t.out.writeLine(line)
}

// putPairs は key/value の並びを dst に書き込む。error 値は文字列化し、余った key は捨てる
func putPairs(dst map[string]interface{}, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if err, ok := kv[i+1].(error); ok {
			dst[key] = err.Error()
		} else {
			dst[key] = kv[i+1]
		}
	}
}

// GetLogEntries decodes the captured lines. Numbers come back as float64.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	sc := bufio.NewScanner(strings.NewReader(t.out.snapshot()))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e map[string]interface{}
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// ContainsMessage is a substring search over the raw output.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.out.snapshot(), message)
}

// ContainsField reports whether some record has key equal to value.
// Compare numbers as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if v, ok := e[key]; ok && v == value {
			return true
		}
	}
	return false
}

// TestLoggerProvider hands out TestLoggers that all write to one buffer.
type TestLoggerProvider struct {
	root *TestLogger
}

func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	root, buf := NewTestLogger(level)
	return &TestLoggerProvider{root: root}, buf
}

func (p *TestLoggerProvider) GetLogger() Logger { return p.root }

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.root.With(ComponentKey, name)
}

// SetLevel also applies to loggers already handed out.
func (p *TestLoggerProvider) SetLevel(level Level) {
	p.root.out.mu.Lock()
	p.root.out.level = level
	p.root.out.mu.Unlock()
}

// Logger exposes the root TestLogger for assertions.
func (p *TestLoggerProvider) Logger() *TestLogger { return p.root }
