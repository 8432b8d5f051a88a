package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-modbus/internal/register"
)

// mockSubscriber records command subscriptions.
type mockSubscriber struct {
	mu       sync.Mutex
	handlers map[string]func(topic string, payload []byte) error
	calls    int
	err      error
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{handlers: make(map[string]func(string, []byte) error)}
}

func (m *mockSubscriber) SubscribeCommandHandler(instance int, topicSuffix string, handler func(string, []byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.handlers[topicKey(instance, topicSuffix)] = handler
	return nil
}

// deliver simulates the bus delivering a message.
func (m *mockSubscriber) deliver(instance int, topicSuffix, payload string) error {
	m.mu.Lock()
	handler, ok := m.handlers[topicKey(instance, topicSuffix)]
	m.mu.Unlock()
	if !ok {
		return errors.New("no handler subscribed")
	}
	return handler("test/"+topicSuffix+"/command", []byte(payload))
}

func (m *mockSubscriber) subscribed(instance int, topicSuffix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[topicKey(instance, topicSuffix)]
	return ok
}

func (m *mockSubscriber) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func topicKey(instance int, suffix string) string {
	return fmt.Sprintf("%d/%s", instance, suffix)
}

// mockWriter records register writes and can fail the nth call.
type mockWriter struct {
	mu     sync.Mutex
	writes []register.Write
	calls  int
	failAt int // 1-based call number that fails; 0 never fails
	err    error
}

func (m *mockWriter) WriteRegister(_ context.Context, address uint16, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAt != 0 && m.calls == m.failAt {
		if m.err != nil {
			return m.err
		}
		return errors.New("modbus: exception 'server device failure'")
	}
	m.writes = append(m.writes, register.Write{Address: address, Value: value})
	return nil
}

func (m *mockWriter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockWriter) getWrites() []register.Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]register.Write, len(m.writes))
	copy(out, m.writes)
	return out
}

// logEntry is one captured log call.
type logEntry struct {
	level string
	msg   string
}

// recordingLogger captures log calls by level.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

func (l *recordingLogger) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// mockRecorder captures recorded commands.
type mockRecorder struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (m *mockRecorder) RecordCommand(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func (m *mockRecorder) last() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return Record{}
	}
	return m.records[len(m.records)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
