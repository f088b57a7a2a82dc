package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/storage/kv/memkv"
)

// LogEntry is a message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger recording every entry.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("fatal", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}

// Count returns the number of entries logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// FailingKV wraps a core.KVStore and fails every Set once FailWrites is true.
type FailingKV struct {
	core.KVStore
	FailWrites bool
	Sets       int
}

var ErrWriteFailed = fmt.Errorf("write failed")

func NewFailingKV() *FailingKV {
	return &FailingKV{KVStore: memkv.Open()}
}

func (kv *FailingKV) Set(ctx context.Context, key, value string) error {
	if kv.FailWrites {
		return ErrWriteFailed
	}
	kv.Sets++
	return kv.KVStore.Set(ctx, key, value)
}

// Put stores value under key, failing t on error.
func Put(t *testing.T, kv core.KVStore, key, value string) {
	t.Helper()
	if err := kv.Set(context.Background(), key, value); err != nil {
		t.Fatalf("Put(%q) failed: %v", key, err)
	}
}

// Get returns the value stored under key, failing t on error.
func Get(t *testing.T, kv core.KVStore, key string) string {
	t.Helper()
	val, err := kv.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return val
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }
