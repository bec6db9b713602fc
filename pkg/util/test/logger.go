package test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-kit/log"
	"go.uber.org/atomic"
)

var _ log.Logger = (*TestingLogger)(nil)

// TestingLogger forwards log lines to t.Log and remembers them so tests can
// assert on what was logged.
type TestingLogger struct {
	t    testing.TB
	mtx  sync.Mutex
	done atomic.Bool

	lines []string
}

func NewTestingLogger(t testing.TB) *TestingLogger {
	l := &TestingLogger{t: t}
	t.Cleanup(func() {
		l.done.Store(true)
	})
	return l
}

func (l *TestingLogger) Log(keyvals ...interface{}) error {
	if l.done.Load() {
		return nil
	}

	line := fmt.Sprintln(keyvals...)

	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.lines = append(l.lines, strings.TrimSpace(line))
	if !l.done.Load() {
		l.t.Log(keyvals...)
	}
	return nil
}

// Contains reports whether any logged line contains s.
func (l *TestingLogger) Contains(s string) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

// Lines returns a copy of everything logged so far.
func (l *TestingLogger) Lines() []string {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return append([]string(nil), l.lines...)
}
