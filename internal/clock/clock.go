// Package clock abstracts the wall clock so that date stamping of departures
// and the default query time can be pinned in tests.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ServiceDateLayout is the date part of every departure timestamp.
const ServiceDateLayout = "2006-01-02"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// TodayUTC returns the clock's current calendar date in UTC as YYYY-MM-DD.
func TodayUTC(c Clock) string {
	return c.Now().UTC().Format(ServiceDateLayout)
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a thread-safe, manually driven clock for tests.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

// Set moves the clock to t.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the clock by d, which may be negative.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// EnvironmentClock reads the current time from an environment variable on
// every call and falls back to system time when the variable is unset or
// unparsable. Used for end-to-end tests of a running binary.
type EnvironmentClock struct {
	envVar string
}

func NewEnvironmentClock(envVar string) *EnvironmentClock {
	return &EnvironmentClock{envVar: envVar}
}

func (e *EnvironmentClock) Now() time.Time {
	t, err := e.read()
	if err != nil {
		slog.Debug("environment clock falling back to system time",
			slog.String("env_var", e.envVar), slog.String("reason", err.Error()))
		return time.Now()
	}
	return t
}

func (e *EnvironmentClock) read() (time.Time, error) {
	if e.envVar == "" {
		return time.Time{}, errors.New("environment variable name not configured")
	}
	raw := strings.TrimSpace(os.Getenv(e.envVar))
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is empty", e.envVar)
	}
	return ParseTime(raw)
}

// ParseTime accepts RFC3339 or a zone-less "2006-01-02T15:04:05" /
// "2006-01-02 15:04:05", the latter two read as UTC.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q", s)
}
