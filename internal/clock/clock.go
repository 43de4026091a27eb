// Package clock provides the two time domains the scheduler works with.
//
// ProcessMs values come from a millisecond counter that restarts at zero
// every time the server process starts. CalendarHours values come from the
// in-game calendar, which keeps counting across restarts. The two types do
// not convert into each other implicitly.
package clock

import (
	"sync"
	"time"
)

// ProcessMs is a timestamp on the process clock, in milliseconds.
type ProcessMs int64

// Add returns t shifted by d (truncated to whole milliseconds).
func (t ProcessMs) Add(d time.Duration) ProcessMs {
	return t + ProcessMs(d/time.Millisecond)
}

// Sub returns the duration t-u.
func (t ProcessMs) Sub(u ProcessMs) time.Duration {
	return time.Duration(t-u) * time.Millisecond
}

func (t ProcessMs) Before(u ProcessMs) bool { return t < u }
func (t ProcessMs) After(u ProcessMs) bool  { return t > u }
func (t ProcessMs) IsZero() bool            { return t == 0 }

// Int64 exposes the raw value for storage.
func (t ProcessMs) Int64() int64 { return int64(t) }

// CalendarHours is a point on the in-game calendar, in hours.
type CalendarHours float64

// AddHours returns h shifted by the given number of hours.
func (h CalendarHours) AddHours(hours float64) CalendarHours {
	return h + CalendarHours(hours)
}

// Hours returns h-o in hours.
func (h CalendarHours) Hours(o CalendarHours) float64 {
	return float64(h - o)
}

func (h CalendarHours) Float64() float64 { return float64(h) }

// Process yields process-clock timestamps.
type Process interface {
	NowMs() ProcessMs
}

// Calendar yields calendar timestamps.
type Calendar interface {
	NowHours() CalendarHours
}

// ProcessClock counts milliseconds since it was created.
type ProcessClock struct {
	start time.Time
}

func NewProcessClock() *ProcessClock {
	return &ProcessClock{start: time.Now()}
}

func (c *ProcessClock) NowMs() ProcessMs {
	return ProcessMs(time.Since(c.start) / time.Millisecond)
}

// GameCalendar advances the in-game calendar from a persisted epoch at a fixed
// rate. NowHours never returns a value older than one it already returned.
type GameCalendar struct {
	mu          sync.Mutex
	epoch       CalendarHours
	start       time.Time
	hoursPerSec float64
	last        CalendarHours
	now         func() time.Time
}

// NewGameCalendar resumes the calendar at epoch.
func NewGameCalendar(epoch CalendarHours, hoursPerSecond float64) *GameCalendar {
	return &GameCalendar{
		epoch:       epoch,
		start:       time.Now(),
		hoursPerSec: hoursPerSecond,
		last:        epoch,
		now:         time.Now,
	}
}

func (c *GameCalendar) NowHours() CalendarHours {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := c.now().Sub(c.start).Seconds()
	h := c.epoch.AddHours(elapsed * c.hoursPerSec)
	if h < c.last {
		// wall clock stepped back; the calendar does not
		return c.last
	}
	c.last = h
	return h
}

// Manual is a hand-driven clock for both domains. Tests and tools use it.
type Manual struct {
	mu    sync.Mutex
	ms    ProcessMs
	hours CalendarHours
}

func NewManual(ms ProcessMs, hours CalendarHours) *Manual {
	return &Manual{ms: ms, hours: hours}
}

func (m *Manual) NowMs() ProcessMs {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ms
}

func (m *Manual) NowHours() CalendarHours {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hours
}

// Set moves the process clock to ms. Setting a lower value simulates a restart.
func (m *Manual) Set(ms ProcessMs) {
	m.mu.Lock()
	m.ms = ms
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.ms = m.ms.Add(d)
	m.mu.Unlock()
}

func (m *Manual) SetHours(h CalendarHours) {
	m.mu.Lock()
	m.hours = h
	m.mu.Unlock()
}

func (m *Manual) AdvanceHours(hours float64) {
	m.mu.Lock()
	m.hours = m.hours.AddHours(hours)
	m.mu.Unlock()
}
