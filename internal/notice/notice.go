// Package notice carries user-visible, non-blocking messages (toasts) produced
// while serving a request.
package notice

import (
	"io"
	"log"
	"sync"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Sink receives notices.
type Sink interface {
	Notify(n Notice)
}

func Info(s Sink, msg string)    { notify(s, LevelInfo, msg) }
func Success(s Sink, msg string) { notify(s, LevelSuccess, msg) }
func Error(s Sink, msg string)   { notify(s, LevelError, msg) }

func notify(s Sink, level Level, msg string) {
	if s == nil {
		return
	}
	s.Notify(Notice{Level: level, Message: msg})
}

// Collector buffers the notices of a single request. Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Notify(n Notice) {
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
}

// Notices returns a copy of everything collected so far, never nil.
func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

type loggingSink struct {
	next   Sink
	logger *log.Logger
}

// Logged forwards to next and also writes error notices to logger.
func Logged(next Sink, logger *log.Logger) Sink {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &loggingSink{next: next, logger: logger}
}

func (s *loggingSink) Notify(n Notice) {
	if n.Level == LevelError {
		s.logger.Printf("notice: level=%s message=%q", n.Level, n.Message)
	}
	notify(s.next, n.Level, n.Message)
}
