/*
Copyright © 2026 Kiln Authors <dev@kilnware.dev>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package buildlog defines the structured log entries a build accumulates
// and the sink interface components write them to. There is no package-level
// logger; every component receives its sink explicitly.
package buildlog

import (
	"log/slog"
	"sync"
)

// Severity classifies a log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Entry is one build log record. File and Line reference the originating
// source unit when the entry was produced while processing one.
type Entry struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// File is the source path relative to its root, empty for
	// stage-level entries.
	File string `json:"file,omitempty"`

	// Line is 1-indexed, 0 when unknown.
	Line int `json:"line,omitempty"`
}

// Sink receives log entries. Implementations must be safe for use from
// multiple goroutines.
type Sink interface {
	Log(e Entry)
}

// Collector is a Sink that retains every entry in arrival order. The
// orchestrator uses one to assemble the build result.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Log implements Sink.
func (c *Collector) Log(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

// Entries returns a copy of the collected entries.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// SlogSink adapts a *slog.Logger to the Sink interface.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps logger. A nil logger falls back to slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Log implements Sink.
func (s *SlogSink) Log(e Entry) {
	attrs := make([]any, 0, 4)
	if e.File != "" {
		attrs = append(attrs, slog.String("file", e.File))
	}
	if e.Line > 0 {
		attrs = append(attrs, slog.Int("line", e.Line))
	}
	switch e.Severity {
	case SeverityError:
		s.logger.Error(e.Message, attrs...)
	case SeverityWarning:
		s.logger.Warn(e.Message, attrs...)
	default:
		s.logger.Info(e.Message, attrs...)
	}
}

type multiSink []Sink

func (m multiSink) Log(e Entry) {
	for _, s := range m {
		s.Log(e)
	}
}

// Tee returns a Sink that forwards every entry to all of the given sinks.
func Tee(sinks ...Sink) Sink {
	return multiSink(sinks)
}

// Discard is a Sink that drops everything. Useful in tests.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(Entry) {}
