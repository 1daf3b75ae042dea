// Package reporting provides the severity based logging of the testbench.
package reporting

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/sarchlab/vaiverif/sim/timing"
)

// Severity is the importance of a message.
type Severity int

// Severities from the least to the most important.
const (
	Debug Severity = iota
	Info
	Warning
	Error
	Critical
	numSeverity
)

var severityNames = [numSeverity]string{
	"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL",
}

func (s Severity) String() string {
	if s < 0 || s >= numSeverity {
		return fmt.Sprintf("Severity(%d)", int(s))
	}

	return severityNames[s]
}

// ParseSeverity converts a name such as "info" or "WARNING" to a severity.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, name) {
			return Severity(i), nil
		}
	}

	return Debug, fmt.Errorf("unknown severity %q", name)
}

type tally struct {
	counts [numSeverity]int
}

// A Logger prints messages tagged with a severity and the name of the
// component that produced them. Loggers derived with Child share the output
// and the message counts.
type Logger struct {
	*log.Logger

	name      string
	verbosity *Severity
	clock     timing.TimeTeller
	tally     *tally
}

// NewLogger creates a logger that writes to w and prints messages of
// severity Info and above.
func NewLogger(w io.Writer, name string) *Logger {
	verbosity := Info

	return &Logger{
		Logger:    log.New(w, "", 0),
		name:      name,
		verbosity: &verbosity,
		tally:     &tally{},
	}
}

// Child returns a logger for a sub-component.
func (l *Logger) Child(name string) *Logger {
	child := *l
	child.name = name

	return &child
}

// Name returns the component name printed with every message.
func (l *Logger) Name() string {
	return l.name
}

// WithClock makes the logger print the simulated time. It affects all the
// loggers derived from l afterwards.
func (l *Logger) WithClock(clock timing.TimeTeller) *Logger {
	l.clock = clock
	return l
}

// SetVerbosity hides the messages below the given severity. The setting is
// shared with all the related loggers.
func (l *Logger) SetVerbosity(s Severity) {
	*l.verbosity = s
}

// Verbosity returns the lowest severity that is printed.
func (l *Logger) Verbosity() Severity {
	return *l.verbosity
}

// Logf prints a message. Messages are counted even when they are hidden.
func (l *Logger) Logf(s Severity, format string, args ...any) {
	if s >= 0 && s < numSeverity {
		l.tally.counts[s]++
	}

	if s < *l.verbosity {
		return
	}

	msg := fmt.Sprintf(format, args...)

	if l.clock != nil {
		l.Printf("%12.2fns %-8s %s: %s",
			l.clock.Now()/timing.NS, s, l.name, msg)
		return
	}

	l.Printf("%-8s %s: %s", s, l.name, msg)
}

// Debugf prints a debug message.
func (l *Logger) Debugf(format string, args ...any) {
	l.Logf(Debug, format, args...)
}

// Infof prints an informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.Logf(Info, format, args...)
}

// Warningf prints a warning.
func (l *Logger) Warningf(format string, args ...any) {
	l.Logf(Warning, format, args...)
}

// Errorf prints an error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.Logf(Error, format, args...)
}

// Criticalf prints a critical message.
func (l *Logger) Criticalf(format string, args ...any) {
	l.Logf(Critical, format, args...)
}

// Count returns how many messages of the severity have been logged through
// this logger family.
func (l *Logger) Count(s Severity) int {
	if s < 0 || s >= numSeverity {
		return 0
	}

	return l.tally.counts[s]
}

// Summary returns the message counts, as in "INFO: 40, WARNING: 1".
// Severities without messages are left out.
func (l *Logger) Summary() string {
	parts := make([]string, 0, numSeverity)

	for s := Debug; s < numSeverity; s++ {
		if l.tally.counts[s] == 0 {
			continue
		}

		parts = append(parts, fmt.Sprintf("%s: %d", s, l.tally.counts[s]))
	}

	if len(parts) == 0 {
		return "no messages"
	}

	return strings.Join(parts, ", ")
}
