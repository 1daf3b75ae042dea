package reporting

import (
	"fmt"

	"github.com/sarchlab/vaiverif/sim/hooking"
)

// LogHookBase provides the common logic for all the hooks that log.
type LogHookBase struct {
	*Logger
}

// A LogHook prints every hook invocation at the debug level.
type LogHook struct {
	LogHookBase

	severity Severity
}

// NewLogHook creates a hook that logs through the given logger.
func NewLogHook(logger *Logger) *LogHook {
	return &LogHook{
		LogHookBase: LogHookBase{Logger: logger},
		severity:    Debug,
	}
}

// WithSeverity changes the severity that the hook logs at.
func (h *LogHook) WithSeverity(s Severity) *LogHook {
	h.severity = s
	return h
}

// Func logs the hook position and the item.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	name := ""
	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		name = named.Name() + " "
	}

	msg := fmt.Sprintf("%s%s: %v", name, ctx.Pos.Name, ctx.Item)
	if ctx.Detail != nil {
		msg += fmt.Sprintf(" (%v)", ctx.Detail)
	}

	h.Logf(h.severity, "%s", msg)
}
