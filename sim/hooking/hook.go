// Package hooking lets observers attach to components without the components
// knowing who is listening.
package hooking

// A HookPos names a point in a component where hooks are invoked.
type HookPos struct {
	Name string
}

// HookCtx describes one invocation of the hooks.
type HookCtx struct {
	// Domain is the component that invokes the hooks.
	Domain Hookable
	Pos    *HookPos

	// Item is the main object of the invocation, such as an operation or a
	// check record. Detail carries optional extra data for the position.
	Item   any
	Detail any
}

// Hookable is a component that hooks can attach to.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// A Hook is invoked at every hook position of the components it attaches to.
// Hooks that care about a single position check ctx.Pos.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase implements Hookable. Embed it and call InvokeHook.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of attached hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns the attached hooks in the order they were attached.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook attaches a hook. Attaching the same hook value twice panics,
// except for HookFuncs, which cannot be compared.
func (h *HookableBase) AcceptHook(hook Hook) {
	if _, isFunc := hook.(HookFunc); !isFunc {
		for _, registered := range h.hookList {
			if registered == hook {
				panic("duplicated hook")
			}
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook calls all the attached hooks in order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
