package tapetui

// ComponentId is an opaque, stable identifier for a registered
// component. It is unique per Runtime instance and never reused, even
// after the component it names is no longer reachable from the root
// (components are never individually destroyed — spec §3).
type ComponentId uint64

// RenderResult is what a Component produces for a given content width:
// an ordered line list plus an optional self-relative cursor position
// (Row relative to this component's own output, Col a cell column).
type RenderResult struct {
	Lines  []Line
	Cursor *CursorPos
}

// Component is the contract every piece of rendered UI satisfies. It
// is intentionally minimal: concrete widgets (editor, input, list,
// markdown, image) are out of scope for this module (spec §1) and are
// expected to live in separate packages that only depend on this
// interface.
type Component interface {
	// Render produces lines for the given content width. Implementations
	// must not emit lines whose visible width exceeds width; the
	// renderer's width-overflow guard (spec §4.2 step 8) exists only to
	// catch violations, not to be relied upon.
	Render(width int) RenderResult

	// Invalidate discards any cached rendering state. Called on theme
	// change or whenever a component must be forced to re-render from
	// scratch.
	Invalidate()
}

// InputHandler is an optional capability for components that accept
// routed input events. Return true to consume the event and stop it
// from reaching the fallback target (spec §4.7).
type InputHandler interface {
	HandleInput(ctx EventContext, ev InputEvent) bool
}

// KeyReleaseAware is an optional capability. Components must opt in to
// receiving Key Release events; absent this capability (or when it
// returns false), a Release event is treated as declined and routing
// falls through to the fallback target (spec §4.7).
type KeyReleaseAware interface {
	WantsKeyRelease() bool
}

// Focusable is an optional capability for components that care about
// gaining/losing keyboard focus.
type Focusable interface {
	SetFocused(focused bool)
}

// EventContext accompanies every input event dispatched to an
// InputHandler (custom commands receive a CustomCommandContext
// instead). It carries no cancellation semantics of its own — the
// Runtime is single-threaded cooperative, so there is nothing to
// cancel mid-tick — but exposes the Runtime for components that need
// to enqueue commands in response to an event.
type EventContext struct {
	Runtime *Runtime
	Source  ComponentId
}

// ComponentRegistry owns components by a stable, opaque id and hands
// out mutable access by id. All mutation happens on the runtime's
// single loop thread, so no internal locking is required — the
// registry is a plain map keyed by id.
type ComponentRegistry struct {
	next       ComponentId
	components map[ComponentId]Component
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{components: make(map[ComponentId]Component)}
}

// Register assigns a new, never-reused id to comp and returns it.
// Components are never individually removed from the registry: once
// registered, an id resolves to the same component for the lifetime of
// the Runtime (spec §3, Component lifecycle).
func (r *ComponentRegistry) Register(comp Component) ComponentId {
	r.next++
	id := r.next
	r.components[id] = comp
	return id
}

// Get returns the component registered under id, or (nil, false) if
// the id has never been registered.
func (r *ComponentRegistry) Get(id ComponentId) (Component, bool) {
	c, ok := r.components[id]
	return c, ok
}

// MustGet returns the component registered under id, or nil.
func (r *ComponentRegistry) MustGet(id ComponentId) Component {
	return r.components[id]
}
