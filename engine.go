package crossaudio

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type engineState int

const (
	engineConstructed engineState = iota
	engineStarted
	engineStopped
)

// Engine is a per-backend session: the connection to one host audio
// server, the application's identity as seen by that host, and the
// current node inventory. An Engine is safe for concurrent use.
type Engine struct {
	tag       BackendTag
	handle    EngineHandle
	logger    *slog.Logger
	SessionID uuid.UUID

	mu     sync.Mutex
	state  engineState
	name   string
	nodes  map[string]Node
	fluxN  int
	closed bool

	feedback *EngineFeedback
	events   chan NodeEvent
}

// EngineNew constructs an Engine bound to the backend identified by tag.
// The backend must already have been made available via BackendInit.
func EngineNew(tag BackendTag, logger *slog.Logger) (*Engine, ErrorKind) {
	if logger == nil {
		logger = slog.Default()
	}

	adapter, err := adapterFor(tag)
	if err != nil {
		logger.Warn("engine_new: backend not registered", "backend", tag.String())
		return nil, ErrLibrary
	}

	id := uuid.New()
	handle, err := adapter.NewEngine(logger.With("backend", tag.String(), "session", id.String()))
	if err != nil {
		logger.Error("engine_new: adapter construction failed", "backend", tag.String(), "error", err)
		return nil, Generic
	}
	if handle == nil {
		return nil, ErrNull
	}

	return &Engine{
		tag:       tag,
		handle:    handle,
		logger:    logger.With("backend", tag.String(), "session", id.String()),
		SessionID: id,
		nodes:     make(map[string]Node),
		events:    make(chan NodeEvent, 32),
	}, Ok
}

// Free releases the Engine's native handle. Free on an Engine with live
// Fluxes returns ErrBusy; stop those Fluxes first. Free is idempotent: a
// second call on an already-freed Engine is a no-op returning Ok.
func (e *Engine) Free() ErrorKind {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return Ok
	}
	if e.fluxN > 0 {
		return ErrBusy
	}

	if err := e.handle.Free(); err != nil {
		e.logger.Error("engine free failed", "error", err)
		return Generic
	}
	e.closed = true
	close(e.events)
	return Ok
}

// Start connects to the host audio server and seeds the node inventory.
// feedback, if non-nil, is invoked for every hot-plug transition in
// addition to the transition being posted to Events().
func (e *Engine) Start(feedback *EngineFeedback) ErrorKind {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == engineStarted {
		return ErrInit
	}

	e.feedback = feedback

	internal := &EngineFeedback{
		NodeAdded:   e.onNodeAdded,
		NodeRemoved: e.onNodeRemoved,
	}

	if err := e.handle.Start(internal); err != nil {
		e.logger.Error("engine start failed", "error", err)
		return classifyEngineError(err)
	}

	if e.name != "" {
		if err := e.handle.NameSet(e.name); err != nil {
			e.logger.Warn("propagating pre-connection name failed", "name", e.name, "error", err)
		}
	}

	nodes, err := e.handle.NodesGet()
	if err != nil {
		e.logger.Warn("initial node enumeration failed", "error", err)
		nodes = &NodeList{}
	}
	for _, n := range nodes.Items {
		e.nodes[n.ID] = n
	}

	e.state = engineStarted
	e.logger.Info("engine started", "nodes", len(e.nodes))
	return Ok
}

// Stop disconnects from the host audio server. All Fluxes on this
// Engine must already be stopped; Stop returns ErrBusy while any of
// them is started or paused. Stop on an Engine that was never started, or is already
// stopped, is a no-op returning Ok.
func (e *Engine) Stop() ErrorKind {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != engineStarted {
		return Ok
	}
	if e.fluxN > 0 {
		return ErrBusy
	}

	if err := e.handle.Stop(); err != nil {
		e.logger.Error("engine stop failed", "error", err)
		return Generic
	}

	e.state = engineStopped
	e.feedback = nil
	e.logger.Info("engine stopped")
	return Ok
}

// NameGet returns the application name presented to the host.
func (e *Engine) NameGet() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == engineStarted {
		return e.handle.NameGet()
	}
	return e.name
}

// NameSet updates the application name. It always updates the
// pre-connection property bag and, if the Engine is started, also
// propagates the change to the live connection.
func (e *Engine) NameSet(name string) ErrorKind {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.name = name
	if e.state != engineStarted {
		return Ok
	}
	if err := e.handle.NameSet(name); err != nil {
		return Generic
	}
	return Ok
}

// NodesGet returns a disjoint snapshot of the current node inventory.
// Later hot-plug events never mutate an already-returned snapshot. On
// an unstarted Engine this returns an empty, non-nil NodeList rather
// than an error, matching the original implementation's behavior of
// always allocating a (possibly zero-length) node array.
func (e *Engine) NodesGet() (*NodeList, ErrorKind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := make([]Node, 0, len(e.nodes))
	for _, n := range e.nodes {
		items = append(items, n)
	}
	return &NodeList{Items: items}, Ok
}

// Events exposes hot-plug transitions as a Go channel, in addition to
// the EngineFeedback callback contract. The channel is buffered and
// never blocks the adapter's hot-plug thread: an event is dropped from
// the channel (but not from the node inventory or the EngineFeedback
// callback) if the consumer falls behind.
func (e *Engine) Events() <-chan NodeEvent {
	return e.events
}

// postEvent delivers ev on e.events, holding e.mu for the send so it can
// never race Free's close(e.events): Free closes the channel under the
// same lock, so a send that observes e.closed == false here is
// guaranteed to land before, not after, the close.
func (e *Engine) postEvent(ev NodeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("dropped node event: Events() consumer too slow", "node", ev.Node.ID, "added", ev.Added)
	}
}

func (e *Engine) onNodeAdded(n Node) {
	e.mu.Lock()
	e.nodes[n.ID] = n
	feedback := e.feedback
	e.mu.Unlock()

	if feedback != nil && feedback.NodeAdded != nil {
		feedback.NodeAdded(n)
	}
	e.postEvent(NodeEvent{Node: n, Added: true})
}

func (e *Engine) onNodeRemoved(n Node) {
	e.mu.Lock()
	delete(e.nodes, n.ID)
	feedback := e.feedback
	e.mu.Unlock()

	if feedback != nil && feedback.NodeRemoved != nil {
		feedback.NodeRemoved(n)
	}
	e.postEvent(NodeEvent{Node: n, Added: false})
}

// FluxNew creates a new Flux bound to this Engine.
func (e *Engine) FluxNew() (*Flux, ErrorKind) {
	e.mu.Lock()
	handle, err := e.handle.NewFlux()
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("flux_new failed", "error", err)
		return nil, Generic
	}
	e.mu.Unlock()

	return &Flux{
		engine: e,
		handle: handle,
		logger: e.logger,
	}, Ok
}

// fluxStreamStarted/fluxStreamStopped track how many Fluxes on this
// Engine currently have a live stream (Started or Paused), so Stop can
// refuse with ErrBusy rather than tear down an Engine out from under a
// running Flux.
func (e *Engine) fluxStreamStarted() {
	e.mu.Lock()
	e.fluxN++
	e.mu.Unlock()
}

func (e *Engine) fluxStreamStopped() {
	e.mu.Lock()
	e.fluxN--
	e.mu.Unlock()
}

func classifyEngineError(err error) ErrorKind {
	if kind, ok := err.(ErrorKind); ok {
		return kind
	}
	return Generic
}
