package crossaudio

import (
	"log/slog"
	"sync"
)

type fluxState int

const (
	fluxNew fluxState = iota
	fluxStarted
	fluxPaused
	fluxStopped
)

// negotiateSignal is returned by a FluxHandle.Start implementation to
// mean "the passed FluxConfig was rewritten in place to a supported
// neighbor; surface Negotiate to the caller." It carries no payload
// because the config mutation already happened on the caller's pointer.
type negotiateSignal struct{}

func (negotiateSignal) Error() string { return "negotiate" }

// ErrNegotiateSignal is the sentinel a backend adapter returns from
// FluxHandle.Start to request a Negotiate outcome.
var ErrNegotiateSignal error = negotiateSignal{}

// Flux is one half-duplex PCM stream bound to an Engine. A Flux is safe
// for concurrent use, except that Start/Stop/Pause must never be called
// from inside the Flux's own process callback. That is a documented
// deadlock, not a defended-against error, matching the real-time
// discipline this module's worker loops assume.
type Flux struct {
	engine *Engine
	handle FluxHandle
	logger *slog.Logger

	mu    sync.Mutex
	state fluxState
	name  string
}

// Engine returns the Engine this Flux is bound to.
func (f *Flux) Engine() *Engine {
	return f.engine
}

// Start validates cfg, negotiates a format with the backend, and spawns
// the Flux's real-time worker. On ErrNegotiate, cfg has been rewritten
// to a backend-supported neighbor and is itself acceptable on retry.
func (f *Flux) Start(cfg *FluxConfig, feedback *FluxFeedback) ErrorKind {
	if cfg == nil {
		return ErrNull
	}
	if cfg.Direction != DirectionIn && cfg.Direction != DirectionOut {
		return Generic
	}
	if cfg.Channels == 0 || cfg.SampleRate == 0 {
		return Generic
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == fluxStarted || f.state == fluxPaused {
		return ErrInit
	}

	if err := f.handle.Start(cfg, feedback); err != nil {
		if err == ErrNegotiateSignal {
			f.logger.Info("flux negotiate", "sampleBits", cfg.SampleBits, "bitFormat", cfg.BitFormat.String())
			return ErrNegotiate
		}
		f.logger.Error("flux start failed", "error", err)
		return classifyEngineError(err)
	}

	f.state = fluxStarted
	f.engine.fluxStreamStarted()
	f.logger.Info("flux started", "direction", cfg.Direction.String(), "rate", cfg.SampleRate, "channels", cfg.Channels)
	return Ok
}

// Stop halts the worker and releases the native stream. Stop is
// idempotent: calling it on a Flux that was never started, or is
// already stopped, returns Ok.
func (f *Flux) Stop() ErrorKind {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != fluxStarted && f.state != fluxPaused {
		return Ok
	}

	if err := f.handle.Stop(); err != nil {
		f.logger.Error("flux stop failed", "error", err)
		return Generic
	}

	f.state = fluxStopped
	f.engine.fluxStreamStopped()
	f.logger.Info("flux stopped")
	return Ok
}

// Pause toggles the paused substate without tearing down the native
// stream. Pause is only valid on a started (or already paused) Flux.
func (f *Flux) Pause(on bool) ErrorKind {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != fluxStarted && f.state != fluxPaused {
		return ErrInit
	}

	if err := f.handle.Pause(on); err != nil {
		f.logger.Error("flux pause failed", "error", err, "pause", on)
		return Generic
	}

	if on {
		f.state = fluxPaused
	} else {
		f.state = fluxStarted
	}
	return Ok
}

// Free releases the Flux's resources. If the Flux is still streaming,
// Free stops it first.
func (f *Flux) Free() ErrorKind {
	if kind := f.Stop(); kind != Ok {
		return kind
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.handle.Free(); err != nil {
		return Generic
	}
	return Ok
}

// NameGet returns the Flux's backend-assigned or caller-assigned name.
func (f *Flux) NameGet() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle.NameGet()
}

// NameSet assigns a name to the Flux's underlying stream, where the
// backend exposes one.
func (f *Flux) NameSet(name string) ErrorKind {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.name = name
	if err := f.handle.NameSet(name); err != nil {
		return Generic
	}
	return Ok
}
