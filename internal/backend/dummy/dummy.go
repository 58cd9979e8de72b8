// Package dummy implements the always-available CrossAudio-Go backend
// used by the test suite and by applications running without a sound
// card. Its Engine reports a single fixed input node and a single fixed
// output node; its capture Flux drives a deterministic sine oscillator
// so round-trip and pause/resume tests have an assertable signal to
// verify against, and its playback Flux discards whatever it is handed.
package dummy

import (
	"encoding/binary"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crossaudio-go/crossaudio"
	"github.com/crossaudio-go/crossaudio/internal/pcmformat"
	"github.com/crossaudio-go/crossaudio/internal/ringbuffer"
)

func init() {
	crossaudio.RegisterBackend(crossaudio.Dummy, func() crossaudio.Adapter { return &adapter{} })
}

const oscillatorHz = 440.0

type adapter struct{}

func (a *adapter) Name() string    { return "dummy" }
func (a *adapter) Version() string { return "1.0" }
func (a *adapter) Init() error     { return nil }
func (a *adapter) Deinit() error   { return nil }

func (a *adapter) NewEngine(logger *slog.Logger) (crossaudio.EngineHandle, error) {
	return &engine{logger: logger}, nil
}

type engine struct {
	logger *slog.Logger

	mu   sync.Mutex
	name string
}

func (e *engine) Start(feedback *crossaudio.EngineFeedback) error {
	// The dummy backend's node inventory never changes, so it never
	// calls feedback.NodeAdded/NodeRemoved after Start's initial
	// enumeration.
	return nil
}

func (e *engine) Stop() error { return nil }

func (e *engine) NameGet() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

func (e *engine) NameSet(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.name = name
	return nil
}

func (e *engine) NodesGet() (*crossaudio.NodeList, error) {
	return &crossaudio.NodeList{Items: []crossaudio.Node{
		{ID: "dummy-in", Name: "Dummy Input", Direction: crossaudio.DirectionIn},
		{ID: "dummy-out", Name: "Dummy Output", Direction: crossaudio.DirectionOut},
	}}, nil
}

func (e *engine) NewFlux() (crossaudio.FluxHandle, error) {
	return &flux{logger: e.logger}, nil
}

func (e *engine) Free() error { return nil }

// flux is the dummy backend's FluxHandle. It has no native stream to
// speak of, but implements the same worker-loop shape (dedicated
// goroutine, atomic halt flag, pause via a shared sync.Cond) that a
// real backend's adapter uses, so tests exercising Flux's state machine
// and pause/stop protocol behave the same way against dummy as they
// would against a hardware-backed adapter.
type flux struct {
	logger *slog.Logger

	mu   sync.Mutex
	name string

	condMu sync.Mutex
	cond   *sync.Cond
	halt   atomic.Bool
	paused atomic.Bool
	wg     sync.WaitGroup

	// ring stands in for the hardware-owned buffer a real backend's
	// device driver maintains: a simulated-hardware goroutine drains it
	// (playback) or fills it (capture) on its own clock, independent of
	// whether this Flux's worker is currently paused, the same way a
	// real DAC keeps consuming a ring buffer and a real ADC keeps
	// filling one regardless of whether the application is listening.
	ring *ringbuffer.RingBuffer
}

func (f *flux) Start(cfg *crossaudio.FluxConfig, feedback *crossaudio.FluxFeedback) error {
	switch cfg.SampleBits {
	case 8, 16, 24, 32, 64:
	default:
		cfg.SampleBits = 16
		cfg.BitFormat = crossaudio.BitFormatIntegerSigned
		return crossaudio.ErrNegotiateSignal
	}

	f.cond = sync.NewCond(&f.condMu)
	f.halt.Store(false)
	f.paused.Store(false)

	quantum := cfg.SampleRate / 100
	if quantum == 0 {
		quantum = 1
	}
	bytesPerSample := pcmformat.ContainerBytes(cfg.SampleBits)
	frameSize := pcmformat.FrameSize(bytesPerSample, cfg.Channels)
	period := time.Duration(float64(quantum) / float64(cfg.SampleRate) * float64(time.Second))
	if period <= 0 {
		period = time.Millisecond
	}

	// Four quanta of headroom: enough for the simulated-hardware side to
	// run a tick or two ahead or behind the worker without every Write
	// or Read landing on an empty/full buffer in the common case.
	f.ring = ringbuffer.New(4 * quantum * frameSize)

	switch cfg.Direction {
	case crossaudio.DirectionIn:
		f.wg.Add(2)
		go f.hardwareSource(quantum, frameSize, bytesPerSample, cfg, period)
		go f.captureLoop(quantum, frameSize, period, feedback)
	case crossaudio.DirectionOut:
		f.wg.Add(2)
		go f.playbackLoop(quantum, frameSize, period, feedback)
		go f.hardwareSink(quantum, frameSize, period)
	}
	return nil
}

// hardwareSource plays the part of a real capture device's DMA engine:
// it fills the ring buffer with a sine signal on its own clock and does
// not stop for the worker's pause state, the same way a real microphone
// keeps digitizing audio whether or not the application is currently
// consuming it.
func (f *flux) hardwareSource(quantum, frameSize, bytesPerSample uint32, cfg *crossaudio.FluxConfig, period time.Duration) {
	defer f.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]byte, quantum*frameSize)
	var phase float64

	for range ticker.C {
		if f.halt.Load() {
			return
		}
		phase = fillSine(buf, cfg.Channels, bytesPerSample, cfg.BitFormat, cfg.SampleRate, phase)
		f.ring.Write(buf, 0)
	}
}

func (f *flux) captureLoop(quantum, frameSize uint32, period time.Duration, feedback *crossaudio.FluxFeedback) {
	defer f.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]byte, quantum*frameSize)

	for {
		if f.waitWhilePaused() {
			return
		}
		<-ticker.C
		if f.halt.Load() {
			return
		}
		if f.paused.Load() {
			continue
		}

		n := f.ring.Read(buf)
		if n == 0 {
			continue
		}

		if feedback != nil && feedback.Process != nil {
			data := crossaudio.FluxData{Data: buf[:n], Frames: n / frameSize}
			feedback.Process(&data)
		}
	}
}

func (f *flux) playbackLoop(quantum, frameSize uint32, period time.Duration, feedback *crossaudio.FluxFeedback) {
	defer f.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]byte, quantum*frameSize)

	for {
		if f.waitWhilePaused() {
			return
		}
		<-ticker.C
		if f.halt.Load() {
			return
		}
		if f.paused.Load() {
			continue
		}

		data := crossaudio.FluxData{Data: buf, Frames: quantum}
		if feedback != nil && feedback.Process != nil {
			feedback.Process(&data)
		}

		commitPlaybackFrames(buf, &data, quantum, frameSize)
		f.ring.Write(buf, 0)
	}
}

// commitPlaybackFrames finalizes what a Process callback left in buf
// before it is queued to the ring. A returned frames == 0 (or a nil
// buffer) means the caller wants the entire quantum committed as
// silence, never a zero-size commit: an underrun-avoiding fixed point,
// not an error. A short count gets its unwritten tail silence-padded.
// A count over quantum is clamped back down to it, since buf never
// holds more than one quantum's worth of frames regardless of what
// Frames claims.
func commitPlaybackFrames(buf []byte, data *crossaudio.FluxData, quantum, frameSize uint32) {
	switch {
	case data.Data == nil || data.Frames == 0:
		pcmformat.FillSilence(buf)
	case data.Frames > quantum:
		data.Frames = quantum
	case data.Frames < quantum:
		pcmformat.FillSilence(buf[data.Frames*frameSize:])
	}
}

// hardwareSink plays the part of a real playback device's DMA engine: it
// drains whatever the worker has queued in the ring buffer on its own
// clock. A short read here is a real underrun (the worker fell behind);
// dummy has no speaker to click, so it is simply discarded.
func (f *flux) hardwareSink(quantum, frameSize uint32, period time.Duration) {
	defer f.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]byte, quantum*frameSize)

	for range ticker.C {
		if f.halt.Load() {
			return
		}
		f.ring.Read(buf)
	}
}

// waitWhilePaused parks the worker while paused is set, using the pause
// flag itself, not the (nonexistent, for this backend) native stream
// state, as the source of truth, per the pause-flag fix this module
// carries for every backend. It returns true if the Flux was halted
// while waiting or is halted on entry.
func (f *flux) waitWhilePaused() bool {
	f.condMu.Lock()
	defer f.condMu.Unlock()

	for f.paused.Load() && !f.halt.Load() {
		f.cond.Wait()
	}
	return f.halt.Load()
}

func (f *flux) Pause(on bool) error {
	f.condMu.Lock()
	f.paused.Store(on)
	f.cond.Broadcast()
	f.condMu.Unlock()
	return nil
}

func (f *flux) Stop() error {
	f.condMu.Lock()
	f.halt.Store(true)
	f.paused.Store(false)
	if f.cond != nil {
		f.cond.Broadcast()
	}
	f.condMu.Unlock()

	f.wg.Wait()
	return nil
}

func (f *flux) NameGet() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

func (f *flux) NameSet(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
	return nil
}

func (f *flux) Free() error { return nil }

// fillSine writes one quantum of a band-limited sine tone into buf and
// returns the phase to resume from on the next call. Only 16-bit
// integer-signed and 32-bit float encodings are synthesized; other
// negotiated formats are left as silence, which is sufficient for this
// backend's role as a state-machine and plumbing exerciser rather than
// a signal-fidelity one.
func fillSine(buf []byte, channels, bytesPerSample uint32, format crossaudio.BitFormat, sampleRate uint32, phase float64) float64 {
	frames := uint32(len(buf)) / (channels * bytesPerSample)
	step := 2 * math.Pi * oscillatorHz / float64(sampleRate)

	for i := uint32(0); i < frames; i++ {
		phase += step
		for c := uint32(0); c < channels; c++ {
			off := (i*channels + c) * bytesPerSample
			switch {
			case format == crossaudio.BitFormatIntegerSigned && bytesPerSample == 2:
				v := int16(0.2 * math.MaxInt16 * math.Sin(phase))
				binary.LittleEndian.PutUint16(buf[off:], uint16(v))
			case format == crossaudio.BitFormatFloat && bytesPerSample == 4:
				v := float32(0.2 * math.Sin(phase))
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			}
		}
	}
	return phase
}
