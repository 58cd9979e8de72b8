package dummy

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/crossaudio-go/crossaudio"
)

func newEngine(t *testing.T) crossaudio.EngineHandle {
	t.Helper()
	a := &adapter{}
	e, err := a.NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestEngineNodesGet(t *testing.T) {
	e := newEngine(t)
	nodes, err := e.NodesGet()
	if err != nil {
		t.Fatalf("NodesGet() error = %v", err)
	}
	if nodes.Count() != 2 {
		t.Fatalf("NodesGet() count = %d, want 2", nodes.Count())
	}
	for _, n := range nodes.Items {
		if n.ID == "" {
			t.Fatalf("node has empty ID: %+v", n)
		}
	}
}

func TestFluxNegotiatesUnsupportedBitDepth(t *testing.T) {
	e := newEngine(t)
	f, err := e.NewFlux()
	if err != nil {
		t.Fatalf("NewFlux() error = %v", err)
	}

	cfg := &crossaudio.FluxConfig{
		Direction:  crossaudio.DirectionOut,
		BitFormat:  crossaudio.BitFormatIntegerSigned,
		SampleBits: 11,
		SampleRate: 44100,
		Channels:   1,
	}

	if err := f.Start(cfg, nil); err != crossaudio.ErrNegotiateSignal {
		t.Fatalf("Start() error = %v, want ErrNegotiateSignal", err)
	}
	if cfg.SampleBits != 16 {
		t.Fatalf("cfg.SampleBits after negotiate = %d, want 16", cfg.SampleBits)
	}

	// The rewritten config must itself be a fixed point on retry.
	if err := f.Start(cfg, nil); err != nil {
		t.Fatalf("retry Start() error = %v, want nil", err)
	}
	f.Stop()
}

func TestCaptureDeliversFrames(t *testing.T) {
	e := newEngine(t)
	f, _ := e.NewFlux()

	var calls atomic.Int32
	cfg := &crossaudio.FluxConfig{
		Direction:  crossaudio.DirectionIn,
		BitFormat:  crossaudio.BitFormatIntegerSigned,
		SampleBits: 16,
		SampleRate: 48000,
		Channels:   2,
	}
	feedback := &crossaudio.FluxFeedback{
		Process: func(d *crossaudio.FluxData) {
			calls.Add(1)
		},
	}

	if err := f.Start(cfg, feedback); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if calls.Load() == 0 {
		t.Fatal("no process callbacks were delivered")
	}

	stoppedAt := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != stoppedAt {
		t.Fatalf("callback fired after Stop(): count went from %d to %d", stoppedAt, calls.Load())
	}
}

func TestPauseStopsDelivery(t *testing.T) {
	e := newEngine(t)
	f, _ := e.NewFlux()

	var calls atomic.Int32
	cfg := &crossaudio.FluxConfig{
		Direction:  crossaudio.DirectionOut,
		BitFormat:  crossaudio.BitFormatIntegerSigned,
		SampleBits: 16,
		SampleRate: 44100,
		Channels:   1,
	}
	feedback := &crossaudio.FluxFeedback{
		Process: func(d *crossaudio.FluxData) {
			calls.Add(1)
		},
	}

	if err := f.Start(cfg, feedback); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if err := f.Pause(true); err != nil {
		t.Fatalf("Pause(true) error = %v", err)
	}
	paused := calls.Load()
	time.Sleep(80 * time.Millisecond)
	if calls.Load() != paused {
		t.Fatalf("callback fired while paused: count went from %d to %d", paused, calls.Load())
	}

	if err := f.Pause(false); err != nil {
		t.Fatalf("Pause(false) error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if calls.Load() <= paused {
		t.Fatal("callback did not resume after unpause")
	}

	f.Stop()
}

func TestPlaybackZeroFramesCommitsFullQuantumSilence(t *testing.T) {
	e := newEngine(t)
	f, _ := e.NewFlux()

	observed := make(chan []byte, 1)
	var calls atomic.Int32
	cfg := &crossaudio.FluxConfig{
		Direction:  crossaudio.DirectionOut,
		BitFormat:  crossaudio.BitFormatIntegerSigned,
		SampleBits: 16,
		SampleRate: 44100,
		Channels:   1,
	}
	feedback := &crossaudio.FluxFeedback{
		// First callback dirties the buffer and requests silence via
		// frames=0; the second callback (before it touches the buffer
		// itself) observes what the worker committed in between.
		Process: func(d *crossaudio.FluxData) {
			switch calls.Add(1) {
			case 1:
				for i := range d.Data {
					d.Data[i] = 0xFF
				}
				d.Frames = 0
			case 2:
				select {
				case observed <- append([]byte(nil), d.Data...):
				default:
				}
			}
		},
	}

	if err := f.Start(cfg, feedback); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.Stop()

	select {
	case buf := <-observed:
		for i, b := range buf {
			if b != 0 {
				t.Fatalf("buf[%d] = %#x, want 0 (frames=0 must commit full quantum of silence)", i, b)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("no callback observed")
	}
}

func TestCommitPlaybackFramesClampsOverclaimedFrames(t *testing.T) {
	const quantum, frameSize = 4, uint32(2)
	buf := make([]byte, quantum*frameSize)
	for i := range buf {
		buf[i] = 0xAB
	}
	data := crossaudio.FluxData{Data: buf, Frames: quantum * 10}

	commitPlaybackFrames(buf, &data, quantum, frameSize)

	if data.Frames != quantum {
		t.Fatalf("Frames after commit = %d, want clamped to %d", data.Frames, quantum)
	}
	for i, b := range buf {
		if b != 0xAB {
			t.Fatalf("buf[%d] = %#x, want untouched 0xab (clamping must not silence a fully-written buffer)", i, b)
		}
	}
}

func TestCommitPlaybackFramesPadsShortWithSilence(t *testing.T) {
	const quantum, frameSize = 4, uint32(2)
	buf := make([]byte, quantum*frameSize)
	for i := range buf {
		buf[i] = 0xAB
	}
	data := crossaudio.FluxData{Data: buf, Frames: 2}

	commitPlaybackFrames(buf, &data, quantum, frameSize)

	for i, b := range buf[:2*frameSize] {
		if b != 0xAB {
			t.Fatalf("buf[%d] = %#x, want untouched 0xab", i, b)
		}
	}
	for i, b := range buf[2*frameSize:] {
		if b != 0 {
			t.Fatalf("buf[%d] = %#x, want silence-padded 0", int(2*frameSize)+i, b)
		}
	}
}

func TestDoubleStopIsOk(t *testing.T) {
	e := newEngine(t)
	f, _ := e.NewFlux()
	cfg := &crossaudio.FluxConfig{
		Direction:  crossaudio.DirectionOut,
		BitFormat:  crossaudio.BitFormatIntegerSigned,
		SampleBits: 16,
		SampleRate: 44100,
		Channels:   1,
	}
	if err := f.Start(cfg, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("first Stop() error = %v", err)
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}
