// Package backend collects design notes for the host audio APIs
// CrossAudio-Go does not carry a full native adapter for. Two adapters
// are implemented in full: internal/backend/alsa (Linux, native ALSA)
// and internal/backend/portaudio (macOS CoreAudio and Windows WASAPI,
// via github.com/gordonklaus/portaudio), following spec.md §1.3's
// "one representative backend adapter" scoping. The rest are recorded
// here as design notes only: what a native adapter for them would need
// to do differently from the two implemented ones, and why. No code in
// this package is built or imported; it exists purely as documentation
// alongside the adapters it describes.
package backend

// OSS (Open Sound System, still found on some BSDs).
//
// Device IDs can carry a .pN/.vpN/.rN/.vrN suffix, which is stripped
// to get the canonical node ID; a SNDCTL_DSP_* capability ioctl reports
// a bitmask of supported directions rather than the device exposing
// separate capture/playback nodes. Pause is modeled with
// DSP_SILENCE/DSP_SKIP framing rather than a dedicated pause ioctl, and
// like ALSA, capture-side pause is not idempotent at the OS level, so an
// adapter needs the same externally-owned pause flag the dummy, alsa and
// portaudio adapters use: a per-Flux sync.Cond whose mutex is shared by
// the pausing caller and the worker. The original C implementation
// waited on a mutex local to its wait() call, which no notifier ever
// shared.
// AFMT_S24_NE 24-bit samples are packed tightly into 3 bytes, which is
// exactly the case internal/pcmformat.PackedBytes exists for (as
// opposed to ALSA's 4-byte container convention).

// Sndio (OpenBSD's audio server and its libsndio).
//
// sio_open/sio_start/sio_stop are blocking; a native adapter would run
// its I/O loop around a poll(2) over the descriptors sio_pollfd fills
// in, waking only on sio_revents, rather than a ticker or a blocking
// read/write call like the two implemented adapters use. Sndio has no
// hardware pause primitive at all: pause is implemented purely in
// software as stop-wait-start, which needs careful buffering to avoid
// an audible click at the resume boundary. Sndio also does not support
// float sample formats, only integer PCM, so a FluxConfig requesting
// BitFormatFloat would always negotiate down to a 16-bit integer
// format on this backend, the same negotiation shape
// internal/backend/dummy and internal/backend/alsa already use for
// their own unsupported-format cases.

// PulseAudio.
//
// PulseAudio's asynchronous mainloop API is request-driven: the
// application registers write/read callbacks that the mainloop invokes
// when the server wants more or has more data, rather than the
// application driving a blocking Read/Write call from its own worker
// goroutine the way internal/backend/portaudio's worker does. A native
// adapter would need to bridge that inverted control flow back to this
// module's own worker-owns-the-loop model, most likely by running
// PulseAudio's mainloop on its own OS thread and handing frames to/from
// it through the same kind of SPSC ring buffer internal/backend/dummy
// uses between its simulated-hardware goroutine and its worker.
// Capture from a playback sink (its "monitor" source) is exposed as
// an ordinary source name suffixed .monitor, which is the mechanism a
// loopback-capture Node would need to map to a Node.ID.

// PipeWire.
//
// PipeWire's stream API requires a thread-loop lock/unlock pair around
// every call that touches stream state from outside the thread the
// stream itself runs on (pw_thread_loop_lock/pw_thread_loop_unlock),
// which is a stricter discipline than any lock this module's two
// implemented adapters need, since PortAudio and gen2brain/alsa each
// already serialize their own internal state. Node discovery is
// asynchronous and registry-event-driven (pw_registry add/remove
// events arrive on the thread loop), which maps naturally onto this
// module's own EngineFeedback.NodeAdded/NodeRemoved shape once bridged
// off PipeWire's thread the same way a PulseAudio adapter would need
// to bridge its mainloop.
