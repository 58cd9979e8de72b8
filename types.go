package crossaudio

// BackendTag identifies a host audio API. Values are immutable and
// process-wide.
type BackendTag int

const (
	Dummy BackendTag = iota
	ALSA
	OSS
	WASAPI
	CoreAudio
	PulseAudio
	Sndio
	PipeWire
)

func (t BackendTag) String() string {
	switch t {
	case Dummy:
		return "dummy"
	case ALSA:
		return "alsa"
	case OSS:
		return "oss"
	case WASAPI:
		return "wasapi"
	case CoreAudio:
		return "coreaudio"
	case PulseAudio:
		return "pulseaudio"
	case Sndio:
		return "sndio"
	case PipeWire:
		return "pipewire"
	default:
		return "unknown"
	}
}

// Direction describes which way audio flows on a Flux or the
// capabilities of a Node. Both is only meaningful for a Node.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionIn
	DirectionOut
	DirectionBoth
)

func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "none"
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionBoth:
		return "both"
	default:
		return "unknown"
	}
}

// BitFormat describes the encoding of a PCM sample. Combined with a bit
// depth (8/16/24/32/64, backend-permitting) it fully describes the wire
// format of one channel's samples.
type BitFormat int

const (
	BitFormatNone BitFormat = iota
	BitFormatIntegerSigned
	BitFormatIntegerUnsigned
	BitFormatFloat
)

func (f BitFormat) String() string {
	switch f {
	case BitFormatNone:
		return "none"
	case BitFormatIntegerSigned:
		return "integer-signed"
	case BitFormatIntegerUnsigned:
		return "integer-unsigned"
	case BitFormatFloat:
		return "float"
	default:
		return "unknown"
	}
}

// ChannelPosition identifies a speaker position within an interleaved
// frame. Positions are bit flags so a node or config can report a set
// of them, though FluxConfig.Position uses one value per channel index.
type ChannelPosition uint32

const (
	PositionFrontLeft ChannelPosition = 1 << iota
	PositionFrontRight
	PositionFrontCenter
	PositionLowFrequency
	PositionRearLeft
	PositionRearRight
	PositionSideLeft
	PositionSideRight
	PositionFrontLeftOfCenter
	PositionFrontRightOfCenter
	PositionRearCenter
	PositionTopCenter
	PositionTopFrontLeft
	PositionTopFrontCenter
	PositionTopFrontRight
	PositionTopRearLeft
	PositionTopRearCenter
	PositionTopRearRight
)

// Node is a host-discovered audio endpoint. IDs are stable for the
// lifetime of the Engine that discovered them and carry no meaning
// across Engines or backends.
type Node struct {
	ID        string
	Name      string
	Direction Direction
}

// NodeList is a disjoint, owned snapshot of an Engine's node inventory.
// A snapshot is never mutated by later hot-plug events.
type NodeList struct {
	Items []Node
}

// Count reports the number of nodes in the snapshot.
func (l *NodeList) Count() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// FluxConfig describes the format and endpoint a Flux negotiates for at
// Start. Node unset (empty string) selects the backend's default
// endpoint for Direction.
type FluxConfig struct {
	Node       string
	Direction  Direction
	BitFormat  BitFormat
	SampleBits uint32
	SampleRate uint32
	Channels   uint32
	Position   []ChannelPosition
}

// FluxData is the callback payload borrowed by the worker for the
// duration of one process invocation. On capture, Data == nil means a
// silence span of Frames samples. On playback, the callback may set
// Frames < cap(Data)/frameSize, or Frames == 0 to request the worker
// fill the entire quantum with silence.
type FluxData struct {
	Data   []byte
	Frames uint32
}

// FluxFrame is the borrowed handle passed to FluxFeedback.Process; Data
// aliases the worker's buffer for the duration of the call only.
type FluxFrame = FluxData

// NodeEvent reports a hot-plug transition delivered through
// Engine.Events. Added is true for a newly discovered node, false for
// one that has disappeared.
type NodeEvent struct {
	Node  Node
	Added bool
}

// EngineFeedback receives hot-plug notifications. Both callbacks are
// invoked off the application's calling thread and must not call back
// into the Engine or any of its Fluxes.
type EngineFeedback struct {
	NodeAdded   func(Node)
	NodeRemoved func(Node)
}

// FluxFeedback receives the real-time process callback. Process runs on
// the Flux's dedicated worker thread; it must not allocate, block, or
// call back into the Flux or its Engine.
type FluxFeedback struct {
	Process func(*FluxData)
}
