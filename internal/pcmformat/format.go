// Package pcmformat holds the sample-format arithmetic shared by every
// backend adapter's worker loop: the mapping from a negotiated sample
// bit-depth to its on-the-wire container size, and frame-size and
// silence-fill helpers built on top of it.
//
// The original CrossAudio C implementation's ALSA backend computed a
// buffer's byte size as bit_ceil(sampleBits)/8 * channels, which rounds
// a 24-bit sample up to a 32-bit container. That is correct for ALSA's
// own packed-in-32-bit convention but wrong for backends (OSS's
// AFMT_S24_NE among them) that pack 24-bit samples into a 3-byte
// container. This package makes "container bytes per sample" a value
// distinct from "valid bits per sample" so each adapter can pick the
// right one for its own wire convention instead of the two being
// silently conflated.
package pcmformat

// ContainerBytes returns the number of bytes a sample of the given valid
// bit depth occupies in ALSA's convention: the next standard container
// size (8/16/32/64 bits) at or above sampleBits, divided by 8. There is
// no 24-bit container, so a 24-bit sample takes 4 bytes.
func ContainerBytes(sampleBits uint32) uint32 {
	switch {
	case sampleBits == 0:
		return 0
	case sampleBits <= 8:
		return 1
	case sampleBits <= 16:
		return 2
	case sampleBits <= 24:
		return 4 // ALSA convention: 24-bit samples ride in a 32-bit container.
	case sampleBits <= 32:
		return 4
	default:
		return 8
	}
}

// PackedBytes returns the number of bytes a sample of the given valid
// bit depth occupies when packed tightly, with no container padding,
// OSS's AFMT_S24_NE convention among others. Unlike ContainerBytes, a
// 24-bit sample here takes exactly 3 bytes.
func PackedBytes(sampleBits uint32) uint32 {
	if sampleBits == 0 {
		return 0
	}
	return (sampleBits + 7) / 8
}

// ValidBits returns sampleBits unchanged; it exists so call sites can
// pair it with ContainerBytes/PackedBytes and make explicit which of the
// two quantities (the number of bits that carry signal, or the number
// of bytes the wire format spends per sample) they mean.
func ValidBits(sampleBits uint32) uint32 {
	return sampleBits
}

// FrameSize returns the byte size of one interleaved frame (one sample
// per channel) given a per-sample byte size and a channel count.
func FrameSize(bytesPerSample, channels uint32) uint32 {
	return bytesPerSample * channels
}

// FillSilence zero-fills buf in place. Every BitFormat this module
// supports (IntegerSigned, IntegerUnsigned excepted, Float) represents
// silence as all-zero bytes; IntegerUnsigned PCM's silence level is the
// midpoint of its range, not zero, so callers using that format must not
// use this helper. Use FillSilenceUnsigned instead.
func FillSilence(buf []byte) {
	clear(buf)
}

// FillSilenceUnsigned fills buf with the silence level for unsigned PCM
// of the given per-sample byte width: the middle of the sample's range
// (0x80 for 8-bit, 0x8000 for 16-bit, and so on), replicated across
// every sample in buf. bytesPerSample must evenly divide len(buf).
func FillSilenceUnsigned(buf []byte, bytesPerSample uint32) {
	if bytesPerSample == 0 || len(buf) == 0 {
		return
	}

	sample := make([]byte, bytesPerSample)
	sample[len(sample)-1] = 0x80

	for off := 0; off+int(bytesPerSample) <= len(buf); off += int(bytesPerSample) {
		copy(buf[off:off+int(bytesPerSample)], sample)
	}
}
