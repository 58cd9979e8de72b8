package pcmformat

import "testing"

func TestContainerBytes(t *testing.T) {
	cases := map[uint32]uint32{
		0:  0,
		8:  1,
		16: 2,
		24: 4, // the ALSA rounding this package intentionally preserves
		32: 4,
		64: 8,
	}
	for bits, want := range cases {
		if got := ContainerBytes(bits); got != want {
			t.Errorf("ContainerBytes(%d) = %d, want %d", bits, got, want)
		}
	}
}

func TestPackedBytesDoesNotRoundUp(t *testing.T) {
	if got := PackedBytes(24); got != 3 {
		t.Errorf("PackedBytes(24) = %d, want 3 (no container rounding)", got)
	}
	if got := PackedBytes(16); got != 2 {
		t.Errorf("PackedBytes(16) = %d, want 2", got)
	}
}

func TestFrameSize(t *testing.T) {
	if got := FrameSize(ContainerBytes(24), 2); got != 8 {
		t.Errorf("FrameSize(container 24-bit, 2ch) = %d, want 8", got)
	}
	if got := FrameSize(PackedBytes(24), 2); got != 6 {
		t.Errorf("FrameSize(packed 24-bit, 2ch) = %d, want 6", got)
	}
}

func TestFillSilence(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	FillSilence(buf)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %d, want 0", i, b)
		}
	}
}

func TestFillSilenceUnsigned(t *testing.T) {
	buf := make([]byte, 8)
	FillSilenceUnsigned(buf, 2)
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != 0x00 || buf[i+1] != 0x80 {
			t.Fatalf("sample at %d = %#02x %#02x, want 00 80", i, buf[i], buf[i+1])
		}
	}
}
