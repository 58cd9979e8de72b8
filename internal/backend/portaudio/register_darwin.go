//go:build darwin

package portaudio

import "github.com/crossaudio-go/crossaudio"

func init() {
	crossaudio.RegisterBackend(crossaudio.CoreAudio, NewAdapter)
}
