//go:build windows

package portaudio

import "github.com/crossaudio-go/crossaudio"

func init() {
	crossaudio.RegisterBackend(crossaudio.WASAPI, NewAdapter)
}
