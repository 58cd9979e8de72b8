// Command crossaudio-probe is a small diagnostic CLI: it starts an
// Engine against a chosen backend, prints its node inventory, and
// optionally opens one Flux for a few seconds to exercise a live
// capture or playback stream while logging the frames it moves.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/crossaudio-go/crossaudio"
	_ "github.com/crossaudio-go/crossaudio/internal/backend/alsa"
	_ "github.com/crossaudio-go/crossaudio/internal/backend/dummy"
	_ "github.com/crossaudio-go/crossaudio/internal/backend/portaudio"
)

func setViperDefaults() {
	viper.SetDefault("backend", "dummy")
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")
	viper.SetDefault("direction", "out")
	viper.SetDefault("samplerate", 48000)
	viper.SetDefault("channels", 2)
	viper.SetDefault("duration", 3)
}

func loadConfig(configFilePath string) {
	setViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, os.ErrNotExist) {
			slog.Info("no config file found, using defaults and flags", "configFilePath", configFilePath)
		} else {
			slog.Error("error reading config", "err", err)
			panic(err)
		}
	}
}

func backendTagFromName(name string) (crossaudio.BackendTag, bool) {
	switch strings.ToLower(name) {
	case "dummy":
		return crossaudio.Dummy, true
	case "alsa":
		return crossaudio.ALSA, true
	case "oss":
		return crossaudio.OSS, true
	case "wasapi":
		return crossaudio.WASAPI, true
	case "coreaudio":
		return crossaudio.CoreAudio, true
	case "pulseaudio":
		return crossaudio.PulseAudio, true
	case "sndio":
		return crossaudio.Sndio, true
	case "pipewire":
		return crossaudio.PipeWire, true
	default:
		return 0, false
	}
}

func directionFromName(name string) (crossaudio.Direction, bool) {
	switch strings.ToLower(name) {
	case "in":
		return crossaudio.DirectionIn, true
	case "out":
		return crossaudio.DirectionOut, true
	default:
		return crossaudio.DirectionNone, false
	}
}

func main() {
	configFilePath := flag.String("configFilePath", "crossaudio-probe.yaml", "Set the file path to the config file.")
	backendFlag := flag.String("backend", "", "Backend to probe (dummy, alsa, wasapi, coreaudio, ...); overrides config.")
	streamFlag := flag.Bool("stream", false, "Open a Flux and run it for -duration seconds after listing nodes.")
	flag.Parse()

	loadConfig(*configFilePath)
	if *backendFlag != "" {
		viper.Set("backend", *backendFlag)
	}

	logger, closer, err := crossaudio.NewLogger(viper.GetString("loglevel"), viper.GetString("logfile"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "crossaudio-probe: logger setup failed:", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	tag, ok := backendTagFromName(viper.GetString("backend"))
	if !ok {
		slog.Error("unknown backend", "backend", viper.GetString("backend"))
		os.Exit(1)
	}
	if !crossaudio.BackendExists(tag) {
		slog.Error("backend not registered in this build", "backend", tag.String())
		os.Exit(1)
	}

	if kind := crossaudio.BackendInit(tag); kind != crossaudio.Ok {
		slog.Error("backend init failed", "backend", tag.String(), "error", kind)
		os.Exit(1)
	}
	defer crossaudio.BackendDeinit(tag)

	engine, kind := crossaudio.EngineNew(tag, logger)
	if kind != crossaudio.Ok {
		slog.Error("engine creation failed", "backend", tag.String(), "error", kind)
		os.Exit(1)
	}
	defer engine.Free()

	if kind := engine.Start(nil); kind != crossaudio.Ok {
		slog.Error("engine start failed", "error", kind)
		os.Exit(1)
	}
	defer engine.Stop()

	nodes, kind := engine.NodesGet()
	if kind != crossaudio.Ok {
		slog.Error("node enumeration failed", "error", kind)
		os.Exit(1)
	}
	slog.Info("node inventory", "backend", tag.String(), "count", nodes.Count())
	for _, n := range nodes.Items {
		slog.Info("node", "id", n.ID, "name", n.Name, "direction", n.Direction.String())
	}

	if !*streamFlag {
		return
	}

	direction, ok := directionFromName(viper.GetString("direction"))
	if !ok {
		slog.Error("unknown direction", "direction", viper.GetString("direction"))
		os.Exit(1)
	}

	flux, kind := engine.FluxNew()
	if kind != crossaudio.Ok {
		slog.Error("flux creation failed", "error", kind)
		os.Exit(1)
	}
	defer flux.Free()

	cfg := &crossaudio.FluxConfig{
		Direction:  direction,
		BitFormat:  crossaudio.BitFormatIntegerSigned,
		SampleBits: 16,
		SampleRate: uint32(viper.GetInt("samplerate")),
		Channels:   uint32(viper.GetInt("channels")),
	}

	var frameCount uint64
	feedback := &crossaudio.FluxFeedback{
		Process: func(d *crossaudio.FluxData) {
			frameCount += uint64(d.Frames)
		},
	}

	if kind := flux.Start(cfg, feedback); kind != crossaudio.Ok {
		slog.Error("flux start failed", "error", kind)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	duration := time.Duration(viper.GetInt("duration")) * time.Second
	slog.Info("streaming", "direction", direction.String(), "duration", duration)

	select {
	case <-ctx.Done():
		slog.Info("interrupted")
	case <-time.After(duration):
	}

	flux.Stop()
	slog.Info("stream finished", "frames", frameCount)
}
