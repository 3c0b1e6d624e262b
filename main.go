/*
spectra runs an audio reactive compute shader in a window. The shader's
bindings, buffers and dispatch size are recovered from its source.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spaghettifunk/spectra/engine"
	"github.com/spaghettifunk/spectra/engine/audio"
	"github.com/spaghettifunk/spectra/engine/core"
)

func main() {
	configPath := flag.String("config", "spectra.toml", "path to the TOML configuration")
	synth := flag.Bool("synth", true, "feed the DFT buffer from the built in test signal")
	flag.Parse()

	config, err := engine.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("%s", err)
	}

	var source audio.Source
	if *synth {
		source = &audio.Synth{
			Bins:      int(config.Renderer.DFTBins),
			Interval:  10 * time.Millisecond,
			BeatEvery: 50,
		}
	}

	e, err := engine.New(config, source)
	if err != nil {
		core.LogFatal("%s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Stop()
	}()

	code := 0
	if err := e.Initialize(); err != nil {
		core.LogError("initialization failed: %s", err)
		code = 1
	} else if err := e.Run(); err != nil {
		code = 1
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err)
		code = 1
	}
	os.Exit(code)
}
