package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"radarlink/pkg/colossus"
	"radarlink/pkg/connection"
	"radarlink/pkg/playback"
)

// runPlayback replays a recording through the live-client handler
// surface.
func runPlayback(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("playback", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	fast := fs.Bool("fast", false, "replay as fast as possible")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, log, err := loadConfig(cf, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer log.Close()

	if cfg.Playback.File == "" {
		fmt.Fprintln(stderr, "playback requires a recording file (-f)")
		return 2
	}
	mode := playback.RealTime
	if *fast || cfg.Playback.Mode == "as_fast_as_possible" {
		mode = playback.AsFastAsPossible
	}

	done := make(chan struct{})
	spokes := 0
	client := playback.NewClient(cfg.Playback.File,
		playback.WithMode(mode),
		playback.WithLogger(log),
		playback.OnEnd(func(connection.ID) { close(done) }),
	)
	client.Ignore(colossus.TypeKeepAlive)
	client.SetHandler(colossus.TypeConfiguration, func(_ *playback.Client, msg *colossus.Message) {
		cfgMsg, err := colossus.DecodeConfiguration(msg)
		if err != nil {
			return
		}
		fmt.Fprintf(stdout, "recorded configuration: azimuths=%d bins=%d\n",
			cfgMsg.AzimuthSamples, cfgMsg.RangeInBins)
	})
	client.SetHandler(colossus.TypeFFTData, func(_ *playback.Client, msg *colossus.Message) {
		spokes++
	})

	if err := client.Start(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	meta := client.Metadata()
	start := time.UnixMicro(int64(meta.StartWallMicros)).UTC()
	fmt.Fprintf(stdout, "recording from %s, radar %s\n", start.Format(time.RFC3339), meta.RadarIP)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	select {
	case <-ctx.Done():
	case <-done:
	}

	client.Stop()
	fmt.Fprintf(stdout, "replayed %d fft spokes\n", spokes)
	return 0
}
