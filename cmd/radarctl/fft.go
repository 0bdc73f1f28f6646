package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"

	"radarlink/pkg/colossus"
	"radarlink/pkg/navigation"
	"radarlink/pkg/playback"
)

// runFFT streams FFT spokes, reporting rotations and lost packets,
// and optionally records the raw stream to a file.
func runFFT(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("fft", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	record := fs.String("record", "", "write the raw stream to a recording file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, log, err := loadConfig(cf, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer log.Close()

	endpoint, err := radarEndpoint(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	var recorder *playback.Writer
	if *record != "" {
		recorder, err = playback.NewWriter(*record, endpoint.IP)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer func() {
			_ = recorder.Close()
		}()
	}

	var sweeps navigation.SweepTracker
	var rotations navigation.RotationCounter
	packets := 0

	client := colossus.NewClient(endpoint, colossus.WithLogger(log))
	client.Ignore(colossus.TypeKeepAlive)
	client.SetHandler(colossus.TypeConfiguration, func(c *colossus.Client, msg *colossus.Message) {
		cfgMsg, err := colossus.DecodeConfiguration(msg)
		if err != nil {
			log.Error(err.Error())
			return
		}
		fmt.Fprintf(stdout, "configuration: azimuths=%d bins=%d bin_size=%.4fm encoder=%d\n",
			cfgMsg.AzimuthSamples, cfgMsg.RangeInBins, cfgMsg.RangeResolution(), cfgMsg.EncoderSize)
		_ = c.SendType(colossus.TypeStartFFTData)
	})
	client.SetHandler(colossus.TypeFFTData, func(_ *colossus.Client, msg *colossus.Message) {
		fft, err := colossus.DecodeFFTData(msg)
		if err != nil {
			return
		}
		packets++
		if lost, prev := sweeps.Update(fft.SweepCounter); lost {
			fmt.Fprintf(stdout, "packets lost! packet [%d] current sweep counter [%d] previous [%d]\n",
				packets, fft.SweepCounter, prev)
		}
		if rotations.Update(int(fft.Azimuth)) {
			fmt.Fprintf(stdout, "completed rotation [%d]\n", rotations.Rotations())
		}
		if recorder != nil {
			_ = recorder.Append(playback.TransportTCP, msg.Bytes())
		}
	})

	if err := client.Start(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()

	_ = client.SendType(colossus.TypeStopFFTData)
	client.Stop()
	return 0
}

// parseAddr is a small helper for optional multicast flags.
func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	return addr, err == nil
}
