package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"

	"radarlink/pkg/bridge"
	"radarlink/pkg/bridge/natstargets"
	"radarlink/pkg/bridge/wstargets"
	"radarlink/pkg/colossus"
	"radarlink/pkg/logger"
	"radarlink/pkg/navigation"
)

// targetPipeline holds the navigation chain for one radar
// connection: FFT buffer, CFAR window and peak finder, configured
// once the radar's configuration message arrives.
type targetPipeline struct {
	mu         sync.Mutex
	configured bool

	window    navigation.Window
	minBin    int
	maxPeaks  int
	subMode   navigation.SubresolutionMode
	peakMode  navigation.PeakMode
	buffer    *navigation.FFTBuffer
	finder    *navigation.PeakFinder
	userCfg   bool // a user config outranks a radar-pushed one
	radarConf colossus.Configuration
}

func runTargets(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("targets", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	out := fs.String("out", "targets.csv", "CSV output path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, log, err := loadConfig(cf, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer log.Close()

	subMode, err := cfg.SubresolutionMode()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	peakMode, err := cfg.PeakMode()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	bufMode, err := cfg.BufferMode()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	endpoint, err := radarEndpoint(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	outFile, err := os.Create(*out)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer outFile.Close()
	writer := csv.NewWriter(outFile)
	_ = writer.Write([]string{"bearing_deg", "range_m", "power_db"})
	defer writer.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Fan targets out to the CSV writer and any enabled bridges.
	hub := bridge.NewHub()
	go hub.Run(ctx)
	if cfg.Bridges.Websocket.Enabled {
		ws := wstargets.NewServer(cfg.Bridges.Websocket.Addr, hub, wstargets.WithLogger(log))
		go func() {
			if err := ws.Run(ctx); err != nil {
				log.Error(err.Error())
			}
		}()
	}
	if cfg.Bridges.NATS.Enabled {
		pub := natstargets.NewPublisher(cfg.Bridges.NATS.URL, cfg.Bridges.NATS.Subject, hub, natstargets.WithLogger(log))
		if err := pub.Connect(); err != nil {
			log.Error(err.Error())
		} else {
			go pub.Run(ctx)
		}
	}

	var csvMu sync.Mutex
	pipe := &targetPipeline{
		window:   cfg.Window(),
		minBin:   cfg.CFAR.MinBin,
		maxPeaks: cfg.CFAR.MaxPeaks,
		subMode:  subMode,
		peakMode: peakMode,
		buffer:   navigation.NewFFTBuffer(bufMode, cfg.Buffer.Samples),
		finder:   navigation.NewPeakFinder(),
		userCfg:  true,
	}
	pipe.finder.SetTargetCallback(func(t navigation.Target) {
		csvMu.Lock()
		_ = writer.Write([]string{
			strconv.FormatFloat(t.Bearing, 'f', 4, 64),
			strconv.FormatFloat(t.Range, 'f', 4, 64),
			strconv.FormatFloat(t.Power, 'f', 2, 64),
		})
		csvMu.Unlock()
		hub.Publish(t)
	})

	client := colossus.NewClient(endpoint, colossus.WithLogger(log))
	client.Ignore(colossus.TypeKeepAlive)
	client.SetHandler(colossus.TypeConfiguration, func(c *colossus.Client, msg *colossus.Message) {
		radarCfg, err := colossus.DecodeConfiguration(msg)
		if err != nil {
			log.Error(err.Error())
			return
		}
		if err := pipe.configure(radarCfg); err != nil {
			log.Error(err.Error())
			return
		}
		fmt.Fprintf(stdout, "peak finder configured: azimuths=%d bins=%d\n",
			radarCfg.AzimuthSamples, radarCfg.RangeInBins)
		_ = c.SendType(colossus.TypeStartFFTData)
	})
	client.SetHandler(colossus.TypeNavigationConfig, func(_ *colossus.Client, msg *colossus.Message) {
		pipe.adoptNavConfig(msg, log)
	})
	client.SetHandler(colossus.TypeFFTData, func(_ *colossus.Client, msg *colossus.Message) {
		pipe.processFFT(msg)
	})

	if err := client.Start(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	<-ctx.Done()

	_ = client.SendType(colossus.TypeStopFFTData)
	client.Stop()
	pipe.finder.Stop()
	return 0
}

func (p *targetPipeline) configure(radarCfg colossus.Configuration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.window.Validate(int(radarCfg.RangeInBins) - p.minBin); err != nil {
		return err
	}
	if err := p.finder.Configure(radarCfg, p.minBin, p.maxPeaks, p.subMode, p.peakMode); err != nil {
		return err
	}
	p.radarConf = radarCfg
	p.finder.Start()
	p.configured = true
	return nil
}

// adoptNavConfig applies a radar-pushed navigation configuration,
// unless the user supplied their own.
func (p *targetPipeline) adoptNavConfig(msg *colossus.Message, log *logger.Log) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.userCfg {
		log.Info("a user configuration already exists; ignoring incoming configuration")
		return
	}
	navCfg, err := colossus.DecodeNavigationConfig(msg)
	if err != nil {
		return
	}
	p.window = navigation.NewWindow(int(navCfg.BinsToOperateOn), 2, navCfg.Threshold)
	p.minBin = int(navCfg.MinBin)
	p.maxPeaks = int(navCfg.MaxPeaks)
}

func (p *targetPipeline) processFFT(msg *colossus.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return
	}

	fft, err := colossus.DecodeFFTData(msg)
	if err != nil {
		return
	}
	spoke, ready := p.buffer.Process8(fft.Cells8())
	if !ready {
		return
	}
	processed := navigation.Process(spoke, p.window)
	p.finder.FindPeaks(int(fft.Azimuth), processed)
}
