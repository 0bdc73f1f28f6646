// mockradar serves the Colossus TCP protocol from a YAML scenario:
// it sends a configuration to every client, honours start/stop
// requests, and streams synthetic FFT spokes at the scenario's
// rotation rate. It stands in for a radar in development and tests.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"radarlink/pkg/colossus"
	"radarlink/pkg/connection"
	"radarlink/pkg/logger"
	"radarlink/pkg/transport"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("mockradar", flag.ContinueOnError)
	listen := fs.String("listen", fmt.Sprintf("127.0.0.1:%d", colossus.DefaultPort), "listen address")
	scenarioPath := fs.String("scenario", "", "YAML scenario file")
	level := fs.String("loglevel", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logger.New(os.Stderr, logger.ParseLevel(*level))
	defer log.Close()

	scenario := DefaultScenario()
	if *scenarioPath != "" {
		loaded, err := LoadScenario(*scenarioPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		scenario = loaded
	}

	endpoint, err := transport.ParseEndpoint(*listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	radar := newMockRadar(scenario, log)
	server := colossus.NewServer(endpoint,
		colossus.WithServerLogger(log),
		colossus.OnClientConnect(radar.clientConnected),
		colossus.OnClientDisconnect(radar.clientDisconnected),
	)
	radar.server = server

	server.SetHandler(colossus.TypeStartFFTData, func(_ *colossus.Server, msg *colossus.Message) {
		radar.startStreaming(msg.Conn())
	})
	server.SetHandler(colossus.TypeStopFFTData, func(_ *colossus.Server, msg *colossus.Message) {
		radar.stopStreaming(msg.Conn())
	})
	server.SetHandler(colossus.TypeConfigurationRequest, func(s *colossus.Server, msg *colossus.Message) {
		s.Send(msg.Conn(), radar.configuration().Encode())
	})
	server.Ignore(colossus.TypeKeepAlive)

	if err := server.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()

	radar.stopAll()
	server.Stop()
	return 0
}

// mockRadar tracks one FFT streaming goroutine per subscribed
// client.
type mockRadar struct {
	scenario Scenario
	log      *logger.Log
	server   *colossus.Server

	mu      sync.Mutex
	streams map[connection.ID]chan struct{}
}

func newMockRadar(scenario Scenario, log *logger.Log) *mockRadar {
	return &mockRadar{
		scenario: scenario,
		log:      log,
		streams:  make(map[connection.ID]chan struct{}),
	}
}

func (r *mockRadar) configuration() colossus.Configuration {
	return colossus.Configuration{
		AzimuthSamples: r.scenario.Radar.AzimuthSamples,
		BinSize:        r.scenario.Radar.BinSizeTenthsMM,
		RangeInBins:    r.scenario.Radar.RangeInBins,
		EncoderSize:    r.scenario.Radar.EncoderSize,
		RotationSpeed:  uint16(r.scenario.Radar.RotationHz * 1000),
		PacketRate:     r.scenario.Radar.PacketRate,
		RangeGain:      1.0,
		RangeOffset:    0.0,
		Features: colossus.Features{
			NonContourData: true,
			FFTProtocol:    colossus.FFTProtocolColossus,
			MotorEnabled:   true,
		},
	}
}

// clientConnected follows the radar convention: configuration first,
// before anything else on the connection.
func (r *mockRadar) clientConnected(s *colossus.Server, id connection.ID) {
	r.log.Info(fmt.Sprintf("client %d connected, sending configuration", id))
	s.Send(id, r.configuration().Encode())
}

func (r *mockRadar) clientDisconnected(_ *colossus.Server, id connection.ID) {
	r.stopStreaming(id)
}

func (r *mockRadar) startStreaming(id connection.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.streams[id]; ok {
		return
	}
	done := make(chan struct{})
	r.streams[id] = done
	go r.stream(id, done)
	r.log.Info(fmt.Sprintf("client %d started fft stream", id))
}

func (r *mockRadar) stopStreaming(id connection.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if done, ok := r.streams[id]; ok {
		close(done)
		delete(r.streams, id)
	}
}

func (r *mockRadar) stopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, done := range r.streams {
		close(done)
		delete(r.streams, id)
	}
}

func (r *mockRadar) stream(id connection.ID, done chan struct{}) {
	azimuths := int(r.scenario.Radar.AzimuthSamples)
	interval := time.Second / time.Duration(r.scenario.Radar.RotationHz*azimuths)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	azimuth := 0
	var sweep uint16
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			now := time.Now()
			fft := colossus.FFTData{
				SweepCounter: sweep,
				Azimuth:      uint16(azimuth),
				Seconds:      uint32(now.Unix()),
				SplitSeconds: uint32(now.Nanosecond()),
				Data:         r.scenario.Spoke(azimuth),
			}
			r.server.Send(id, fft.Encode())
			sweep++
			azimuth = (azimuth + 1) % azimuths
		}
	}
}
