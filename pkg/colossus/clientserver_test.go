package colossus

import (
	"sync"
	"testing"
	"time"

	"radarlink/pkg/connection"
	"radarlink/pkg/transport"
)

func loopback(t *testing.T) transport.Endpoint {
	t.Helper()
	ep, err := transport.ParseEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}
	return ep
}

// startTestServer brings up a server that sends its configuration to
// every accepted client, the radar convention.
func startTestServer(t *testing.T, cfg Configuration) *Server {
	t.Helper()
	log := testLog()
	t.Cleanup(log.Close)

	server := NewServer(loopback(t),
		WithServerLogger(log),
		OnClientConnect(func(s *Server, id connection.ID) {
			s.Send(id, cfg.Encode())
		}),
	)
	server.Ignore(TypeKeepAlive)
	if err := server.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	t.Cleanup(server.Stop)
	return server
}

func TestConfigurationArrivesFirst(t *testing.T) {
	want := Configuration{
		AzimuthSamples: 400,
		EncoderSize:    5600,
		BinSize:        1752,
		RangeInBins:    2856,
		RangeGain:      1.0,
		RangeOffset:    0.0,
	}
	server := startTestServer(t, want)

	log := testLog()
	defer log.Close()

	type result struct {
		cfg Configuration
		err error
	}
	got := make(chan result, 1)
	var otherFired sync.Map

	client := NewClient(server.ListenEndpoint(),
		WithLogger(log),
		WithReconnect(false),
	)
	client.Ignore(TypeKeepAlive)
	client.SetHandler(TypeConfiguration, func(_ *Client, msg *Message) {
		cfg, err := DecodeConfiguration(msg)
		select {
		case got <- result{cfg, err}:
		default:
		}
	})
	client.SetHandler(TypeFFTData, func(_ *Client, _ *Message) {
		otherFired.Store("fft", true)
	})

	if err := client.Start(); err != nil {
		t.Fatalf("client start: %v", err)
	}
	defer client.Stop()

	select {
	case r := <-got:
		if r.err != nil {
			t.Fatalf("decode configuration: %v", r.err)
		}
		if r.cfg.AzimuthSamples != 400 || r.cfg.EncoderSize != 5600 ||
			r.cfg.BinSize != 1752 || r.cfg.RangeInBins != 2856 ||
			r.cfg.RangeGain != 1.0 || r.cfg.RangeOffset != 0.0 {
			t.Fatalf("configuration %+v", r.cfg)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no configuration within deadline")
	}

	if _, fired := otherFired.Load("fft"); fired {
		t.Fatalf("fft handler fired without fft data")
	}
}

func TestClientRequestsReachServer(t *testing.T) {
	server := startTestServer(t, Configuration{AzimuthSamples: 16, RangeInBins: 8, EncoderSize: 224})

	starts := make(chan connection.ID, 1)
	server.SetHandler(TypeStartFFTData, func(_ *Server, msg *Message) {
		select {
		case starts <- msg.Conn():
		default:
		}
	})

	log := testLog()
	defer log.Close()

	client := NewClient(server.ListenEndpoint(), WithLogger(log), WithReconnect(false))
	client.Ignore(TypeKeepAlive)
	client.SetHandler(TypeConfiguration, func(c *Client, _ *Message) {
		_ = c.SendType(TypeStartFFTData)
	})

	if err := client.Start(); err != nil {
		t.Fatalf("client start: %v", err)
	}
	defer client.Stop()

	select {
	case <-starts:
	case <-time.After(5 * time.Second):
		t.Fatalf("start_fft_data never reached the server")
	}
}

func TestEventOrderingPerConnection(t *testing.T) {
	server := startTestServer(t, Configuration{AzimuthSamples: 16, RangeInBins: 8, EncoderSize: 224})

	log := testLog()
	defer log.Close()

	var mu sync.Mutex
	var order []string
	record := func(ev string) {
		mu.Lock()
		order = append(order, ev)
		mu.Unlock()
	}
	disconnected := make(chan struct{}, 1)

	client := NewClient(server.ListenEndpoint(),
		WithLogger(log),
		WithReconnect(false),
		OnConnect(func(*Client, connection.ID) { record("connected") }),
		OnDisconnect(func(*Client, connection.ID) {
			record("disconnected")
			select {
			case disconnected <- struct{}{}:
			default:
			}
		}),
	)
	client.Ignore(TypeKeepAlive)
	msgSeen := make(chan struct{}, 1)
	client.SetHandler(TypeConfiguration, func(*Client, *Message) {
		record("message")
		select {
		case msgSeen <- struct{}{}:
		default:
		}
	})

	if err := client.Start(); err != nil {
		t.Fatalf("client start: %v", err)
	}

	select {
	case <-msgSeen:
	case <-time.After(5 * time.Second):
		t.Fatalf("no message before teardown")
	}

	client.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(order) < 2 || order[0] != "connected" {
		t.Fatalf("event order %v", order)
	}
	for i, ev := range order {
		if ev == "message" {
			continue
		}
		if ev == "connected" && i != 0 {
			t.Fatalf("connected not first: %v", order)
		}
		if ev == "disconnected" && i != len(order)-1 {
			t.Fatalf("disconnected not last: %v", order)
		}
	}
}

func TestStartStopIdempotent(t *testing.T) {
	server := startTestServer(t, Configuration{AzimuthSamples: 16, RangeInBins: 8, EncoderSize: 224})

	log := testLog()
	defer log.Close()

	client := NewClient(server.ListenEndpoint(), WithLogger(log), WithReconnect(false))
	client.Ignore(TypeKeepAlive)
	client.Ignore(TypeConfiguration)

	// start(); stop(); start(); stop() must behave as two clean
	// sessions with no residue.
	for round := 0; round < 2; round++ {
		if err := client.Start(); err != nil {
			t.Fatalf("round %d start: %v", round, err)
		}
		if err := client.Start(); err != nil {
			t.Fatalf("round %d redundant start: %v", round, err)
		}
		time.Sleep(50 * time.Millisecond)
		client.Stop()
		client.Stop()
	}
}

func TestServerBroadcast(t *testing.T) {
	server := startTestServer(t, Configuration{AzimuthSamples: 16, RangeInBins: 8, EncoderSize: 224})

	log := testLog()
	defer log.Close()

	received := make(chan uint16, 4)
	newFFTClient := func() *Client {
		c := NewClient(server.ListenEndpoint(), WithLogger(log), WithReconnect(false))
		c.Ignore(TypeKeepAlive)
		c.Ignore(TypeConfiguration)
		c.SetHandler(TypeFFTData, func(_ *Client, msg *Message) {
			fft, err := DecodeFFTData(msg)
			if err == nil {
				received <- fft.Azimuth
			}
		})
		if err := c.Start(); err != nil {
			t.Fatalf("client start: %v", err)
		}
		t.Cleanup(c.Stop)
		return c
	}
	newFFTClient()
	newFFTClient()

	// Give both connections time to establish, then broadcast.
	time.Sleep(200 * time.Millisecond)
	server.Broadcast(FFTData{Azimuth: 77, Data: []byte{1, 2, 3, 4}}.Encode())

	for i := 0; i < 2; i++ {
		select {
		case azi := <-received:
			if azi != 77 {
				t.Fatalf("azimuth %d", azi)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("broadcast reached %d of 2 clients", i)
		}
	}
}
