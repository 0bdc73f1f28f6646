package cat240

import (
	"io"
	"testing"
	"time"

	"radarlink/pkg/logger"
	"radarlink/pkg/transport"
)

func newTestLogger(t *testing.T) *logger.Log {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelOff)
	t.Cleanup(log.Close)
	return log
}

func TestClientDispatchesVideoRecords(t *testing.T) {
	log := newTestLogger(t)

	local, err := transport.ParseEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}

	received := make(chan *Record, 1)
	client := NewClient(local, WithLogger(log))
	client.Ignore(MessageTypeSummary)
	client.SetHandler(MessageTypeVideo, func(_ *Client, rec *Record) {
		select {
		case received <- rec:
		default:
		}
	})

	if err := client.Start(); err != nil {
		t.Fatalf("client start: %v", err)
	}
	defer client.Stop()

	// Send one record at the client's bound port from a plain socket.
	sender, err := transport.OpenUDP(transport.Endpoint{IP: local.IP})
	if err != nil {
		t.Fatalf("open sender: %v", err)
	}
	defer sender.Close()

	raw, err := videoRecord().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// The bound port is only known after Start.
	target := clientEndpoint(client)
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := sender.SendDatagram(raw, target); err != nil {
			t.Fatalf("send: %v", err)
		}
		select {
		case rec := <-received:
			if rec.MessageIndex != 4242 {
				t.Fatalf("message index %d", rec.MessageIndex)
			}
			return
		case <-deadline:
			t.Fatalf("record never dispatched")
		case <-ticker.C:
		}
	}
}

func clientEndpoint(c *Client) transport.Endpoint {
	return c.sock.LocalEndpoint()
}
