package transport

import "testing"

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("192.168.0.1:6317")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ep.Port != 6317 || ep.IP.String() != "192.168.0.1" {
		t.Fatalf("endpoint %+v", ep)
	}
	if ep.String() != "192.168.0.1:6317" {
		t.Fatalf("string %q", ep.String())
	}
}

func TestParseEndpointRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "nonsense", "1.2.3.4", "1.2.3.4:notaport"} {
		if _, err := ParseEndpoint(s); err == nil {
			t.Fatalf("%q accepted", s)
		}
	}
}

func TestEndpointCompare(t *testing.T) {
	a, _ := ParseEndpoint("10.0.0.1:100")
	b, _ := ParseEndpoint("10.0.0.1:200")
	c, _ := ParseEndpoint("10.0.0.2:100")

	if a.Compare(b) >= 0 || b.Compare(a) <= 0 {
		t.Fatalf("port ordering broken")
	}
	if a.Compare(c) >= 0 {
		t.Fatalf("address ordering broken")
	}
	if a.Compare(a) != 0 {
		t.Fatalf("self comparison not zero")
	}
}

func TestEndpointsAreMapKeys(t *testing.T) {
	a, _ := ParseEndpoint("10.0.0.1:100")
	b, _ := ParseEndpoint("10.0.0.1:100")

	m := map[Endpoint]int{a: 1}
	if m[b] != 1 {
		t.Fatalf("equal endpoints hash differently")
	}
}
