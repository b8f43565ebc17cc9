package backend

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Endpoint identifies a backend by host and port.
type Endpoint struct {
	Host string
	Port int
}

// Address returns the endpoint as host:port, suitable for dialing.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Location returns the redirect URL for path on this endpoint. Path is
// appended verbatim after a single slash.
func (e Endpoint) Location(path string) string {
	return fmt.Sprintf("http://%s:%d/%s", e.Host, e.Port, path)
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Scored is an Endpoint with its probe latency and its cumulative weight in
// a selection table.
type Scored struct {
	Endpoint
	Latency          time.Duration
	CumulativeWeight int
}

// Seconds returns the probe latency in seconds.
func (s Scored) Seconds() float64 {
	return s.Latency.Seconds()
}
