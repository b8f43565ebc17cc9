// Package healthcheck measures how responsive each backend endpoint is.
//
// A probe connects to an endpoint, requests a well-known test resource and
// reads the whole response body. The measured latency runs from just after
// the connection is established until the last body byte arrives, so it
// reflects throughput as well as connection delay. Endpoints that cannot be
// reached or answer with a broken response are left out of the result.
package healthcheck
