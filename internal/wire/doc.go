// Package wire implements the minimal HTTP/1.1-like framing shared by the
// balancer, its client and the backend file servers.
//
// Messages are exchanged over raw byte streams: a request is a single GET
// request line plus a Host header, a response is a status line, a fixed set of
// headers and exactly Content-Length body bytes. Chunked encoding, keep-alive
// and pipelining are not supported.
//
// Header names are matched case-sensitively by exact token. Unknown header
// lines are ignored rather than rejected.
package wire
