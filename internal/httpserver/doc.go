// Package httpserver runs the balancer's accept loop over a raw TCP listener.
//
// Despite the name this is not an HTTP server and does not use net/http. It
// hands every accepted net.Conn to a ConnHandler, which speaks the small
// HTTP/1.1-like dialect from package wire (one request per connection, no
// keep-alive, no chunked bodies).
//
// Connections are served strictly one after another. The listener carries a
// deadline before every accept; when it expires without a connection the
// server runs its idle callback, which the balancer uses to rebuild its
// selection table, and then goes back to accepting.
package httpserver
