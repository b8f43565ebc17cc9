// Package client fetches a file through the balancer: it sends the GET,
// follows the 301 to the chosen file server once and reads the body.
package client
