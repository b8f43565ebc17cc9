// Package handler implements the per-connection dispatch step: read one
// request, pick an endpoint and answer with a 301 redirect or a 503.
//
// Request headers are read and ignored. Leading slashes are stripped from the
// requested path before it is appended to the chosen endpoint's URL.
package handler
