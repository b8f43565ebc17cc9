// Package backend defines the value types that identify backend file servers
// and carry their measured responsiveness.
//
// Endpoint and Scored are plain values. They are copied, never shared for
// mutation, so a selection table built from them can be read concurrently.
package backend
