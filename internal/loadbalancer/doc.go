// Package loadbalancer ties the endpoint registry, the prober and a selection
// strategy together.
//
// It owns the current selection table behind an atomic pointer. Refresh is
// the single writer and builds a new table off to the side before swapping it
// in; Pick is the reader and may run concurrently with Refresh.
package loadbalancer
