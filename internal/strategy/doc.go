// Package strategy builds selection tables from probe results and picks an
// endpoint per request.
//
// A Table orders endpoints slowest first and gives entry i (1-indexed) a
// cumulative weight of 1+2+...+i, so faster endpoints own wider bands of the
// range [1, N(N+1)/2]. Strategies read a Table and never modify it:
//
//   - Latency Weighted: uniform draw over the cumulative range (default)
//   - Round Robin: sequential over table entries
//   - Random: uniform over table entries, ignoring weights
//   - Least Latency: always the fastest entry
//
// Every strategy reports "no endpoint" for an empty table instead of failing.
package strategy
