// Package registry loads the static list of backend endpoints.
//
// The source is plain text with one host:port record per line. Malformed
// records are skipped with a warning that names their position among all
// records, so operators can find them in the file.
package registry
